package main

import (
	"testing"
	"time"
)

func TestNormalizeScenarioResult_UnimplementedStrict(t *testing.T) {
	in := ScenarioResult{
		Name:   "backend_outage",
		Pass:   true,
		Status: scenarioStatusUnimplemented,
	}

	got := normalizeScenarioResult(in, false)
	if got.Status != scenarioStatusUnimplemented {
		t.Fatalf("status=%q, want %q", got.Status, scenarioStatusUnimplemented)
	}
	if got.Pass {
		t.Fatalf("pass=%v, want false", got.Pass)
	}
	if got.Reason != "unimplemented" {
		t.Fatalf("reason=%q, want unimplemented", got.Reason)
	}
}

func TestNormalizeScenarioResult_UnimplementedAllowed(t *testing.T) {
	in := ScenarioResult{
		Name:   "backend_outage",
		Pass:   true,
		Status: scenarioStatusUnimplemented,
	}

	got := normalizeScenarioResult(in, true)
	if got.Status != scenarioStatusSkipped {
		t.Fatalf("status=%q, want %q", got.Status, scenarioStatusSkipped)
	}
	if got.Pass {
		t.Fatalf("pass=%v, want false", got.Pass)
	}
}

func TestNormalizeScenarioResult_DefaultsToPassFail(t *testing.T) {
	pass := normalizeScenarioResult(ScenarioResult{Name: "ok", Pass: true}, false)
	if pass.Status != scenarioStatusPass {
		t.Fatalf("pass.status=%q, want %q", pass.Status, scenarioStatusPass)
	}

	fail := normalizeScenarioResult(ScenarioResult{Name: "nok", Pass: false}, false)
	if fail.Status != scenarioStatusFail {
		t.Fatalf("fail.status=%q, want %q", fail.Status, scenarioStatusFail)
	}
}

func TestSubstitutePattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"/", "/"},
		{"/profile", "/profile"},
		{"/profile/*", "/profile/soak"},
		{"/reviews/{id}/edit", "/reviews/soak/edit"},
		{"/business/{slug}", "/business/soak"},
		{"/a{b}", ""},
	}

	for _, tt := range tests {
		if got := substitutePattern(tt.pattern); got != tt.want {
			t.Errorf("substitutePattern(%q)=%q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestQuantile(t *testing.T) {
	sorted := []time.Duration{
		1 * time.Millisecond,
		2 * time.Millisecond,
		3 * time.Millisecond,
		4 * time.Millisecond,
		100 * time.Millisecond,
	}

	if got := quantile(sorted, 0.50); got != 3*time.Millisecond {
		t.Errorf("p50=%v, want 3ms", got)
	}
	if got := quantile(sorted, 0.99); got != 100*time.Millisecond {
		t.Errorf("p99=%v, want 100ms", got)
	}
	if got := quantile(nil, 0.50); got != 0 {
		t.Errorf("empty quantile=%v, want 0", got)
	}
}

func TestRecordFailureCapsList(t *testing.T) {
	result := ScenarioResult{
		Pass:         true,
		Observations: map[string]int64{},
	}

	for i := 0; i < maxRecordedFailures+10; i++ {
		recordFailure(&result, "DECIDE_5XX", "boom")
	}

	if len(result.Failures) != maxRecordedFailures {
		t.Fatalf("failures=%d, want cap %d", len(result.Failures), maxRecordedFailures)
	}
	if got := result.Observations["invariant_violations"]; got != int64(maxRecordedFailures+10) {
		t.Fatalf("violations=%d, want %d", got, maxRecordedFailures+10)
	}
	if result.Pass {
		t.Fatal("pass should flip to false on the first failure")
	}
}
