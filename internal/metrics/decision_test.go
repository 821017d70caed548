package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordDecision_IncrementsCounter(t *testing.T) {
	initial := getCounterVecValue(t, decisionsTotal, "redirect", "guest_protected")
	initialTarget := getCounterVecValue(t, redirectsTotal, "/login")

	RecordDecision("redirect", "guest_protected", "/login", 3*time.Millisecond)

	assert.Equal(t, initial+1, getCounterVecValue(t, decisionsTotal, "redirect", "guest_protected"))
	assert.Equal(t, initialTarget+1, getCounterVecValue(t, redirectsTotal, "/login"))
}

func TestRecordDecision_NormalizesLabels(t *testing.T) {
	initial := getCounterVecValue(t, decisionsTotal, "unknown", "unknown")

	RecordDecision("teleport", "because-reasons", "", time.Millisecond)

	assert.Equal(t, initial+1, getCounterVecValue(t, decisionsTotal, "unknown", "unknown"))
}

func TestRecordDecision_AllowDoesNotCountRedirectTarget(t *testing.T) {
	initial := getCounterVecValue(t, redirectsTotal, "/home")

	RecordDecision("allow", "default_allow", "/home", time.Millisecond)

	assert.Equal(t, initial, getCounterVecValue(t, redirectsTotal, "/home"))
}

func TestNormalizeTargetLabel(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"plain path", "/login", "/login"},
		{"query stripped", "/verify-email?next=%2Fprofile", "/verify-email"},
		{"fragment stripped", "/home#top", "/home"},
		{"relative path collapses", "login", "other"},
		{"empty collapses", "", "other"},
		{"oversized collapses", "/" + string(make([]byte, 80)), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeTargetLabel(tt.target))
		})
	}
}

func TestRecordLoopBreak(t *testing.T) {
	initial := getCounterValue(t, loopBreaksTotal)

	RecordLoopBreak()

	assert.Equal(t, initial+1, getCounterValue(t, loopBreaksTotal))
}

func TestRecordGuardTokenInvalid(t *testing.T) {
	initial := getCounterValue(t, guardTokenInvalidTotal)

	RecordGuardTokenInvalid()

	assert.Equal(t, initial+1, getCounterValue(t, guardTokenInvalidTotal))
}
