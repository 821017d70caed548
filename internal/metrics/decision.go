package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routegate_decisions_total",
		Help: "Total number of access routing decisions by kind and reason",
	}, []string{"kind", "reason"})

	redirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routegate_redirects_total",
		Help: "Total number of redirect decisions by target path",
	}, []string{"target"})

	decisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "routegate_decision_duration_seconds",
		Help:    "Latency of the full decision pipeline from classify to verdict",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	loopBreaksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routegate_loop_breaks_total",
		Help: "Total number of redirect decisions overridden to allow by the loop guard",
	})

	guardTokenInvalidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routegate_guard_token_invalid_total",
		Help: "Total number of guard cookies rejected as malformed or badly signed",
	})
)

// RecordDecision records one completed decision pipeline outcome.
func RecordDecision(kind, reason, target string, elapsed time.Duration) {
	decisionsTotal.WithLabelValues(
		normalizeDecisionKindLabel(kind),
		normalizeDecisionReasonLabel(reason),
	).Inc()
	if normalizeDecisionKindLabel(kind) == "redirect" && target != "" {
		redirectsTotal.WithLabelValues(normalizeTargetLabel(target)).Inc()
	}
	decisionDuration.Observe(elapsed.Seconds())
}

// RecordLoopBreak increments the loop guard override counter.
func RecordLoopBreak() {
	loopBreaksTotal.Inc()
}

// RecordGuardTokenInvalid increments the rejected guard cookie counter.
func RecordGuardTokenInvalid() {
	guardTokenInvalidTotal.Inc()
}

func normalizeDecisionKindLabel(kind string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(kind)); normalized {
	case "allow", "redirect", "rewrite":
		return normalized
	default:
		return "unknown"
	}
}

var knownDecisionReasons = map[string]struct{}{
	"password_reset":             {},
	"guest_public":               {},
	"guest_root_landing":         {},
	"guest_verification_flow":    {},
	"guest_protected":            {},
	"guest_landing_alias":        {},
	"auth_page_guest":            {},
	"email_unverified":           {},
	"admin_scope":                {},
	"admin_redirect":             {},
	"owner_business_scope":       {},
	"owner_redirect":             {},
	"profile_unknown_failopen":   {},
	"profile_unknown_restricted": {},
	"onboarding_step_allowed":    {},
	"onboarding_step_gate":       {},
	"onboarding_required":        {},
	"onboarding_done":            {},
	"onboarding_celebration":     {},
	"auth_page_authenticated":    {},
	"role_restricted":            {},
	"root_landing":               {},
	"default_allow":              {},
	"loop_break":                 {},
}

func normalizeDecisionReasonLabel(reason string) string {
	normalized := strings.ToLower(strings.TrimSpace(reason))
	if _, ok := knownDecisionReasons[normalized]; ok {
		return normalized
	}
	return "unknown"
}

// normalizeTargetLabel keeps redirect target cardinality bounded. Targets come
// from the route configuration, but a runaway value must not mint new series.
func normalizeTargetLabel(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") || len(target) > 64 {
		return "other"
	}
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	return target
}
