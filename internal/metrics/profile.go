package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	profileFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routegate_profile_fetch_total",
		Help: "Total number of profile status fetches by outcome",
	}, []string{"outcome"})

	profileSchemaDriftTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routegate_profile_schema_drift_total",
		Help: "Total number of profile fetches retried with the reduced field set",
	})
)

// RecordProfileFetch records one profile status fetch outcome.
func RecordProfileFetch(outcome string) {
	profileFetchTotal.WithLabelValues(normalizeProfileOutcomeLabel(outcome)).Inc()
}

// RecordProfileSchemaDrift increments the reduced field set fallback counter.
func RecordProfileSchemaDrift() {
	profileSchemaDriftTotal.Inc()
}

func normalizeProfileOutcomeLabel(outcome string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(outcome)); normalized {
	case "ok", "reduced", "absent", "error", "breaker_open":
		return normalized
	default:
		return "unknown"
	}
}
