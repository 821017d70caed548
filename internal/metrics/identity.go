// SPDX-License-Identifier: MIT
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	identityResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routegate_identity_resolutions_total",
		Help: "Total number of identity resolution attempts by terminal error class",
	}, []string{"error_class"})

	identityRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "routegate_identity_retries_total",
		Help: "Total number of retried identity resolution calls after transient failures",
	})

	identityRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routegate_identity_refresh_total",
		Help: "Total number of proactive session refresh attempts by outcome",
	}, []string{"outcome"})
)

// RecordIdentityResolution records the terminal classification of a resolution.
func RecordIdentityResolution(errorClass string) {
	identityResolutionsTotal.WithLabelValues(normalizeErrorClassLabel(errorClass)).Inc()
}

// RecordIdentityRetry increments the retry counter once per retried call.
func RecordIdentityRetry() {
	identityRetriesTotal.Inc()
}

// RecordIdentityRefresh records a proactive refresh attempt.
func RecordIdentityRefresh(outcome string) {
	identityRefreshTotal.WithLabelValues(normalizeRefreshOutcomeLabel(outcome)).Inc()
}

func normalizeErrorClassLabel(errorClass string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(errorClass)); normalized {
	case "none", "expected_absent", "transient", "fatal":
		return normalized
	default:
		return "unknown"
	}
}

func normalizeRefreshOutcomeLabel(outcome string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(outcome)); normalized {
	case "success", "failure", "skipped":
		return normalized
	default:
		return "unknown"
	}
}
