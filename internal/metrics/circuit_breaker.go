// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "routegate_circuit_breaker_state",
		Help: "Current circuit breaker state (1 for the active state, 0 otherwise)",
	}, []string{"component", "state"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "routegate_circuit_breaker_trips_total",
		Help: "Total number of circuit breaker transitions to open",
	}, []string{"component", "reason"})
)

// SetCircuitBreakerState updates the state gauge for a component. Exactly one
// of the three state series carries 1 at any time.
func SetCircuitBreakerState(component, state string) {
	states := []string{"closed", "half-open", "open"}
	for _, s := range states {
		value := 0.0
		if s == state {
			value = 1.0
		}
		circuitBreakerState.WithLabelValues(component, s).Set(value)
	}
}

// RecordCircuitBreakerTrip counts a transition to the open state.
func RecordCircuitBreakerTrip(component, reason string) {
	circuitBreakerTrips.WithLabelValues(component, reason).Inc()
}
