// SPDX-License-Identifier: MIT
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to get metric value from a gauge
func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	err := gauge.Write(metric)
	require.NoError(t, err)
	return metric.GetGauge().GetValue()
}

// Helper function to get metric value from a counter
func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	err := counter.Write(metric)
	require.NoError(t, err)
	return metric.GetCounter().GetValue()
}

// Helper function to get metric value from a labeled gauge
func getGaugeVecValue(t *testing.T, gaugeVec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	gauge := gaugeVec.WithLabelValues(labels...)
	return getGaugeValue(t, gauge)
}

// Helper function to get metric value from a labeled counter
func getCounterVecValue(t *testing.T, counterVec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	counter := counterVec.WithLabelValues(labels...)
	return getCounterValue(t, counter)
}

func TestRecordProfileFetch(t *testing.T) {
	tests := []struct {
		name    string
		outcome string
		label   string
	}{
		{"full row", "ok", "ok"},
		{"reduced field set", "reduced", "reduced"},
		{"no row for user", "absent", "absent"},
		{"store failure", "error", "error"},
		{"breaker rejected call", "breaker_open", "breaker_open"},
		{"unexpected outcome collapses", "exploded", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initial := getCounterVecValue(t, profileFetchTotal, tt.label)

			RecordProfileFetch(tt.outcome)

			actual := getCounterVecValue(t, profileFetchTotal, tt.label)
			assert.Equal(t, initial+1, actual)
		})
	}
}

func TestRecordProfileSchemaDrift(t *testing.T) {
	initial := getCounterValue(t, profileSchemaDriftTotal)

	RecordProfileSchemaDrift()

	assert.Equal(t, initial+1, getCounterValue(t, profileSchemaDriftTotal))
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("profile_store", "open")

	assert.Equal(t, 1.0, getGaugeVecValue(t, circuitBreakerState, "profile_store", "open"))
	assert.Equal(t, 0.0, getGaugeVecValue(t, circuitBreakerState, "profile_store", "closed"))
	assert.Equal(t, 0.0, getGaugeVecValue(t, circuitBreakerState, "profile_store", "half-open"))

	SetCircuitBreakerState("profile_store", "closed")

	assert.Equal(t, 0.0, getGaugeVecValue(t, circuitBreakerState, "profile_store", "open"))
	assert.Equal(t, 1.0, getGaugeVecValue(t, circuitBreakerState, "profile_store", "closed"))
}

func TestRecordCircuitBreakerTrip(t *testing.T) {
	initial := getCounterVecValue(t, circuitBreakerTrips, "profile_store", "threshold_exceeded")

	RecordCircuitBreakerTrip("profile_store", "threshold_exceeded")

	assert.Equal(t, initial+1, getCounterVecValue(t, circuitBreakerTrips, "profile_store", "threshold_exceeded"))
}
