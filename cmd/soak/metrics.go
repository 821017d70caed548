// Package main - metrics cross-checks for the soak harness.
package main

import (
	"fmt"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// metricsSnapshot holds one scrape of the gate's metrics endpoint.
type metricsSnapshot struct {
	families map[string]*dto.MetricFamily
}

// scrapeMetrics fetches and parses the exposition text. A nil snapshot with
// an error means the endpoint is unreachable; the caller decides whether
// that matters.
func scrapeMetrics(url string) (*metricsSnapshot, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metrics endpoint answered %d", res.StatusCode)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(res.Body)
	if err != nil {
		return nil, err
	}
	return &metricsSnapshot{families: families}, nil
}

// counterSum sums a counter family across all label combinations.
func (s *metricsSnapshot) counterSum(name string) float64 {
	if s == nil {
		return 0
	}
	family, ok := s.families[name]
	if !ok {
		return 0
	}
	total := 0.0
	for _, m := range family.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}

// decisionsDelta reports how many decisions the gate recorded between two
// snapshots.
func decisionsDelta(before, after *metricsSnapshot) float64 {
	return after.counterSum("routegate_decisions_total") - before.counterSum("routegate_decisions_total")
}
