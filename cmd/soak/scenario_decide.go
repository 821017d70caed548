// Package main - sustained decide traffic scenario.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// runDecideScenario hammers the decide endpoint with a randomized path and
// identity mix for the configured duration. Invariants:
//   - the gate never answers 5xx
//   - every answer carries a decision header
//   - every redirect carries a Location
func runDecideScenario(cfg Config, client *gateClient) ScenarioResult {
	result := ScenarioResult{
		Name:         "decide_sustained",
		Pass:         true,
		Observations: map[string]int64{},
		Failures:     []Failure{},
	}

	paths := pathCorpus(cfg, client)
	fmt.Printf("[Decide] Corpus: %d paths, %d workers, %.0f rps, %s\n",
		len(paths), cfg.MaxInflight, cfg.RPS, cfg.Duration)

	var baseline *metricsSnapshot
	if cfg.MetricsURL != "" {
		snap, err := scrapeMetrics(cfg.MetricsURL)
		if err != nil {
			fmt.Printf("[Decide] metrics baseline scrape failed: %v\n", err)
			result.Observations["metrics_scrape_errors"]++
		}
		baseline = snap
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.MaxInflight)

	var mu sync.Mutex
	var latencies []time.Duration
	kinds := map[string]int64{}
	var requests, transportErrors int64

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.MaxInflight; w++ {
		// Per-worker rng: math/rand sources are not safe for concurrent use.
		rng := rand.New(rand.NewSource(int64(cfg.Seed) + int64(w))) // #nosec G404 -- traffic shaping, not crypto
		g.Go(func() error {
			for {
				if err := limiter.Wait(ctx); err != nil {
					return nil // duration elapsed
				}

				path := paths[rng.Intn(len(paths))]
				token := ""
				if len(cfg.Tokens) > 0 && rng.Float64() < cfg.MixAuth {
					token = cfg.Tokens[rng.Intn(len(cfg.Tokens))]
				}

				res := client.Decide(path, token, "")

				mu.Lock()
				requests++
				if res.Err != nil {
					transportErrors++
					recordFailure(&result, "DECIDE_TRANSPORT", fmt.Sprintf("%s: %v", path, res.Err))
					mu.Unlock()
					continue
				}
				latencies = append(latencies, res.Latency)
				if res.Status >= 500 {
					recordFailure(&result, "DECIDE_5XX", fmt.Sprintf("%s answered %d", path, res.Status))
				}
				if res.Decision == "" {
					recordFailure(&result, "DECISION_HEADER_MISSING", fmt.Sprintf("%s answered %d without a decision", path, res.Status))
				} else {
					kinds[res.Decision]++
				}
				if res.Status == 302 && res.Location == "" {
					recordFailure(&result, "REDIRECT_WITHOUT_LOCATION", fmt.Sprintf("%s redirected without Location", path))
				}
				mu.Unlock()
			}
		})
	}
	_ = g.Wait()

	result.Observations["requests"] = requests
	result.Observations["transport_errors"] = transportErrors
	for kind, n := range kinds {
		result.Observations["decision_"+kind] = n
	}
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		result.Observations["latency_p50_ms"] = quantile(latencies, 0.50).Milliseconds()
		result.Observations["latency_p95_ms"] = quantile(latencies, 0.95).Milliseconds()
		result.Observations["latency_p99_ms"] = quantile(latencies, 0.99).Milliseconds()
	}

	// Counter cross-check: the gate must have recorded at least our share of
	// decisions. Other traffic can only push the delta higher.
	if cfg.MetricsURL != "" && baseline != nil {
		after, err := scrapeMetrics(cfg.MetricsURL)
		if err != nil {
			fmt.Printf("[Decide] metrics final scrape failed: %v\n", err)
			result.Observations["metrics_scrape_errors"]++
		} else {
			delta := decisionsDelta(baseline, after)
			result.Observations["metrics_decisions_delta"] = int64(delta)
			decided := requests - transportErrors
			if delta < float64(decided) {
				recordFailure(&result, "METRICS_DECISIONS_UNDERCOUNT",
					fmt.Sprintf("gate recorded %.0f decisions, harness observed %d", delta, decided))
			}
		}
	}

	fmt.Printf("[Decide] %d requests, %d violations. Pass=%v\n",
		requests, result.Observations["invariant_violations"], result.Pass)
	return result
}

// quantile picks the nearest-rank q-th quantile from an ascending-sorted
// slice.
func quantile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q*float64(len(sorted)-1) + 0.5)
	return sorted[idx]
}
