// Package main - redirect loop termination scenario.
package main

import (
	"fmt"
)

// maxChainLength caps one redirect replay chain. The guard breaks a loop
// after its threshold; a healthy gate never comes close to this cap.
const maxChainLength = 8

// runLoopScenario replays redirect-producing requests with the guard cookie
// carried forward, the way a misconfigured frontend would, and verifies every
// chain terminates.
func runLoopScenario(cfg Config, client *gateClient) ScenarioResult {
	result := ScenarioResult{
		Name:         "loop_termination",
		Pass:         true,
		Observations: map[string]int64{},
		Failures:     []Failure{},
	}

	// Find a path the gate answers with a redirect for guests.
	paths := pathCorpus(cfg, client)
	target := ""
	for _, path := range paths {
		res := client.Decide(path, "", "")
		if res.Err == nil && res.Status == 302 {
			target = path
			break
		}
	}
	if target == "" {
		result.Status = scenarioStatusSkipped
		result.Reason = "no path in the corpus produced a redirect for guests"
		result.Pass = false
		return result
	}
	fmt.Printf("[Loop] Replaying %s with the guard cookie carried forward\n", target)

	const chains = 5
	var maxLen int64
	for chain := 0; chain < chains; chain++ {
		cookie := ""
		length := int64(0)
		terminated := false

		for attempt := 0; attempt < maxChainLength; attempt++ {
			res := client.Decide(target, "", cookie)
			if res.Err != nil {
				recordFailure(&result, "DECIDE_TRANSPORT", fmt.Sprintf("chain %d: %v", chain, res.Err))
				terminated = true
				break
			}

			if res.Status != 302 {
				if res.Reason == "loop_break" {
					result.Observations["loop_breaks"]++
				}
				terminated = true
				break
			}

			length++
			if res.GuardCookie == "" {
				recordFailure(&result, "LOOP_COOKIE_MISSING",
					fmt.Sprintf("chain %d: redirect %d did not set the guard cookie", chain, length))
				terminated = true
				break
			}
			cookie = res.GuardCookie
		}

		if !terminated {
			recordFailure(&result, "LOOP_NOT_TERMINATED",
				fmt.Sprintf("chain %d still redirecting after %d attempts", chain, maxChainLength))
		}
		if length > maxLen {
			maxLen = length
		}
	}

	result.Observations["chains"] = chains
	result.Observations["max_chain_len"] = maxLen

	fmt.Printf("[Loop] %d chains, longest %d redirects, %d loop breaks. Pass=%v\n",
		chains, maxLen, result.Observations["loop_breaks"], result.Pass)
	return result
}
