// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package guard

import "time"

const (
	// DefaultWindow bounds how long a redirect chain may keep bouncing
	// before the guard steps in.
	DefaultWindow = 5 * time.Second

	// DefaultThreshold is the number of redirects tolerated inside one
	// window. The next one is forced to Allow.
	DefaultThreshold = 2
)

// State is the per-client loop counter carried in the guard cookie between
// requests. The gate persists it client-side; the guard itself is stateless.
type State struct {
	WindowStart time.Time
	Count       int
	LastFrom    string
	LastTo      string
}

// LoopGuard caps redirect chains. Two redirects inside the window are fine,
// the third is overridden to Allow so a misconfigured route table degrades to
// a rendered page instead of a browser loop error.
type LoopGuard struct {
	window    time.Duration
	threshold int
}

func NewLoopGuard(window time.Duration, threshold int) *LoopGuard {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &LoopGuard{window: window, threshold: threshold}
}

// Apply takes the engine's candidate decision and the state decoded from the
// client's guard cookie. It returns the final decision plus the state to
// persist; nil state means the cookie must be cleared.
//
// Prefetch requests pass the candidate through untouched and must not change
// the persisted state; callers skip writing the cookie for them.
func (g *LoopGuard) Apply(candidate Decision, fromPath string, prior *State, now time.Time, prefetch bool) (Decision, *State) {
	if candidate.Kind != KindRedirect {
		return candidate, nil
	}
	if prefetch {
		return candidate, prior
	}

	if prior != nil {
		elapsed := now.Sub(prior.WindowStart)
		if elapsed >= 0 && elapsed <= g.window {
			if prior.Count >= g.threshold {
				return Allow(ReasonLoopBreak), nil
			}
			return candidate, &State{
				WindowStart: prior.WindowStart,
				Count:       prior.Count + 1,
				LastFrom:    fromPath,
				LastTo:      candidate.Target,
			}
		}
	}

	return candidate, &State{
		WindowStart: now,
		Count:       1,
		LastFrom:    fromPath,
		LastTo:      candidate.Target,
	}
}
