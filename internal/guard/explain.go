// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package guard

import (
	"github.com/ManuGH/routegate/internal/profile"
	"github.com/ManuGH/routegate/internal/routes"
)

// RuleTrace records one rule consulted during an Explain pass. Matched is true
// for at most one entry, the last one; rules after the first match are never
// consulted.
type RuleTrace struct {
	Rule    string `json:"rule"`
	Matched bool   `json:"matched"`
	Kind    Kind   `json:"kind,omitempty"`
	Target  string `json:"target,omitempty"`
	Reason  Reason `json:"reason,omitempty"`
}

// explainRule pairs a dispatch predicate with the branch Decide would take.
// The decide funcs are the very helpers Decide calls, so a trace can never
// disagree with the engine's verdict.
type explainRule struct {
	name    string
	applies func(Input) bool
	decide  func(Input) Decision
}

func (e *Engine) explainRules() []explainRule {
	return []explainRule{
		{
			name:    "password_reset",
			applies: func(in Input) bool { return in.Category == routes.CategoryPasswordReset },
			decide:  func(Input) Decision { return Allow(ReasonPasswordReset) },
		},
		{
			name:    "auth_page_guest",
			applies: func(in Input) bool { return !in.Identity.Present && in.Category == routes.CategoryAuthPage },
			decide:  func(Input) Decision { return Allow(ReasonAuthPageGuest) },
		},
		{
			name:    "guest",
			applies: func(in Input) bool { return !in.Identity.Present },
			decide:  e.decideGuest,
		},
		{
			name:    "email_unverified",
			applies: func(in Input) bool { return !in.Identity.EmailVerified },
			decide:  e.decideUnverified,
		},
		{
			name:    "profile_unknown",
			applies: func(in Input) bool { return !in.Profile.Known },
			decide:  e.decideUnknownProfile,
		},
		{
			name:    "admin",
			applies: func(in Input) bool { return in.Profile.Role == profile.RoleAdmin },
			decide:  e.decideAdmin,
		},
		{
			name:    "business_owner",
			applies: func(in Input) bool { return in.Profile.Role == profile.RoleBusinessOwner },
			decide:  e.decideOwner,
		},
		{
			name:    "user_onboarding",
			applies: func(in Input) bool { return !in.Profile.OnboardingComplete },
			decide:  e.decideOnboardingUser,
		},
		{
			name:    "user_onboarded",
			applies: func(Input) bool { return true },
			decide:  e.decideOnboardedUser,
		},
	}
}

// Explain evaluates in exactly like Decide while recording every rule
// consulted, in order. The returned decision is identical to Decide's for the
// same input. The loop guard is not part of the trace; it acts on the client's
// cookie, which a synthetic evaluation does not carry.
func (e *Engine) Explain(in Input) (Decision, []RuleTrace) {
	rules := e.explainRules()
	trace := make([]RuleTrace, 0, len(rules))
	for _, r := range rules {
		if !r.applies(in) {
			trace = append(trace, RuleTrace{Rule: r.name})
			continue
		}
		d := r.decide(in)
		trace = append(trace, RuleTrace{
			Rule:    r.name,
			Matched: true,
			Kind:    d.Kind,
			Target:  d.Target,
			Reason:  d.Reason,
		})
		return d, trace
	}
	// Unreachable: the last rule always applies.
	return Allow(ReasonDefaultAllow), trace
}
