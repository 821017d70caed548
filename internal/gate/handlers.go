// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gate

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ManuGH/routegate/internal/gate/problem"
	"github.com/ManuGH/routegate/internal/guard"
	"github.com/ManuGH/routegate/internal/identity"
	"github.com/ManuGH/routegate/internal/profile"
	"github.com/ManuGH/routegate/internal/routes"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type routesResponse struct {
	Version           string              `json:"version"`
	PatternCount      int                 `json:"patternCount"`
	Tables            map[string][]string `json:"tables"`
	ProtectedPrefixes []string            `json:"protectedPrefixes,omitempty"`
}

// handleRoutes dumps the active classification table. Reload debugging lives
// here: the version string tells an operator which snapshot is serving.
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	t := s.table.Load()

	patterns := t.Patterns()
	tables := make(map[string][]string, len(patterns))
	count := 0
	for category, ps := range patterns {
		tables[string(category)] = ps
		count += len(ps)
	}

	writeJSON(w, http.StatusOK, routesResponse{
		Version:           t.Version(),
		PatternCount:      count,
		Tables:            tables,
		ProtectedPrefixes: t.ProtectedPrefixes(),
	})
}

type explainResponse struct {
	Path         string            `json:"path"`
	Category     string            `json:"category"`
	TableVersion string            `json:"tableVersion"`
	Decision     explainDecision   `json:"decision"`
	Trace        []guard.RuleTrace `json:"trace"`
}

type explainDecision struct {
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
	Reason string `json:"reason"`
}

// handleExplain evaluates a synthetic request against the live engine and
// returns the per-rule trace. Identity and profile state come from query
// parameters, not the backends, so an operator can probe any combination
// without minting sessions:
//
//	path                 request path (required)
//	authenticated        session present (default false)
//	verified             email verified (default false)
//	role                 user|business_owner|admin (raw values are normalized)
//	onboarding_complete  default false
//	step                 interests|subcategories|deal-breakers|complete
//	profile_known        default true when authenticated and verified
//	referrer             Referer to simulate
//
// The trace covers the rule engine only; the loop guard acts on the client's
// cookie, which a synthetic evaluation does not carry.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rawPath := q.Get("path")
	if rawPath == "" {
		problem.Write(w, r, http.StatusBadRequest,
			"gate/missing-path", "Missing Path", "MISSING_PATH",
			"the explain endpoint requires a path query parameter", nil)
		return
	}

	authenticated := parseBoolParam(q.Get("authenticated"), false)
	verified := parseBoolParam(q.Get("verified"), false)

	ident := identity.Identity{
		Present:       authenticated,
		EmailVerified: authenticated && verified,
	}
	if !authenticated {
		ident.ErrorClass = identity.ErrorClassExpectedAbsent
	}

	var prof profile.Status
	if ident.Present && ident.EmailVerified {
		prof.Known = parseBoolParam(q.Get("profile_known"), true)
	}
	if prof.Known {
		prof.Role = profile.NormalizeRole(q.Get("role"))
		prof.OnboardingComplete = parseBoolParam(q.Get("onboarding_complete"), false)
		prof.OnboardingStep = profile.NormalizeStep(q.Get("step"))
	}

	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	table := s.table.Load()

	normPath := routes.NormalizePath(rawPath)
	category := table.Classify(rawPath)

	decision, trace := engine.Explain(guard.Input{
		Category: category,
		Path:     normPath,
		IsRoot:   normPath == "/",
		Referrer: q.Get("referrer"),
		Identity: ident,
		Profile:  prof,
	})

	writeJSON(w, http.StatusOK, explainResponse{
		Path:         normPath,
		Category:     string(category),
		TableVersion: table.Version(),
		Decision: explainDecision{
			Kind:   string(decision.Kind),
			Target: decision.Target,
			Reason: string(decision.Reason),
		},
		Trace: trace,
	})
}

func parseBoolParam(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
