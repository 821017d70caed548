// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gate

import (
	"net/http"
	"strings"

	"github.com/ManuGH/routegate/internal/auth"
	"github.com/ManuGH/routegate/internal/config"
	"github.com/ManuGH/routegate/internal/gate/problem"
	"github.com/ManuGH/routegate/internal/log"
)

// Scope defines a named permission for ops-API access.
type Scope string

const (
	ScopeAll       Scope = "*"
	ScopeGateAll   Scope = "gate:*"
	ScopeGateRead  Scope = "gate:read"
	ScopeGateAdmin Scope = "gate:admin"
)

type scopeSet map[Scope]struct{}

// impliedScopes expands wildcard and admin grants to everything they
// cover. Admin implies read directly, so no transitive pass is needed.
var impliedScopes = map[Scope][]Scope{
	ScopeAll:       {ScopeGateAdmin, ScopeGateRead},
	ScopeGateAll:   {ScopeGateAdmin, ScopeGateRead},
	ScopeGateAdmin: {ScopeGateRead},
}

func newScopeSet(scopes []string) scopeSet {
	set := scopeSet{}
	for _, raw := range scopes {
		raw = strings.TrimSpace(strings.ToLower(raw))
		if raw == "" {
			continue
		}
		set[Scope(raw)] = struct{}{}
	}
	for scope, implied := range impliedScopes {
		if _, ok := set[scope]; !ok {
			continue
		}
		for _, grant := range implied {
			set[grant] = struct{}{}
		}
	}
	return set
}

func (s scopeSet) allows(required []Scope) bool {
	if len(required) == 0 {
		return true
	}
	for _, scope := range required {
		if s.has(scope) {
			return true
		}
	}
	return false
}

func (s scopeSet) has(scope Scope) bool {
	if s == nil {
		return false
	}
	if _, ok := s[ScopeAll]; ok {
		return true
	}
	if _, ok := s[ScopeGateAll]; ok && strings.HasPrefix(string(scope), "gate:") {
		return true
	}
	_, ok := s[scope]
	return ok
}

func defaultReadScopes() scopeSet {
	return newScopeSet([]string{string(ScopeGateRead)})
}

// tokenScopes returns the scopes for a valid token.
func (s *Server) tokenScopes(token string) (scopeSet, bool) {
	if token == "" {
		return nil, false
	}
	s.mu.RLock()
	cfgToken := s.cfg.APIToken
	cfgTokenScopes := append([]string(nil), s.cfg.APITokenScopes...)
	cfgTokens := append([]config.ScopedToken(nil), s.cfg.APITokens...)
	s.mu.RUnlock()

	if cfgToken != "" && auth.AuthorizeToken(token, cfgToken) {
		if len(cfgTokenScopes) == 0 {
			return defaultReadScopes(), true
		}
		return newScopeSet(cfgTokenScopes), true
	}

	for _, entry := range cfgTokens {
		if auth.AuthorizeToken(token, entry.Token) {
			if len(entry.Scopes) == 0 {
				return defaultReadScopes(), true
			}
			return newScopeSet(entry.Scopes), true
		}
	}

	return nil, false
}

// scopeMiddleware enforces that a request has at least one required scope.
// Unknown and missing tokens both fail closed; the gate has no anonymous
// ops access.
func (s *Server) scopeMiddleware(required ...Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractToken(r, false)
			scopes, ok := s.tokenScopes(token)
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized", "UNAUTHORIZED", "missing or invalid API token", nil)
				return
			}
			if !scopes.allows(required) {
				logger := log.FromContext(r.Context()).With().Str("component", "authz").Logger()
				logger.Warn().
					Str("principal", auth.PrincipalID(token)).
					Strs("required_scopes", scopesToStrings(required)).
					Strs("token_scopes", scopeSetToStrings(scopes)).
					Msg("insufficient scopes for request")
				problem.Write(w, r, http.StatusForbidden, "auth/forbidden", "Forbidden", "FORBIDDEN", "insufficient scopes", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func scopesToStrings(scopes []Scope) []string {
	out := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		out = append(out, string(scope))
	}
	return out
}

func scopeSetToStrings(scopes scopeSet) []string {
	if scopes == nil {
		return nil
	}
	out := make([]string, 0, len(scopes))
	for scope := range scopes {
		out = append(out, string(scope))
	}
	return out
}
