// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authz

// Policy registry for OpenAPI operation IDs.
// This is the single source of truth for required scopes.
var operationScopes = map[string][]string{
	"Decide":    {},
	"GetRoutes": {"gate:read"},
	"Explain":   {"gate:admin"},
	"GetHealth": {},
	"GetReady":  {},
}

// Operations allowed to be unscoped. Decide is the data plane: the edge proxy
// calls it per end-user request and holds no operator token. The probes are
// read by infrastructure.
var unscopedOperations = map[string]struct{}{
	"Decide":    {},
	"GetHealth": {},
	"GetReady":  {},
}

// RequiredScopes returns the required scopes for an operation ID.
func RequiredScopes(operationID string) ([]string, bool) {
	scopes, ok := operationScopes[operationID]
	if !ok {
		return nil, false
	}
	return cloneScopes(scopes), true
}

// IsUnscopedAllowed reports whether an operation is allowed to have empty scopes.
func IsUnscopedAllowed(operationID string) bool {
	_, ok := unscopedOperations[operationID]
	return ok
}

func cloneScopes(scopes []string) []string {
	if scopes == nil {
		return []string{}
	}
	return append([]string{}, scopes...)
}
