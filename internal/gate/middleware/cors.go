// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
)

// Preflight and simple-response header values. The allow list names
// exactly the headers the decision API and the operator surface accept.
const (
	corsAllowMethods  = "GET, POST, OPTIONS, DELETE, PUT, PATCH"
	corsAllowHeaders  = "Content-Type, X-Request-ID, X-API-Token, Authorization"
	corsExposeHeaders = "Retry-After, Content-Length, Date, X-Request-ID"
	corsMaxAge        = "600"
)

// corsPolicy is a compiled origin allow list.
type corsPolicy struct {
	allowAll bool
	origins  map[string]struct{}
}

func compileCORSPolicy(allowedOrigins []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]struct{}, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			p.allowAll = true
			continue
		}
		p.origins[origin] = struct{}{}
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if p.allowAll {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// CORS returns a middleware implementing a strict-list CORS policy.
// Unlisted origins get no Access-Control headers at all, which makes
// the browser block the response. Requests without an Origin header
// (same origin, curl, the edge proxy) pass untouched. Preflights are
// answered here with 204; bare OPTIONS requests fall through to the
// router.
func CORS(allowedOrigins []string, allowCredentials bool) func(http.Handler) http.Handler {
	policy := compileCORSPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Caches must key on Origin regardless of the outcome.
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin != "" && policy.allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				if allowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				w.Header().Set("Access-Control-Expose-Headers", corsExposeHeaders)
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")
				w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
				w.Header().Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
