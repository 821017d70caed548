// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ManuGH/routegate/internal/gate/problem"
	"github.com/ManuGH/routegate/internal/log"
)

// maxRequestIDLength caps inbound ID headers. Longer values are
// discarded rather than truncated so an ID is never ambiguous.
const maxRequestIDLength = 64

// headerCorrelationID is the journey-scoped ID assigned by the edge.
// Unlike the request ID it spans multiple hops through the gate.
const headerCorrelationID = "X-Correlation-ID"

// RequestID assigns every request a per-hop ID. An inbound
// X-Request-ID from the edge proxy is kept when it is well formed;
// everything else gets a fresh UUID. The ID is reflected in the
// response header and stored in the request context for loggers and
// the problem writer.
//
// A well-formed inbound X-Correlation-ID is stored alongside it. The
// gate never mints one; it only carries what the edge assigned into
// log lines and outbound backend calls.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(problem.HeaderRequestID)
		if !validRequestID(reqID) {
			reqID = uuid.New().String()
		}
		w.Header().Set(problem.HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		if cid := r.Header.Get(headerCorrelationID); validRequestID(cid) {
			ctx = log.ContextWithCorrelationID(ctx, cid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validRequestID accepts UUID, ULID and the trace-ID shapes common
// edge proxies emit. Both ID headers pass through it; the values end
// up in response headers and every log line, so the charset stays
// closed.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.' || c == ':':
		default:
			return false
		}
	}
	return true
}
