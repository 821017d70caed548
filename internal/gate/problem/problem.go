package problem

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/routegate/internal/log"
)

// Canonical header and JSON field names for request correlation. They must
// stay consistent across middleware, the problem writer and tests.
const (
	HeaderRequestID  = "X-Request-ID"
	JSONKeyRequestID = "requestId"
)

// reservedKeys are the RFC 7807 member names extras may not override.
var reservedKeys = map[string]struct{}{
	"type":     {},
	"title":    {},
	"status":   {},
	"detail":   {},
	"instance": {},
	"code":     {},
}

// Write writes an RFC 7807 problem details response.
//
// Semantics:
//   - type: Canonical machine identifier (e.g. "gate/route_table").
//   - title: Human-readable short label (e.g. "Not Found").
//   - code: Stable machine-readable short code (e.g. "NOT_FOUND").
//   - detail: Human-readable explanation of the specific error.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	if r == nil {
		// Every handler must pass the request through to the error writer;
		// reaching this branch in production means a developer error.
		l := log.L()
		l.Error().Str("type", problemType).Int("status", status).Msg("problem.Write called with nil request")
	}

	reqID := requestID(w, r)

	res := map[string]any{
		"type":           problemType,
		"title":          title,
		"status":         status,
		"code":           code,
		JSONKeyRequestID: reqID,
	}
	if detail != "" {
		res["detail"] = detail
	}
	if r != nil {
		if instance := r.URL.EscapedPath(); instance != "" {
			res["instance"] = instance
		}
	}

	for k, v := range extra {
		if _, reserved := reservedKeys[k]; reserved {
			l := log.L()
			l.Warn().Str("key", k).Str("problem_type", problemType).Msg("ignoring reserved key in problem extras")
			continue
		}
		res[k] = v
	}

	w.Header().Set(HeaderRequestID, reqID)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(res); err != nil {
		l := log.L()
		l.Error().
			Err(err).
			Str("type", problemType).
			Int("status", status).
			Msg("failed to encode problem response")
	}
}

// requestID recovers the correlation ID from the request context, then from
// the response header the middleware set. Every response must carry one;
// the fallback value means context propagation failed upstream.
func requestID(w http.ResponseWriter, r *http.Request) string {
	if r != nil {
		if id := log.RequestIDFromContext(r.Context()); id != "" {
			return id
		}
	}
	if id := w.Header().Get(HeaderRequestID); id != "" {
		return id
	}
	return "FALLBACK-TRUTH-MISSING"
}
