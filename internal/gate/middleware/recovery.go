// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/routegate/internal/gate/problem"
	"github.com/ManuGH/routegate/internal/log"
)

// Recoverer converts panics in downstream handlers into a logged 500
// problem response. http.ErrAbortHandler is re-raised untouched: the
// embedded proxy aborts with it when a client disconnects mid-stream,
// and the connection must die rather than receive a 500.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			buf := make([]byte, 8192)
			stack := string(buf[:runtime.Stack(buf, false)])

			logger := log.WithComponentFromContext(r.Context(), "panic-recovery")
			logger.Error().
				Str("event", "panic.recovered").
				Str("method", r.Method).
				Str("path", loggablePath(r)).
				Str("remote_addr", r.RemoteAddr).
				Str("requestId", w.Header().Get(problem.HeaderRequestID)).
				Interface("panic_value", rec).
				Str("stack_trace", stack).
				Msg("panic recovered in HTTP handler")

			// Best effort: a handler that already started writing leaves
			// the client with a truncated body instead.
			problem.Write(w, r, http.StatusInternalServerError,
				"internal/panic", "Internal Server Error", "INTERNAL",
				"the request could not be completed", nil)
		}()

		next.ServeHTTP(w, r)
	})
}

// loggablePath strips invalid UTF-8 from the request path so the log
// line stays valid JSON.
func loggablePath(r *http.Request) string {
	p := r.URL.Path
	if utf8.ValidString(p) {
		return p
	}
	return strings.ToValidUTF8(p, "")
}
