// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package middleware provides the HTTP ingress middleware for the gate server.
package middleware

import (
	"net/http"

	"github.com/ManuGH/routegate/internal/gate/problem"
	"github.com/ManuGH/routegate/internal/telemetry"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Decision headers mirrored from the gate package; importing it here
// would cycle through the server constructor.
const (
	headerDecision = "X-Gate-Decision"
	headerReason   = "X-Gate-Reason"
)

// Tracing returns a middleware that wraps every request in an
// OpenTelemetry server span. Inbound W3C trace context is honored so
// edge proxy spans and gate spans join the same trace. Attributes and
// the final span name are recorded after the handler ran, with the
// resolved route pattern, the status and the gate verdict when one
// was written.
func Tracing(tracerName string) func(http.Handler) http.Handler {
	tracer := telemetry.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			// Provisional name; the route pattern is only known after
			// the router matched, so the span is renamed below.
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			// Capture the status code while preserving streaming interfaces.
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := routePattern(r)
			span.SetName(r.Method + " " + route)

			// Query values never reach the trace; evaluate requests
			// carry the original URL and tokens may ride in it.
			urlLabel := r.URL.Path
			if r.URL.RawQuery != "" {
				urlLabel += "?"
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := telemetry.HTTPAttributes(r.Method, route, urlLabel, status)
			if reqID := ww.Header().Get(problem.HeaderRequestID); reqID != "" {
				attrs = append(attrs, attribute.String("http.requestId", reqID))
			}
			if decision := ww.Header().Get(headerDecision); decision != "" {
				attrs = append(attrs, attribute.String("gate.decision", decision))
			}
			if reason := ww.Header().Get(headerReason); reason != "" {
				attrs = append(attrs, attribute.String("gate.reason", reason))
			}
			span.SetAttributes(attrs...)

			if status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(status))
			} else {
				// 4xx stays Ok; client mistakes are not gate failures.
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}

// routePattern returns the matched chi pattern, falling back to the
// raw path for requests that never hit a registered route.
func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
