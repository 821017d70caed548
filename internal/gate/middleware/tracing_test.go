// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/ManuGH/routegate/internal/telemetry"
)

func collectSpans(t *testing.T, handler func(chi.Router)) []tracetest.SpanStub {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
	})

	r := chi.NewRouter()
	r.Use(Tracing("routegate-test"))
	handler(r)

	req := httptest.NewRequest(http.MethodGet, "/app/dashboard?tab=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return exporter.GetSpans()
}

func TestTracing_RecordsRouteAndVerdict(t *testing.T) {
	spans := collectSpans(t, func(r chi.Router) {
		r.Get("/app/{page}", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(headerDecision, "allow")
			w.Header().Set(headerReason, "public_route")
			w.WriteHeader(http.StatusOK)
		})
	})

	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	span := spans[0]

	// The span is renamed to the matched pattern, not the raw path.
	if span.Name != "GET /app/{page}" {
		t.Errorf("unexpected span name: %q", span.Name)
	}

	attrs := make(map[string]string)
	for _, kv := range span.Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["gate.decision"] != "allow" {
		t.Errorf("expected gate.decision=allow, got %q", attrs["gate.decision"])
	}
	if attrs["gate.reason"] != "public_route" {
		t.Errorf("expected gate.reason=public_route, got %q", attrs["gate.reason"])
	}
	if attrs[telemetry.HTTPRouteKey] != "/app/{page}" {
		t.Errorf("expected route attribute, got %q", attrs[telemetry.HTTPRouteKey])
	}
	// Query values are stripped down to a bare marker.
	if attrs[telemetry.HTTPURLKey] != "/app/dashboard?" {
		t.Errorf("expected redacted url label, got %q", attrs[telemetry.HTTPURLKey])
	}
	if span.Status.Code != codes.Ok {
		t.Errorf("expected Ok status for 200, got %v", span.Status.Code)
	}
}

func TestTracing_MarksServerErrors(t *testing.T) {
	spans := collectSpans(t, func(r chi.Router) {
		r.Get("/app/{page}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
	})

	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected Error status for 502, got %v", spans[0].Status.Code)
	}
}
