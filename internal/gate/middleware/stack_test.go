// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ManuGH/routegate/internal/log"
)

func TestStack_EnforcesCSRFInProxyMode(t *testing.T) {
	r := NewRouter(StackConfig{
		EnableCORS: true,
		EnableCSRF: true,
	})
	r.Post("/app/profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/app/profile", nil)
	req.Host = "gate.example.com"
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 from CSRF middleware, got %d", w.Code)
	}
}

func TestStack_NoCSRFInForwardAuthMode(t *testing.T) {
	r := NewRouter(StackConfig{
		EnableCORS: true,
		EnableCSRF: false,
	})
	r.Post("/v1/decide", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Decision API calls come from the edge proxy, not a browser.
	req := httptest.NewRequest(http.MethodPost, "/v1/decide", nil)
	req.Host = "gate.example.com"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 without CSRF enforcement, got %d", w.Code)
	}
}

func TestStack_AssignsRequestID(t *testing.T) {
	r := NewRouter(StackConfig{})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	got := w.Header().Get("X-Request-ID")
	if got == "" {
		t.Fatal("expected X-Request-ID on response")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("generated request ID is not a UUID: %q", got)
	}
}

func TestStack_KeepsWellFormedInboundRequestID(t *testing.T) {
	r := NewRouter(StackConfig{})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "edge-7f3a2b.41")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "edge-7f3a2b.41" {
		t.Fatalf("expected inbound request ID to be kept, got %q", got)
	}
}

func TestStack_ReplacesMalformedInboundRequestID(t *testing.T) {
	r := NewRouter(StackConfig{})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	oversized := strings.Repeat("a", maxRequestIDLength+1)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", oversized)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	got := w.Header().Get("X-Request-ID")
	if got == oversized {
		t.Fatal("oversized inbound request ID must be replaced")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("replacement request ID is not a UUID: %q", got)
	}
}

func TestStack_CapturesInboundCorrelationID(t *testing.T) {
	r := NewRouter(StackConfig{})
	var seen string
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		seen = log.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "journey-81c4f0")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if seen != "journey-81c4f0" {
		t.Fatalf("expected correlation ID in handler context, got %q", seen)
	}
}

func TestStack_DropsMalformedCorrelationID(t *testing.T) {
	r := NewRouter(StackConfig{})
	var seen string
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		seen = log.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "bad id with spaces")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if seen != "" {
		t.Fatalf("malformed correlation ID must not enter the context, got %q", seen)
	}
}

func TestStack_RecoversPanicsAsProblems(t *testing.T) {
	r := NewRouter(StackConfig{})
	r.Get("/app/dashboard", func(w http.ResponseWriter, r *http.Request) {
		panic("decision table corrupted")
	})

	req := httptest.NewRequest(http.MethodGet, "/app/dashboard", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("unexpected content type: %s", ct)
	}

	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode problem response: %v", err)
	}
	if payload["code"] != "INTERNAL" {
		t.Fatalf("unexpected code: %v", payload["code"])
	}
	if reqID, _ := payload["requestId"].(string); reqID == "" || reqID != w.Header().Get("X-Request-ID") {
		t.Fatalf("problem requestId %q does not match response header %q", reqID, w.Header().Get("X-Request-ID"))
	}
}
