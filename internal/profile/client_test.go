package profile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ManuGH/routegate/internal/log"
)

func TestGetStatusSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/profiles/u-1/status" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("fields"); got != "role,onboarding_complete" {
			t.Errorf("fields mismatch: got=%q", got)
		}
		_, _ = w.Write([]byte(`{"role":"Admin","onboarding_complete":true,"onboarding_step":"complete"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	rec, err := c.GetStatus(context.Background(), "u-1", ReducedFields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Role != "Admin" || !rec.OnboardingComplete {
		t.Fatalf("record mismatch: %+v", rec)
	}
}

func TestGetStatusAggregateCounters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"role":"User","onboarding_complete":false,"onboarding_step":"interests","interests_count":3,"subcategories_count":0,"deal_breakers_count":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	rec, err := c.GetStatus(context.Background(), "u-1", PrimaryFields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.InterestsCount == nil || *rec.InterestsCount != 3 {
		t.Fatalf("interests_count not decoded: %+v", rec)
	}
	if rec.SubcategoriesCount == nil || *rec.SubcategoriesCount != 0 {
		t.Fatalf("subcategories_count not decoded: %+v", rec)
	}
}

func TestGetStatusPropagatesRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Request-ID"); got != "req-55" {
			t.Errorf("request ID not propagated: got=%q", got)
		}
		_, _ = w.Write([]byte(`{"role":"User","onboarding_complete":true}`))
	}))
	defer srv.Close()

	ctx := log.ContextWithRequestID(context.Background(), "req-55")
	c := NewClient(srv.URL, nil)
	if _, err := c.GetStatus(ctx, "u-1", ReducedFields); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetStatusUnknownField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unknown_field","field":"interests_count"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.GetStatus(context.Background(), "u-1", PrimaryFields)
	if !IsSchemaDrift(err) {
		t.Fatalf("expected schema drift, got %v", err)
	}
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *StoreError, got %T", err)
	}
	if storeErr.Field != "interests_count" {
		t.Fatalf("field mismatch: got=%q", storeErr.Field)
	}
}

func TestGetStatusOtherBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_user_id"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.GetStatus(context.Background(), "u-1", PrimaryFields)
	if IsSchemaDrift(err) {
		t.Fatalf("plain 400 must not classify as drift: %v", err)
	}
	if !errors.Is(err, ErrBadResponse) {
		t.Fatalf("expected ErrBadResponse, got %v", err)
	}
}

func TestGetStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.GetStatus(context.Background(), "missing", PrimaryFields)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetStatusServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.GetStatus(context.Background(), "u-1", PrimaryFields)
	if !errors.Is(err, ErrStoreError) {
		t.Fatalf("expected ErrStoreError, got %v", err)
	}
}

func TestGetStatusTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, nil)
	_, err := c.GetStatus(context.Background(), "u-1", PrimaryFields)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
