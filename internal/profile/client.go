package profile

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/routegate/internal/log"
)

// PrimaryFields is the aggregate field set of the one-call status query.
var PrimaryFields = []string{
	"role", "onboarding_complete", "onboarding_step",
	"interests_count", "subcategories_count", "deal_breakers_count",
}

// ReducedFields is the fallback field set used after a schema drift rejection.
var ReducedFields = []string{"role", "onboarding_complete"}

// Record is the raw store row before normalization. Counter fields are only
// present when the primary field set was served.
type Record struct {
	Role               string `json:"role"`
	OnboardingComplete bool   `json:"onboarding_complete"`
	OnboardingStep     string `json:"onboarding_step"`
	InterestsCount     *int   `json:"interests_count"`
	SubcategoriesCount *int   `json:"subcategories_count"`
	DealBreakersCount  *int   `json:"deal_breakers_count"`
}

// Client talks to the profile store.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a profile store client. Pass nil to use a default
// http.Client; the daemon injects one carrying the otel transport and the
// outbound allowlist dialer.
func NewClient(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: httpClient,
	}
}

type storeErrorPayload struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// GetStatus fetches the status row for a user, asking the store for exactly
// the given fields.
func (c *Client) GetStatus(ctx context.Context, userID string, fields []string) (Record, error) {
	u := c.base + "/v1/profiles/" + url.PathEscape(userID) + "/status?fields=" + url.QueryEscape(strings.Join(fields, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Record{}, &StoreError{Sentinel: ErrBadResponse, Operation: "get_status", Err: err}
	}
	log.PropagateIDs(ctx, req)

	res, err := c.http.Do(req)
	if err != nil {
		sentinel := ErrStoreUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			sentinel = ErrTimeout
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			sentinel = ErrTimeout
		}
		return Record{}, &StoreError{Sentinel: sentinel, Operation: "get_status", Err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		var rec Record
		if err := json.NewDecoder(res.Body).Decode(&rec); err != nil {
			return Record{}, &StoreError{Sentinel: ErrBadResponse, Operation: "get_status", Status: res.StatusCode, Err: err}
		}
		return rec, nil
	case res.StatusCode == http.StatusNotFound:
		return Record{}, &StoreError{Sentinel: ErrNotFound, Operation: "get_status", Status: res.StatusCode}
	case res.StatusCode == http.StatusBadRequest:
		payload := decodeStoreError(res.Body)
		if payload.Error == "unknown_field" {
			return Record{}, &StoreError{Sentinel: ErrUnknownField, Operation: "get_status", Status: res.StatusCode, Field: payload.Field}
		}
		return Record{}, &StoreError{Sentinel: ErrBadResponse, Operation: "get_status", Status: res.StatusCode, Field: payload.Field}
	case res.StatusCode >= 500:
		return Record{}, &StoreError{Sentinel: ErrStoreError, Operation: "get_status", Status: res.StatusCode}
	default:
		return Record{}, &StoreError{Sentinel: ErrBadResponse, Operation: "get_status", Status: res.StatusCode}
	}
}

func decodeStoreError(body io.Reader) storeErrorPayload {
	var p storeErrorPayload
	_ = json.NewDecoder(io.LimitReader(body, 4096)).Decode(&p)
	return p
}
