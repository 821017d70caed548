package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/routegate/internal/log"
)

// Session is a successfully resolved backend session.
type Session struct {
	UserID        string
	EmailVerified bool
	ExpiresAt     time.Time
}

// TokenPair is the result of a session refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Client talks to the session backend.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds a session backend client. Pass nil to use a default
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

type sessionPayload struct {
	UserID        string    `json:"user_id"`
	EmailVerified bool      `json:"email_verified"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type refreshPayload struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// GetSession resolves the identity behind an access token.
func (c *Client) GetSession(ctx context.Context, accessToken string) (Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/session", nil)
	if err != nil {
		return Session{}, &SessionError{Sentinel: ErrBadResponse, Operation: "get_session", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	log.PropagateIDs(ctx, req)

	res, err := c.http.Do(req)
	if err != nil {
		return Session{}, transportError("get_session", err)
	}
	defer res.Body.Close()

	if err := checkStatus("get_session", res); err != nil {
		return Session{}, err
	}
	var p sessionPayload
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return Session{}, &SessionError{Sentinel: ErrBadResponse, Operation: "get_session", Status: res.StatusCode, Err: err}
	}
	if p.UserID == "" {
		return Session{}, &SessionError{Sentinel: ErrBadResponse, Operation: "get_session", Status: res.StatusCode, Code: "missing_user_id"}
	}
	return Session{UserID: p.UserID, EmailVerified: p.EmailVerified, ExpiresAt: p.ExpiresAt}, nil
}

// Refresh exchanges a refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return TokenPair{}, &SessionError{Sentinel: ErrBadResponse, Operation: "refresh", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/session/refresh", bytes.NewReader(body))
	if err != nil {
		return TokenPair{}, &SessionError{Sentinel: ErrBadResponse, Operation: "refresh", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	log.PropagateIDs(ctx, req)

	res, err := c.http.Do(req)
	if err != nil {
		return TokenPair{}, transportError("refresh", err)
	}
	defer res.Body.Close()

	if err := checkStatus("refresh", res); err != nil {
		return TokenPair{}, err
	}
	var p refreshPayload
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return TokenPair{}, &SessionError{Sentinel: ErrBadResponse, Operation: "refresh", Status: res.StatusCode, Err: err}
	}
	if p.AccessToken == "" {
		return TokenPair{}, &SessionError{Sentinel: ErrBadResponse, Operation: "refresh", Status: res.StatusCode, Code: "missing_access_token"}
	}
	return TokenPair{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, ExpiresAt: p.ExpiresAt}, nil
}

func transportError(operation string, err error) error {
	sentinel := ErrBackendUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		sentinel = ErrTimeout
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		sentinel = ErrTimeout
	}
	return &SessionError{Sentinel: sentinel, Operation: operation, Err: err}
}

func checkStatus(operation string, res *http.Response) error {
	switch {
	case res.StatusCode == http.StatusOK:
		return nil
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return &SessionError{
			Sentinel:  ErrIdentityRejected,
			Operation: operation,
			Status:    res.StatusCode,
			Code:      decodeErrorCode(res.Body),
		}
	case res.StatusCode >= 500:
		return &SessionError{Sentinel: ErrBackendError, Operation: operation, Status: res.StatusCode}
	default:
		return &SessionError{Sentinel: ErrBadResponse, Operation: operation, Status: res.StatusCode}
	}
}

func decodeErrorCode(body io.Reader) string {
	var p errorPayload
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&p); err != nil {
		return ""
	}
	return p.Error
}
