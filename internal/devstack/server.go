// SPDX-License-Identifier: MIT

package devstack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/routegate/internal/log"
	"github.com/ManuGH/routegate/internal/ratelimit"
)

// Endpoint names for the fault injection hooks.
const (
	EndpointSession       = "session"
	EndpointRefresh       = "refresh"
	EndpointProfileStatus = "profile_status"
)

const defaultSessionTTL = 30 * time.Minute

// Server emulates the session backend and the profile store on one listener.
// Both protocols live on disjoint paths, so a single devstack instance can
// back both base URLs of a gate.
type Server struct {
	store  Store
	logger zerolog.Logger
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	delay    map[string]time.Duration
	failures map[string]int
	dropped  map[string]bool
	limiter  *ratelimit.Limiter
}

// ServerOption adjusts a Server.
type ServerOption func(*Server)

// WithSessionTTL sets the expiry horizon for refreshed sessions.
func WithSessionTTL(ttl time.Duration) ServerOption {
	return func(s *Server) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewServer wraps a store with the HTTP protocol surface.
func NewServer(store Store, opts ...ServerOption) *Server {
	s := &Server{
		store:    store,
		logger:   log.WithComponent("devstack"),
		ttl:      defaultSessionTTL,
		now:      time.Now,
		delay:    make(map[string]time.Duration),
		failures: make(map[string]int),
		dropped:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed writes the default fixture set into the server's store.
func (s *Server) Seed(ctx context.Context) error {
	return Seed(ctx, s.store, s.now())
}

// Handler returns the HTTP surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/session", s.handleSession)
	r.Post("/v1/session/refresh", s.handleRefresh)
	r.Get("/v1/profiles/{userID}/status", s.handleProfileStatus)
	return r
}

// SetDelay sets an artificial latency for an endpoint.
func (s *Server) SetDelay(endpoint string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay[endpoint] = d
}

// SetFailures sets the number of injected 500s before an endpoint answers
// normally again.
func (s *Server) SetFailures(endpoint string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] = count
}

// Throttle puts a rate limiter in front of every endpoint; exceeding it
// answers 429 with Retry-After, the way a throttled production backend would.
func (s *Server) Throttle(cfg ratelimit.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = ratelimit.New(cfg)
}

// DropStatusFields marks status fields as unknown, emulating an older store
// schema. Requests asking for a dropped field get the unknown_field rejection
// that drives the client's reduced-field fallback.
func (s *Server) DropStatusFields(fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fields {
		s.dropped[f] = true
	}
}

// Reset clears all fault injection state.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = make(map[string]time.Duration)
	s.failures = make(map[string]int)
	s.dropped = make(map[string]bool)
	s.limiter = nil
}

// injectFault applies the configured faults for an endpoint. It reports true
// when a fault consumed the request. Order: failure budget, throttle, latency.
func (s *Server) injectFault(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	s.mu.Lock()
	if n := s.failures[endpoint]; n > 0 {
		s.failures[endpoint] = n - 1
		s.mu.Unlock()
		s.logger.Debug().Str("endpoint", endpoint).Msg("injecting failure")
		writeError(w, http.StatusInternalServerError, "injected_failure")
		return true
	}
	d := s.delay[endpoint]
	limiter := s.limiter
	s.mu.Unlock()

	if limiter != nil && !limiter.Allow(ratelimit.ClientIP(r), endpoint) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "throttled")
		return true
	}

	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-r.Context().Done():
			return true
		case <-t.C:
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.injectFault(w, r, EndpointSession) {
		return
	}

	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	rec, err := s.store.SessionByAccessToken(r.Context(), token)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("event", "devstack.store_failed").Msg("session lookup failed")
		writeError(w, http.StatusInternalServerError, "store_failure")
		return
	}

	if rec.Expired(s.now()) {
		writeError(w, http.StatusUnauthorized, "session_expired")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":        rec.UserID,
		"email_verified": rec.EmailVerified,
		"expires_at":     rec.ExpiresAt,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.injectFault(w, r, EndpointRefresh) {
		return
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil || body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "malformed_request")
		return
	}

	rec, err := s.store.SessionByRefreshToken(r.Context(), body.RefreshToken)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("event", "devstack.store_failed").Msg("refresh lookup failed")
		writeError(w, http.StatusInternalServerError, "store_failure")
		return
	}

	rec.AccessToken = uuid.NewString()
	rec.RefreshToken = uuid.NewString()
	rec.ExpiresAt = s.now().Add(s.ttl)
	if err := s.store.PutSession(r.Context(), rec); err != nil {
		s.logger.Error().Err(err).Str("event", "devstack.store_failed").Msg("token rotation failed")
		writeError(w, http.StatusInternalServerError, "store_failure")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  rec.AccessToken,
		"refresh_token": rec.RefreshToken,
		"expires_at":    rec.ExpiresAt,
	})
}

// handleProfileStatus serves a field-filtered status projection. An absent or
// empty fields parameter serves every field.
func (s *Server) handleProfileStatus(w http.ResponseWriter, r *http.Request) {
	if s.injectFault(w, r, EndpointProfileStatus) {
		return
	}

	fields := statusFields
	if raw := r.URL.Query().Get("fields"); raw != "" {
		parts := strings.Split(raw, ",")
		fields = make([]string, 0, len(parts))
		for _, f := range parts {
			fields = append(fields, strings.TrimSpace(f))
		}
	}

	s.mu.Lock()
	dropped := make(map[string]bool, len(s.dropped))
	for f := range s.dropped {
		dropped[f] = true
	}
	s.mu.Unlock()

	for _, f := range fields {
		if _, known := fieldValue(ProfileRecord{}, f); !known || dropped[f] {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "unknown_field",
				"field": f,
			})
			return
		}
	}

	userID := chi.URLParam(r, "userID")
	rec, err := s.store.ProfileByUser(r.Context(), userID)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "profile_not_found")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("event", "devstack.store_failed").Msg("profile lookup failed")
		writeError(w, http.StatusInternalServerError, "store_failure")
		return
	}

	resp := make(map[string]any, len(fields))
	for _, f := range fields {
		v, _ := fieldValue(rec, f)
		resp[f] = v
	}
	writeJSON(w, http.StatusOK, resp)
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode string) {
	writeJSON(w, code, map[string]string{"error": errCode})
}
