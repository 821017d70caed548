// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package gate serves the access decision API. It binds route classification,
// identity and profile resolution, the rule engine and the redirect loop guard
// into one HTTP surface with a forward-auth mode and an embedded proxy mode.
package gate

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/routegate/internal/config"
	"github.com/ManuGH/routegate/internal/gate/authz"
	"github.com/ManuGH/routegate/internal/gate/middleware"
	"github.com/ManuGH/routegate/internal/guard"
	"github.com/ManuGH/routegate/internal/health"
	"github.com/ManuGH/routegate/internal/identity"
	"github.com/ManuGH/routegate/internal/log"
	"github.com/ManuGH/routegate/internal/profile"
	"github.com/ManuGH/routegate/internal/resilience"
	"github.com/ManuGH/routegate/internal/routes"
)

// Server evaluates access decisions over HTTP.
type Server struct {
	mu  sync.RWMutex
	cfg config.AppConfig

	// table holds the active compiled route table. Reloads swap the pointer;
	// in-flight requests keep the snapshot they loaded.
	table atomic.Pointer[routes.Table]

	engine *guard.Engine
	loop   *guard.LoopGuard
	codec  *guard.TokenCodec
	secret []byte

	httpClient *http.Client
	sessions   identity.SessionAPI
	store      profile.StoreAPI
	resolver   *identity.Resolver
	profiles   *profile.Provider

	healthManager *health.Manager

	// now pins the loop guard clock in tests.
	now func() time.Time
}

// Option overrides a Server collaborator, mostly for tests.
type Option func(*Server)

// WithHTTPClient sets the outbound client used for both backends. The daemon
// injects one carrying the otel transport and the outbound allowlist.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) { s.httpClient = c }
}

// WithSessionAPI replaces the session backend client.
func WithSessionAPI(api identity.SessionAPI) Option {
	return func(s *Server) { s.sessions = api }
}

// WithStoreAPI replaces the profile store client.
func WithStoreAPI(api profile.StoreAPI) Option {
	return func(s *Server) { s.store = api }
}

// New builds a Server from configuration. It compiles the route table, derives
// the engine parameters and wires the backend clients.
func New(cfg config.AppConfig, opts ...Option) (*Server, error) {
	s := &Server{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	table, err := routes.Compile(cfg.Routes.Version, cfg.Routes.Tables, cfg.Routes.ProtectedPrefixes)
	if err != nil {
		return nil, fmt.Errorf("gate: %w", err)
	}
	s.table.Store(table)

	s.engine = guard.NewEngine(engineParams(cfg))
	s.loop = guard.NewLoopGuard(cfg.Guard.Window, cfg.Guard.Threshold)

	secret := []byte(cfg.Guard.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("gate: generate guard secret: %w", err)
		}
		l := log.WithComponent("gate")
		l.Warn().
			Str("event", "gate.ephemeral_secret").
			Msg("guard secret not configured, generated an ephemeral one; guard cookies will not survive a restart")
	}
	s.secret = secret
	s.codec = guard.NewTokenCodec(secret)

	if s.sessions == nil {
		s.sessions = identity.NewClient(cfg.Session.BaseURL, s.httpClient)
	}
	s.resolver = identity.NewResolver(s.sessions, identity.Options{
		Timeout:     cfg.Session.Timeout,
		Retries:     cfg.Session.Retries,
		Backoff:     cfg.Session.Backoff,
		MaxBackoff:  cfg.Session.MaxBackoff,
		RefreshSkew: cfg.Session.RefreshSkew,
	})

	if s.store == nil {
		s.store = profile.NewClient(cfg.Profile.BaseURL, s.httpClient)
	}
	breaker := resilience.NewCircuitBreaker("profile_store", cfg.Profile.BreakerThreshold, cfg.Profile.BreakerCooldown)
	s.profiles = profile.NewProvider(s.store, breaker, cfg.Profile.Timeout)

	s.healthManager = health.NewManager(cfg.Version)
	s.healthManager.RegisterChecker(health.NewRouteTableChecker(func() (string, int) {
		t := s.table.Load()
		count := 0
		for _, patterns := range t.Patterns() {
			count += len(patterns)
		}
		return t.Version(), count
	}))
	if cfg.Session.BaseURL != "" {
		s.healthManager.RegisterChecker(health.NewBackendChecker("session_backend", s.probeURL(cfg.Session.BaseURL), cfg.ReadyStrict))
	}
	if cfg.Profile.BaseURL != "" {
		s.healthManager.RegisterChecker(health.NewBackendChecker("profile_store", s.probeURL(cfg.Profile.BaseURL), cfg.ReadyStrict))
	}
	if cfg.TLSEnabled {
		s.healthManager.RegisterChecker(health.NewFileChecker("tls_cert", cfg.TLSCert))
		s.healthManager.RegisterChecker(health.NewFileChecker("tls_key", cfg.TLSKey))
	}

	return s, nil
}

// engineParams derives the rule engine parameters from configuration. Only the
// guest landing alias is configurable today; the rest rides on the defaults.
func engineParams(cfg config.AppConfig) guard.Params {
	return guard.Params{
		GuestLandingFrom: cfg.Guard.GuestLandingFrom,
		GuestLandingTo:   cfg.Guard.GuestLandingTo,
	}
}

// probeURL builds a reachability probe for a backend base URL. Any HTTP
// response counts as reachable; only transport failures report an error.
func (s *Server) probeURL(base string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, base, nil)
		if err != nil {
			return err
		}
		client := s.httpClient
		if client == nil {
			client = http.DefaultClient
		}
		res, err := client.Do(req)
		if err != nil {
			return err
		}
		return res.Body.Close()
	}
}

// ApplySnapshot swaps in a reloaded configuration. The route table and the
// engine parameters take effect immediately; listen addresses and middleware
// settings require a restart.
func (s *Server) ApplySnapshot(cfg config.AppConfig) error {
	table, err := routes.Compile(cfg.Routes.Version, cfg.Routes.Tables, cfg.Routes.ProtectedPrefixes)
	if err != nil {
		return fmt.Errorf("gate: reload rejected: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.table.Load()
	s.table.Store(table)
	s.engine = guard.NewEngine(engineParams(cfg))
	s.loop = guard.NewLoopGuard(cfg.Guard.Window, cfg.Guard.Threshold)

	// Keep the boot-time ephemeral secret when the reload still has none,
	// otherwise every in-flight guard cookie would invalidate on SIGHUP.
	if cfg.Guard.Secret != "" && !bytes.Equal([]byte(cfg.Guard.Secret), s.secret) {
		s.secret = []byte(cfg.Guard.Secret)
		s.codec = guard.NewTokenCodec(s.secret)
	}

	s.cfg = cfg

	l := log.WithComponent("gate")
	l.Info().
		Str("event", "gate.reloaded").
		Str("old_table", old.Version()).
		Str("new_table", table.Version()).
		Msg("configuration snapshot applied")
	return nil
}

// HealthManager exposes the probe manager for daemon wiring.
func (s *Server) HealthManager() *health.Manager {
	return s.healthManager
}

// TableInfo reports the active route table version and pattern count.
func (s *Server) TableInfo() (string, int) {
	t := s.table.Load()
	count := 0
	for _, patterns := range t.Patterns() {
		count += len(patterns)
	}
	return t.Version(), count
}

// Handler builds the complete HTTP surface: middleware stack, system probes,
// the decision API and, in proxy mode, the embedded reverse proxy.
func (s *Server) Handler() (http.Handler, error) {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:           true,
		AllowedOrigins:       cfg.AllowedOrigins,
		CORSAllowCredentials: false,

		// The browser only talks to the gate directly in proxy mode.
		EnableCSRF: cfg.Mode == config.ModeProxy,

		EnableSecurityHeaders: true,
		CSP:                   middleware.DefaultCSP,
		TrustedProxies:        s.parsedTrustedProxies(),

		EnableMetrics:  true,
		TracingService: "routegate",
		EnableLogging:  true,

		EnableRateLimit:    true,
		RateLimitEnabled:   cfg.RateLimitEnabled,
		RateLimitGlobalRPS: cfg.RateLimitGlobal,
		RateLimitBurst:     cfg.RateLimitBurst,
		RateLimitWhitelist: cfg.RateLimitWhitelist,
	})

	s.registerSystemRoutes(r)
	s.registerGateRoutes(r)

	if cfg.Mode == config.ModeProxy {
		proxy, err := s.newProxyHandler(cfg.UpstreamURL)
		if err != nil {
			return nil, err
		}
		r.Handle("/*", proxy)
	}

	return r, nil
}

func (s *Server) registerSystemRoutes(r chi.Router) {
	r.Get("/healthz", s.healthManager.ServeHealth)
	r.Get("/readyz", s.healthManager.ServeReady)
}

func (s *Server) registerGateRoutes(r chi.Router) {
	// Scopes come from the authz policy registry so the router, the OpenAPI
	// document and the enforcement can never drift apart. Operations the
	// registry does not know fail closed to admin.
	register := func(path, operationID string, h http.HandlerFunc) {
		scopes, ok := authz.RequiredScopes(operationID)
		if !ok {
			scopes = []string{string(ScopeGateAdmin)}
		}
		if len(scopes) == 0 {
			r.Get(path, h)
			return
		}
		required := make([]Scope, 0, len(scopes))
		for _, scope := range scopes {
			required = append(required, Scope(scope))
		}
		r.With(s.scopeMiddleware(required...)).Get(path, h)
	}

	// The decide endpoint is the data plane: the edge proxy calls it for
	// every end-user request, so it carries no operator token.
	register("/gate/v1/decide", "Decide", s.handleDecide)
	register("/gate/v1/routes", "GetRoutes", s.handleRoutes)
	register("/gate/v1/explain", "Explain", s.handleExplain)
}

func (s *Server) parsedTrustedProxies() []*net.IPNet {
	s.mu.RLock()
	raw := s.cfg.TrustedProxies
	s.mu.RUnlock()

	list := splitCSVNonEmpty(raw)
	if len(list) == 0 {
		return nil
	}
	proxies, err := middleware.ParseCIDRs(list)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("invalid trusted proxies configuration, ignoring value")
		return nil
	}
	return proxies
}

func splitCSVNonEmpty(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
