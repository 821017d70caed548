// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net"

	rglog "github.com/ManuGH/routegate/internal/log"
	"github.com/go-chi/chi/v5"
)

// StackConfig configures the shared ingress middleware stack. Both
// serving modes build their router through it so cross-cutting behavior
// cannot drift between them.
type StackConfig struct {
	EnableCORS           bool
	AllowedOrigins       []string
	CORSAllowCredentials bool

	// CSRF only matters when browsers talk to the gate directly (proxy
	// mode). The forwardauth decision API is driven by the edge proxy
	// and token-authenticated operators, so it stays off there.
	EnableCSRF bool

	EnableSecurityHeaders bool
	CSP                   string

	// TrustedProxies are the peers allowed to set X-Forwarded-Proto
	// and client IP headers.
	TrustedProxies []*net.IPNet

	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	EnableRateLimit    bool
	RateLimitEnabled   bool
	RateLimitGlobalRPS int
	RateLimitBurst     int
	RateLimitWhitelist []string
}

// NewRouter returns a chi router with the full stack already applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack installs the stack in its fixed order. Recovery and
// request ID wrap everything else, so every later layer logs with an
// ID and downstream panics still become problem responses. CORS runs
// before CSRF to keep preflights answerable. Rate limiting sits
// innermost, so rejected requests are still counted, traced and
// logged.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.EnableCORS {
		r.Use(CORS(cfg.AllowedOrigins, cfg.CORSAllowCredentials))
	}
	if cfg.EnableCSRF {
		r.Use(CSRFProtection(cfg.AllowedOrigins))
	}
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders(cfg.CSP, cfg.TrustedProxies))
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(rglog.Middleware())
	}
	if cfg.EnableRateLimit {
		r.Use(GlobalRateLimit(cfg.RateLimitEnabled, cfg.RateLimitGlobalRPS, cfg.RateLimitBurst, cfg.RateLimitWhitelist))
	}
}
