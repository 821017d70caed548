// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"
)

// mergeEnvConfig merges environment variables into AppConfig.
// ENV variables have the highest precedence.
// Uses consistent ParseBool/ParseInt/ParseDuration helpers from env.go.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	l.mergeEnvCore(cfg)
	l.mergeEnvSession(cfg)
	l.mergeEnvProfile(cfg)
	l.mergeEnvGuard(cfg)
	l.mergeEnvRoutes(cfg)
	l.mergeEnvAPI(cfg)
	l.mergeEnvServer(cfg)
	l.mergeEnvMetrics(cfg)
	l.mergeEnvTracing(cfg)
	l.mergeEnvTLS(cfg)
	l.mergeEnvNetwork(cfg)
	l.mergeEnvRateLimiting(cfg)
	l.mergeEnvFeatureFlags(cfg)
}

func (l *Loader) mergeEnvCore(cfg *AppConfig) {
	cfg.DataDir = l.envString("ROUTEGATE_DATA", cfg.DataDir)
	cfg.LogLevel = l.envString("ROUTEGATE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("ROUTEGATE_LOG_SERVICE", cfg.LogService)
	cfg.Mode = strings.ToLower(strings.TrimSpace(l.envString("ROUTEGATE_MODE", cfg.Mode)))
	cfg.UpstreamURL = l.envString("ROUTEGATE_UPSTREAM_URL", cfg.UpstreamURL)
	cfg.TrustedProxies = l.envString("ROUTEGATE_TRUSTED_PROXIES", cfg.TrustedProxies)
}

func (l *Loader) mergeEnvSession(cfg *AppConfig) {
	cfg.Session.BaseURL = l.envString("ROUTEGATE_SESSION_BASE", cfg.Session.BaseURL)
	cfg.Session.Timeout = l.envDuration("ROUTEGATE_SESSION_TIMEOUT", cfg.Session.Timeout)
	cfg.Session.Retries = l.envInt("ROUTEGATE_SESSION_RETRIES", cfg.Session.Retries)
	cfg.Session.Backoff = l.envDuration("ROUTEGATE_SESSION_BACKOFF", cfg.Session.Backoff)
	cfg.Session.MaxBackoff = l.envDuration("ROUTEGATE_SESSION_MAX_BACKOFF", cfg.Session.MaxBackoff)
	cfg.Session.RefreshSkew = l.envDuration("ROUTEGATE_SESSION_REFRESH_SKEW", cfg.Session.RefreshSkew)
}

func (l *Loader) mergeEnvProfile(cfg *AppConfig) {
	cfg.Profile.BaseURL = l.envString("ROUTEGATE_PROFILE_BASE", cfg.Profile.BaseURL)
	cfg.Profile.Timeout = l.envDuration("ROUTEGATE_PROFILE_TIMEOUT", cfg.Profile.Timeout)
	cfg.Profile.BreakerThreshold = l.envInt("ROUTEGATE_PROFILE_BREAKER_THRESHOLD", cfg.Profile.BreakerThreshold)
	cfg.Profile.BreakerCooldown = l.envDuration("ROUTEGATE_PROFILE_BREAKER_COOLDOWN", cfg.Profile.BreakerCooldown)
}

func (l *Loader) mergeEnvGuard(cfg *AppConfig) {
	cfg.Guard.Secret = l.envString("ROUTEGATE_GUARD_SECRET", cfg.Guard.Secret)
	cfg.Guard.Window = l.envDuration("ROUTEGATE_GUARD_WINDOW", cfg.Guard.Window)
	cfg.Guard.Threshold = l.envInt("ROUTEGATE_GUARD_THRESHOLD", cfg.Guard.Threshold)
	cfg.Guard.CookieSecure = l.envBool("ROUTEGATE_COOKIE_SECURE", cfg.Guard.CookieSecure)
	cfg.Guard.GuestLandingFrom = l.envString("ROUTEGATE_GUEST_LANDING_FROM", cfg.Guard.GuestLandingFrom)
	cfg.Guard.GuestLandingTo = l.envString("ROUTEGATE_GUEST_LANDING_TO", cfg.Guard.GuestLandingTo)
}

func (l *Loader) mergeEnvRoutes(cfg *AppConfig) {
	cfg.Routes.Version = l.envString("ROUTEGATE_ROUTES_VERSION", cfg.Routes.Version)
	if prefixes := l.envString("ROUTEGATE_PROTECTED_PREFIXES", ""); prefixes != "" {
		cfg.Routes.ProtectedPrefixes = parseCommaSeparated(prefixes, cfg.Routes.ProtectedPrefixes)
	}
}

func (l *Loader) mergeEnvAPI(cfg *AppConfig) {
	cfg.APIToken = l.envString("ROUTEGATE_API_TOKEN", cfg.APIToken)
	cfg.APITokenScopes = parseCommaSeparated(l.envString("ROUTEGATE_API_TOKEN_SCOPES", ""), cfg.APITokenScopes)
	if tokens, err := parseScopedTokens("ROUTEGATE_API_TOKENS", l.envString("ROUTEGATE_API_TOKENS", ""), cfg.APITokens); err != nil {
		cfg.apiTokensParseErr = err
	} else {
		cfg.APITokens = tokens
	}
	cfg.APIListenAddr = l.envString("ROUTEGATE_LISTEN", cfg.APIListenAddr)

	// CORS: ENV overrides YAML if set
	if rawOrigins, ok := l.envLookup("ROUTEGATE_ALLOWED_ORIGINS"); ok {
		if strings.TrimSpace(rawOrigins) != "" {
			cfg.AllowedOrigins = parseCommaSeparated(rawOrigins, nil)
		}
	}
}

func (l *Loader) mergeEnvServer(cfg *AppConfig) {
	cfg.Server.ReadTimeout = l.envDuration("ROUTEGATE_SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = l.envDuration("ROUTEGATE_SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = l.envDuration("ROUTEGATE_SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.MaxHeaderBytes = l.envInt("ROUTEGATE_SERVER_MAX_HEADER_BYTES", cfg.Server.MaxHeaderBytes)
	cfg.Server.ShutdownTimeout = l.envDuration("ROUTEGATE_SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
}

func (l *Loader) mergeEnvMetrics(cfg *AppConfig) {
	metricsAddr := l.envString("ROUTEGATE_METRICS_LISTEN", "")
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
		cfg.MetricsEnabled = true
	}
}

func (l *Loader) mergeEnvTracing(cfg *AppConfig) {
	cfg.Tracing.Enabled = l.envBool("ROUTEGATE_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Endpoint = l.envString("ROUTEGATE_TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.Protocol = l.envString("ROUTEGATE_TRACING_PROTOCOL", cfg.Tracing.Protocol)
	cfg.Tracing.Insecure = l.envBool("ROUTEGATE_TRACING_INSECURE", cfg.Tracing.Insecure)
}

func (l *Loader) mergeEnvTLS(cfg *AppConfig) {
	cfg.TLSEnabled = l.envBool("ROUTEGATE_TLS_ENABLED", cfg.TLSEnabled)
	cfg.TLSCert = l.envString("ROUTEGATE_TLS_CERT", cfg.TLSCert)
	cfg.TLSKey = l.envString("ROUTEGATE_TLS_KEY", cfg.TLSKey)
	cfg.ForceHTTPS = l.envBool("ROUTEGATE_FORCE_HTTPS", cfg.ForceHTTPS)
}

func (l *Loader) mergeEnvNetwork(cfg *AppConfig) {
	cfg.Network.Outbound.Enabled = l.envBool("ROUTEGATE_OUTBOUND_ENABLED", cfg.Network.Outbound.Enabled)
	cfg.Network.Outbound.Allow.Hosts = parseCommaSeparated(l.envString("ROUTEGATE_OUTBOUND_ALLOW_HOSTS", ""), cfg.Network.Outbound.Allow.Hosts)
	cfg.Network.Outbound.Allow.CIDRs = parseCommaSeparated(l.envString("ROUTEGATE_OUTBOUND_ALLOW_CIDRS", ""), cfg.Network.Outbound.Allow.CIDRs)
	cfg.Network.Outbound.Allow.Ports = parseCommaSeparatedInts(l.envString("ROUTEGATE_OUTBOUND_ALLOW_PORTS", ""), cfg.Network.Outbound.Allow.Ports)
	cfg.Network.Outbound.Allow.Schemes = parseCommaSeparated(l.envString("ROUTEGATE_OUTBOUND_ALLOW_SCHEMES", ""), cfg.Network.Outbound.Allow.Schemes)
}

func (l *Loader) mergeEnvRateLimiting(cfg *AppConfig) {
	cfg.RateLimitEnabled = l.envBool("ROUTEGATE_RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitGlobal = l.envInt("ROUTEGATE_RATE_LIMIT_GLOBAL", cfg.RateLimitGlobal)
	cfg.RateLimitBurst = l.envInt("ROUTEGATE_RATE_LIMIT_BURST", cfg.RateLimitBurst)
	if whitelist := l.envString("ROUTEGATE_RATE_LIMIT_WHITELIST", ""); whitelist != "" {
		cfg.RateLimitWhitelist = parseCommaSeparated(whitelist, cfg.RateLimitWhitelist)
	}
}

func (l *Loader) mergeEnvFeatureFlags(cfg *AppConfig) {
	cfg.ReadyStrict = l.envBool("ROUTEGATE_READY_STRICT", cfg.ReadyStrict)
}
