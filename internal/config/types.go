// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"time"
)

// Serving modes for the gate.
const (
	ModeForwardAuth = "forwardauth"
	ModeProxy       = "proxy"
)

// FileConfig represents the YAML configuration structure
type FileConfig struct {
	Version       string `yaml:"version,omitempty"`
	ConfigVersion string `yaml:"configVersion,omitempty"`
	DataDir       string `yaml:"dataDir,omitempty"`
	LogLevel      string `yaml:"logLevel,omitempty"`
	LogService    string `yaml:"logService,omitempty"`

	Mode        string `yaml:"mode,omitempty"` // "forwardauth" or "proxy"
	UpstreamURL string `yaml:"upstreamUrl,omitempty"`

	ReadyStrict    *bool  `yaml:"readyStrict,omitempty"`
	TrustedProxies string `yaml:"trustedProxies,omitempty"`

	Session SessionFileConfig `yaml:"session"`
	Profile ProfileFileConfig `yaml:"profile"`
	Guard   GuardFileConfig   `yaml:"guard,omitempty"`
	Routes  RoutesFileConfig  `yaml:"routes,omitempty"`
	API     APIConfig         `yaml:"api"`
	Server  ServerFileConfig  `yaml:"server,omitempty"`
	Network NetworkFileConfig `yaml:"network,omitempty"`
	Metrics MetricsConfig     `yaml:"metrics,omitempty"`
	Tracing TracingFileConfig `yaml:"tracing,omitempty"`
	TLS     TLSConfig         `yaml:"tls,omitempty"`
}

// SessionFileConfig holds session backend client configuration
type SessionFileConfig struct {
	BaseURL     string `yaml:"baseUrl"`
	Timeout     string `yaml:"timeout,omitempty"` // e.g. "5s"
	Retries     *int   `yaml:"retries,omitempty"`
	Backoff     string `yaml:"backoff,omitempty"`     // e.g. "1s"
	MaxBackoff  string `yaml:"maxBackoff,omitempty"`  // e.g. "4s"
	RefreshSkew string `yaml:"refreshSkew,omitempty"` // e.g. "30s"
}

// ProfileFileConfig holds profile store client configuration
type ProfileFileConfig struct {
	BaseURL string            `yaml:"baseUrl"`
	Timeout string            `yaml:"timeout,omitempty"` // e.g. "3s"
	Breaker BreakerFileConfig `yaml:"breaker,omitempty"`
}

// BreakerFileConfig holds circuit breaker tuning for the profile store
type BreakerFileConfig struct {
	Threshold *int   `yaml:"threshold,omitempty"`
	Cooldown  string `yaml:"cooldown,omitempty"` // e.g. "30s"
}

// GuardFileConfig holds redirect loop guard configuration
type GuardFileConfig struct {
	Secret       string                 `yaml:"secret,omitempty"`
	Window       string                 `yaml:"window,omitempty"` // e.g. "5s"
	Threshold    *int                   `yaml:"threshold,omitempty"`
	CookieSecure *bool                  `yaml:"cookieSecure,omitempty"`
	GuestLanding GuestLandingFileConfig `yaml:"guestLanding,omitempty"`
}

// GuestLandingFileConfig defines the anonymous landing alias pair
type GuestLandingFileConfig struct {
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`
}

// RoutesFileConfig holds the route classification tables.
// Keys of Tables are category names ("passwordReset", "authPage",
// "adminRestricted", "businessRestricted", "onboarding", "protected",
// "public"); values are path patterns.
type RoutesFileConfig struct {
	Version           string              `yaml:"version,omitempty"`
	Tables            map[string][]string `yaml:"tables,omitempty"`
	ProtectedPrefixes []string            `yaml:"protectedPrefixes,omitempty"`
}

// ScopedToken defines a token and its associated scopes.
type ScopedToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
	User   string   `yaml:"user,omitempty"`
}

// APIConfig holds ops API configuration
type APIConfig struct {
	Token          string          `yaml:"token,omitempty"`
	TokenScopes    []string        `yaml:"tokenScopes,omitempty"`
	Tokens         []ScopedToken   `yaml:"tokens,omitempty"`
	ListenAddr     string          `yaml:"listenAddr,omitempty"`
	RateLimit      RateLimitConfig `yaml:"rateLimit,omitempty"`
	AllowedOrigins []string        `yaml:"allowedOrigins,omitempty"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled   *bool    `yaml:"enabled,omitempty"`   // Pointer to distinguish from zero value
	Global    *int     `yaml:"global,omitempty"`    // Requests per second
	Burst     *int     `yaml:"burst,omitempty"`     // Burst capacity
	Whitelist []string `yaml:"whitelist,omitempty"` // CIDRs or IPs to exempt
}

// ServerFileConfig holds HTTP server tuning (string durations)
type ServerFileConfig struct {
	ReadTimeout     string `yaml:"readTimeout,omitempty"`
	WriteTimeout    string `yaml:"writeTimeout,omitempty"`
	IdleTimeout     string `yaml:"idleTimeout,omitempty"`
	MaxHeaderBytes  *int   `yaml:"maxHeaderBytes,omitempty"`
	ShutdownTimeout string `yaml:"shutdownTimeout,omitempty"`
}

// NetworkFileConfig holds network policy configuration.
type NetworkFileConfig struct {
	Outbound OutboundFileConfig `yaml:"outbound,omitempty"`
}

// OutboundFileConfig controls outbound HTTP(S) access.
type OutboundFileConfig struct {
	Enabled *bool             `yaml:"enabled,omitempty"`
	Allow   OutboundAllowlist `yaml:"allow,omitempty"`
}

// OutboundAllowlist defines outbound network allowlist rules.
type OutboundAllowlist struct {
	Hosts   []string `yaml:"hosts,omitempty"`
	CIDRs   []string `yaml:"cidrs,omitempty"`
	Ports   []int    `yaml:"ports,omitempty"`
	Schemes []string `yaml:"schemes,omitempty"`
}

// MetricsConfig holds Prometheus metrics configuration
// Uses pointer for Enabled to distinguish between "not set" and "explicitly disabled"
type MetricsConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

// TracingFileConfig holds OpenTelemetry exporter configuration
type TracingFileConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Protocol string `yaml:"protocol,omitempty"` // "grpc" or "http"
	Insecure *bool  `yaml:"insecure,omitempty"`
}

// TLSConfig holds TLS settings
type TLSConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	ForceHTTPS *bool  `yaml:"forceHTTPS,omitempty"`
}

// SessionSettings holds the runtime session backend settings (using time.Duration)
type SessionSettings struct {
	BaseURL     string
	Timeout     time.Duration
	Retries     int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	RefreshSkew time.Duration
}

// ProfileSettings holds the runtime profile store settings
type ProfileSettings struct {
	BaseURL          string
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// GuardSettings holds the runtime loop guard settings
type GuardSettings struct {
	Secret           string
	Window           time.Duration
	Threshold        int
	CookieSecure     bool
	GuestLandingFrom string
	GuestLandingTo   string
}

// RoutesSettings holds the runtime route table settings
type RoutesSettings struct {
	Version           string
	Tables            map[string][]string
	ProtectedPrefixes []string
}

// NetworkConfig holds outbound network policy.
type NetworkConfig struct {
	Outbound OutboundConfig
}

// OutboundConfig controls outbound HTTP(S) allowlist enforcement.
type OutboundConfig struct {
	Enabled bool
	Allow   OutboundAllowlist
}

// TracingSettings holds runtime tracing settings
type TracingSettings struct {
	Enabled  bool
	Endpoint string
	Protocol string
	Insecure bool
}

// AppConfig holds all configuration for the application
type AppConfig struct {
	Version       string
	ConfigVersion string
	DataDir       string
	LogLevel      string
	LogService    string

	// Serving mode: "forwardauth" (decision endpoint for an edge proxy) or
	// "proxy" (embedded reverse proxy in front of the upstream app).
	Mode        string
	UpstreamURL string

	APIToken          string
	APITokenScopes    []string
	APITokens         []ScopedToken
	apiTokensParseErr error
	APIListenAddr     string
	TrustedProxies    string
	AllowedOrigins    []string
	MetricsEnabled    bool
	MetricsAddr       string

	RateLimitEnabled   bool
	RateLimitGlobal    int
	RateLimitBurst     int
	RateLimitWhitelist []string

	// TLS Configuration
	TLSEnabled bool
	TLSCert    string
	TLSKey     string
	ForceHTTPS bool

	// ReadyStrict enables strict readiness checks (check upstream availability)
	ReadyStrict bool

	Session SessionSettings
	Profile ProfileSettings
	Guard   GuardSettings
	Routes  RoutesSettings
	Network NetworkConfig
	Tracing TracingSettings
	Server  ServerConfig
}

// String implements fmt.Stringer with secrets redacted so the config can be
// logged without leaking tokens.
func (c AppConfig) String() string {
	masked := c
	if masked.APIToken != "" {
		masked.APIToken = "***"
	}
	if len(masked.APITokens) > 0 {
		tokens := make([]ScopedToken, len(masked.APITokens))
		copy(tokens, masked.APITokens)
		for i := range tokens {
			tokens[i].Token = "***"
		}
		masked.APITokens = tokens
	}
	if masked.Guard.Secret != "" {
		masked.Guard.Secret = "***"
	}
	type plain AppConfig
	return fmt.Sprintf("%+v", plain(masked))
}
