// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"net"
	"strings"
	"time"

	"github.com/ManuGH/routegate/internal/validate"
)

// Known route table category keys in RoutesSettings.Tables.
var routeTableCategories = map[string]struct{}{
	"passwordReset":      {},
	"authPage":           {},
	"adminRestricted":    {},
	"businessRestricted": {},
	"onboarding":         {},
	"protected":          {},
	"public":             {},
}

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("Mode", cfg.Mode, []string{ModeForwardAuth, ModeProxy})
	if cfg.Mode == ModeProxy {
		v.URL("UpstreamURL", cfg.UpstreamURL, []string{"http", "https"})
	}

	// Backend URLs (optional in setup mode; the resolver degrades without them)
	if strings.TrimSpace(cfg.Session.BaseURL) != "" {
		v.URL("Session.BaseURL", cfg.Session.BaseURL, []string{"http", "https"})
	}
	if strings.TrimSpace(cfg.Profile.BaseURL) != "" {
		v.URL("Profile.BaseURL", cfg.Profile.BaseURL, []string{"http", "https"})
	}

	v.MinDuration("Session.Timeout", cfg.Session.Timeout, 100*time.Millisecond)
	v.Range("Session.Retries", cfg.Session.Retries, 0, 5)
	v.MinDuration("Session.Backoff", cfg.Session.Backoff, 10*time.Millisecond)
	if cfg.Session.MaxBackoff < cfg.Session.Backoff {
		v.AddError("Session.MaxBackoff", "must be >= Session.Backoff", cfg.Session.MaxBackoff)
	}
	if cfg.Session.RefreshSkew < 0 {
		v.AddError("Session.RefreshSkew", "must be >= 0", cfg.Session.RefreshSkew)
	}

	v.MinDuration("Profile.Timeout", cfg.Profile.Timeout, 100*time.Millisecond)
	v.Positive("Profile.BreakerThreshold", cfg.Profile.BreakerThreshold)
	v.MinDuration("Profile.BreakerCooldown", cfg.Profile.BreakerCooldown, time.Second)

	if cfg.Guard.Secret != "" {
		v.Secret("Guard.Secret", cfg.Guard.Secret, 32)
	}
	v.MinDuration("Guard.Window", cfg.Guard.Window, time.Second)
	v.Positive("Guard.Threshold", cfg.Guard.Threshold)
	v.RoutePath("Guard.GuestLandingFrom", cfg.Guard.GuestLandingFrom)
	v.RoutePath("Guard.GuestLandingTo", cfg.Guard.GuestLandingTo)

	validateRoutes(v, cfg.Routes)
	validateAPITokens(v, cfg)

	// Rate limit whitelist entries must be valid IPs or CIDRs
	for _, entry := range cfg.RateLimitWhitelist {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if net.ParseIP(entry) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		v.AddError("RateLimitWhitelist", "must be a valid IP or CIDR", entry)
	}
	if cfg.RateLimitEnabled {
		v.Positive("RateLimitGlobal", cfg.RateLimitGlobal)
		v.Positive("RateLimitBurst", cfg.RateLimitBurst)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Protocol", cfg.Tracing.Protocol, []string{"grpc", "http"})
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
	}

	return v.Err()
}

func validateRoutes(v *validate.Validator, routes RoutesSettings) {
	for category, patterns := range routes.Tables {
		if _, ok := routeTableCategories[category]; !ok {
			v.AddError("Routes.Tables", "unknown route category", category)
			continue
		}
		for _, pattern := range patterns {
			v.RoutePath("Routes.Tables."+category, pattern)
		}
	}
	for _, prefix := range routes.ProtectedPrefixes {
		v.RoutePath("Routes.ProtectedPrefixes", prefix)
	}
}

func validateAPITokens(v *validate.Validator, cfg AppConfig) {
	if cfg.apiTokensParseErr != nil {
		v.AddError("APITokens", cfg.apiTokensParseErr.Error(), "")
	}

	validScopes := map[string]struct{}{
		"*":          {},
		"gate:*":     {},
		"gate:read":  {},
		"gate:admin": {},
	}

	isValidScope := func(scope string) bool {
		scope = strings.ToLower(strings.TrimSpace(scope))
		_, ok := validScopes[scope]
		return ok
	}

	if cfg.APIToken != "" && len(cfg.APITokenScopes) == 0 {
		v.AddError("APITokenScopes", "must be set when APIToken is configured", "")
	}
	for _, scope := range cfg.APITokenScopes {
		if !isValidScope(scope) {
			v.AddError("APITokenScopes", "unknown scope", scope)
		}
	}
	seenTokens := map[string]struct{}{}
	for _, token := range cfg.APITokens {
		tokenVal := strings.TrimSpace(token.Token)
		if tokenVal == "" {
			v.AddError("APITokens", "token must not be empty", "")
			continue
		}
		if _, ok := seenTokens[tokenVal]; ok {
			v.AddError("APITokens", "duplicate token", tokenVal)
			continue
		}
		seenTokens[tokenVal] = struct{}{}
		if len(token.Scopes) == 0 {
			v.AddError("APITokens", "scopes must be set for token", tokenVal)
			continue
		}
		for _, scope := range token.Scopes {
			if !isValidScope(scope) {
				v.AddError("APITokens", "unknown scope", scope)
			}
		}
	}
}
