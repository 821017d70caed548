// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Pipeline defaults. The identity resolver bounds its work to 5s with two
// retries; the loop guard uses a 5s window with a two-redirect threshold.
const (
	DefaultSessionTimeout     = 5 * time.Second
	DefaultSessionRetries     = 2
	DefaultSessionBackoff     = 1 * time.Second
	DefaultSessionMaxBackoff  = 4 * time.Second
	DefaultSessionRefreshSkew = 30 * time.Second

	DefaultProfileTimeout   = 3 * time.Second
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second

	DefaultGuardWindow    = 5 * time.Second
	DefaultGuardThreshold = 2

	DefaultGuestLandingFrom = "/welcome"
	DefaultGuestLandingTo   = "/home"
)

// setDefaults sets default values for configuration.
func (l *Loader) setDefaults(cfg *AppConfig) error {
	cfg.ConfigVersion = CurrentConfigVersion
	cfg.DataDir = "data"
	cfg.LogLevel = "info"
	cfg.LogService = "routegate"
	cfg.Mode = ModeForwardAuth

	cfg.Session = SessionSettings{
		Timeout:     DefaultSessionTimeout,
		Retries:     DefaultSessionRetries,
		Backoff:     DefaultSessionBackoff,
		MaxBackoff:  DefaultSessionMaxBackoff,
		RefreshSkew: DefaultSessionRefreshSkew,
	}
	cfg.Profile = ProfileSettings{
		Timeout:          DefaultProfileTimeout,
		BreakerThreshold: DefaultBreakerThreshold,
		BreakerCooldown:  DefaultBreakerCooldown,
	}
	cfg.Guard = GuardSettings{
		Window:           DefaultGuardWindow,
		Threshold:        DefaultGuardThreshold,
		GuestLandingFrom: DefaultGuestLandingFrom,
		GuestLandingTo:   DefaultGuestLandingTo,
	}

	cfg.RateLimitEnabled = true
	cfg.RateLimitGlobal = 100
	cfg.RateLimitBurst = 50

	cfg.Tracing.Protocol = "grpc"

	return nil
}
