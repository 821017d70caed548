// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/routegate/internal/config"
	"github.com/ManuGH/routegate/internal/log"
	"github.com/ManuGH/routegate/internal/routes"
	"github.com/rs/zerolog"
)

// PerformStartupChecks fails the boot early on problems that would
// otherwise surface as runtime errors: unwritable state dir, unparseable
// addresses, broken route tables, half-configured TLS.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}

	if err := checkServingConfig(logger, cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info().Msg("✅ All startup checks passed")
	return nil
}

func checkDataDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	// Stat alone cannot prove writability; a throwaway file can.
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("✓ Data directory is writable")
	return nil
}

// checkServingConfig validates the listener, serving mode, backend URLs,
// guard secret, route tables and TLS material.
func checkServingConfig(logger zerolog.Logger, cfg config.AppConfig) error {
	if cfg.APIListenAddr != "" {
		_, port, err := net.SplitHostPort(cfg.APIListenAddr)
		if err != nil {
			return fmt.Errorf("invalid listen address %q: %w", cfg.APIListenAddr, err)
		}
		portNum, err := strconv.Atoi(port)
		if err != nil || portNum < 0 || portNum > 65535 {
			return fmt.Errorf("invalid listen port %q in %q", port, cfg.APIListenAddr)
		}
		logger.Info().Str("addr", cfg.APIListenAddr).Msg("✓ Listen address is valid")
	}

	switch cfg.Mode {
	case config.ModeForwardAuth:
		// decision endpoint only, no upstream needed
	case config.ModeProxy:
		if cfg.UpstreamURL == "" {
			return fmt.Errorf("proxy mode requires ROUTEGATE_UPSTREAM_URL")
		}
		if err := checkHTTPBaseURL("ROUTEGATE_UPSTREAM_URL", cfg.UpstreamURL); err != nil {
			return err
		}
		logger.Info().Str("upstream", cfg.UpstreamURL).Msg("✓ Proxy upstream is valid")
	default:
		return fmt.Errorf("unknown serving mode %q (supported: %s, %s)", cfg.Mode, config.ModeForwardAuth, config.ModeProxy)
	}

	if cfg.Session.BaseURL == "" {
		logger.Warn().Msg("session backend not configured; every request resolves as a guest")
	} else {
		if err := checkHTTPBaseURL("ROUTEGATE_SESSION_BASE", cfg.Session.BaseURL); err != nil {
			return err
		}
		logger.Info().Str("url", cfg.Session.BaseURL).Msg("✓ Session backend URL is valid")
	}

	if cfg.Profile.BaseURL == "" {
		logger.Warn().Msg("profile store not configured; profiles resolve as unknown")
	} else {
		if err := checkHTTPBaseURL("ROUTEGATE_PROFILE_BASE", cfg.Profile.BaseURL); err != nil {
			return err
		}
		logger.Info().Str("url", cfg.Profile.BaseURL).Msg("✓ Profile store URL is valid")
	}

	// The guard token is HMAC-signed; a short secret weakens every cookie.
	if cfg.Guard.Secret != "" && len(cfg.Guard.Secret) < 32 {
		return fmt.Errorf("ROUTEGATE_GUARD_SECRET must be at least 32 bytes, got %d", len(cfg.Guard.Secret))
	}

	if _, err := routes.Compile(cfg.Routes.Version, cfg.Routes.Tables, cfg.Routes.ProtectedPrefixes); err != nil {
		return fmt.Errorf("route table compile failed: %w", err)
	}
	logger.Info().Str("version", cfg.Routes.Version).Msg("✓ Route tables compile")

	// TLS material must come as a complete, readable pair.
	if cfg.TLSCert != "" || cfg.TLSKey != "" {
		if cfg.TLSCert == "" || cfg.TLSKey == "" {
			return fmt.Errorf("TLS configuration requires BOTH Cert and Key to be set")
		}
		if err := checkFileReadable(cfg.TLSCert); err != nil {
			return fmt.Errorf("TLS Cert error: %w", err)
		}
		if err := checkFileReadable(cfg.TLSKey); err != nil {
			return fmt.Errorf("TLS Key error: %w", err)
		}
		logger.Info().Msg("✓ TLS configuration is valid")
	}

	return nil
}

func checkHTTPBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s URL is missing a host", name)
	}
	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}
