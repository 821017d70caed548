// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/routegate/internal/log"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration persistence.
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// Save writes the configuration to disk atomically (fsync before rename).
func (m *Manager) Save(cfg *AppConfig) error {
	logger := log.WithComponent("config")

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	fileCfg := FileConfigFromApp(cfg)

	pendingFile, err := renameio.NewPendingFile(m.configPath)
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending config file")
		}
	}()

	enc := yaml.NewEncoder(pendingFile)
	enc.SetIndent(2)
	if err := enc.Encode(fileCfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}

	return nil
}

// FileConfigFromApp maps runtime configuration back to its serializable form.
// Only operator-configurable fields are written.
func FileConfigFromApp(cfg *AppConfig) FileConfig {
	fileCfg := FileConfig{
		Version:       cfg.Version,
		ConfigVersion: EffectiveConfigVersion(*cfg),
		DataDir:       cfg.DataDir,
		LogLevel:      cfg.LogLevel,
		LogService:    cfg.LogService,
		Mode:          cfg.Mode,
		UpstreamURL:   cfg.UpstreamURL,
		Session: SessionFileConfig{
			BaseURL:     cfg.Session.BaseURL,
			Timeout:     cfg.Session.Timeout.String(),
			Retries:     intPtr(cfg.Session.Retries),
			Backoff:     cfg.Session.Backoff.String(),
			MaxBackoff:  cfg.Session.MaxBackoff.String(),
			RefreshSkew: cfg.Session.RefreshSkew.String(),
		},
		Profile: ProfileFileConfig{
			BaseURL: cfg.Profile.BaseURL,
			Timeout: cfg.Profile.Timeout.String(),
			Breaker: BreakerFileConfig{
				Threshold: intPtr(cfg.Profile.BreakerThreshold),
				Cooldown:  cfg.Profile.BreakerCooldown.String(),
			},
		},
		Guard: GuardFileConfig{
			Secret:       cfg.Guard.Secret,
			Window:       cfg.Guard.Window.String(),
			Threshold:    intPtr(cfg.Guard.Threshold),
			CookieSecure: boolPtr(cfg.Guard.CookieSecure),
			GuestLanding: GuestLandingFileConfig{
				From: cfg.Guard.GuestLandingFrom,
				To:   cfg.Guard.GuestLandingTo,
			},
		},
		Routes: RoutesFileConfig{
			Version:           cfg.Routes.Version,
			Tables:            cfg.Routes.Tables,
			ProtectedPrefixes: cfg.Routes.ProtectedPrefixes,
		},
	}

	if cfg.MetricsEnabled || cfg.MetricsAddr != "" {
		fileCfg.Metrics = MetricsConfig{
			Enabled:    boolPtr(cfg.MetricsEnabled),
			ListenAddr: cfg.MetricsAddr,
		}
	}

	return fileCfg
}

// Helper functions for mapping

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
