// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestManagerSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	want := AppConfig{
		Mode:     ModeForwardAuth,
		DataDir:  tmpDir,
		LogLevel: "debug",
		Session: SessionSettings{
			BaseURL:     "http://session.internal:9000",
			Timeout:     4 * time.Second,
			Retries:     1,
			Backoff:     time.Second,
			MaxBackoff:  4 * time.Second,
			RefreshSkew: 30 * time.Second,
		},
		Profile: ProfileSettings{
			BaseURL:          "http://profile.internal:9001",
			Timeout:          3 * time.Second,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Guard: GuardSettings{
			Secret:           testGuardSecret,
			Window:           5 * time.Second,
			Threshold:        2,
			GuestLandingFrom: "/welcome",
			GuestLandingTo:   "/home",
		},
		Routes: RoutesSettings{
			Version: "2025-08-01",
			Tables: map[string][]string{
				"protected": {"/profile", "/saved"},
			},
		},
	}

	manager := NewManager(configPath)
	if err := manager.Save(&want); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loader := NewLoader(configPath, "test")
	got, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() after Save() failed: %v", err)
	}

	if got.Session.BaseURL != want.Session.BaseURL {
		t.Errorf("Session.BaseURL = %q, want %q", got.Session.BaseURL, want.Session.BaseURL)
	}
	if got.Session.Timeout != want.Session.Timeout {
		t.Errorf("Session.Timeout = %v, want %v", got.Session.Timeout, want.Session.Timeout)
	}
	if got.Guard.Secret != want.Guard.Secret {
		t.Error("Guard.Secret did not round trip")
	}
	if diff := cmp.Diff(want.Routes.Tables, got.Routes.Tables); diff != "" {
		t.Errorf("Routes.Tables mismatch (-want +got):\n%s", diff)
	}
	if got.Routes.Version != want.Routes.Version {
		t.Errorf("Routes.Version = %q, want %q", got.Routes.Version, want.Routes.Version)
	}
}

func TestFileConfigFromAppRedactsNothing(t *testing.T) {
	// Save writes secrets on purpose: config init persists the generated
	// guard secret so restarts keep verifying old cookies.
	cfg := AppConfig{Guard: GuardSettings{Secret: testGuardSecret}}
	fileCfg := FileConfigFromApp(&cfg)
	if fileCfg.Guard.Secret != testGuardSecret {
		t.Error("expected guard secret to be persisted")
	}
}
