// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testGuardSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	loader := NewLoader("", "v-test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Mode != ModeForwardAuth {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeForwardAuth)
	}
	if cfg.Version != "v-test" {
		t.Errorf("Version = %q, want v-test", cfg.Version)
	}
	if cfg.Session.Timeout != DefaultSessionTimeout {
		t.Errorf("Session.Timeout = %v, want %v", cfg.Session.Timeout, DefaultSessionTimeout)
	}
	if cfg.Session.Retries != DefaultSessionRetries {
		t.Errorf("Session.Retries = %d, want %d", cfg.Session.Retries, DefaultSessionRetries)
	}
	if cfg.Guard.Window != DefaultGuardWindow {
		t.Errorf("Guard.Window = %v, want %v", cfg.Guard.Window, DefaultGuardWindow)
	}
	if cfg.Guard.Threshold != DefaultGuardThreshold {
		t.Errorf("Guard.Threshold = %d, want %d", cfg.Guard.Threshold, DefaultGuardThreshold)
	}
	if cfg.Guard.GuestLandingFrom != DefaultGuestLandingFrom || cfg.Guard.GuestLandingTo != DefaultGuestLandingTo {
		t.Errorf("guest landing = %q -> %q, want %q -> %q",
			cfg.Guard.GuestLandingFrom, cfg.Guard.GuestLandingTo,
			DefaultGuestLandingFrom, DefaultGuestLandingTo)
	}
	if !filepath.IsAbs(cfg.DataDir) {
		t.Errorf("DataDir = %q, want absolute path", cfg.DataDir)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
session:
  baseUrl: http://session.internal:9000
  timeout: 4s
  retries: 1
profile:
  baseUrl: http://profile.internal:9001
guard:
  secret: ` + testGuardSecret + `
  guestLanding:
    from: /landing
    to: /start
routes:
  version: "2025-08-01"
  tables:
    protected:
      - /profile
      - /saved
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader := NewLoader(configPath, "v-test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Session.BaseURL != "http://session.internal:9000" {
		t.Errorf("Session.BaseURL = %q", cfg.Session.BaseURL)
	}
	if cfg.Session.Timeout != 4*time.Second {
		t.Errorf("Session.Timeout = %v, want 4s", cfg.Session.Timeout)
	}
	if cfg.Session.Retries != 1 {
		t.Errorf("Session.Retries = %d, want 1", cfg.Session.Retries)
	}
	// Unset file fields keep defaults
	if cfg.Session.Backoff != DefaultSessionBackoff {
		t.Errorf("Session.Backoff = %v, want default %v", cfg.Session.Backoff, DefaultSessionBackoff)
	}
	if cfg.Guard.GuestLandingFrom != "/landing" || cfg.Guard.GuestLandingTo != "/start" {
		t.Errorf("guest landing = %q -> %q", cfg.Guard.GuestLandingFrom, cfg.Guard.GuestLandingTo)
	}
	if cfg.Routes.Version != "2025-08-01" {
		t.Errorf("Routes.Version = %q", cfg.Routes.Version)
	}
	if got := cfg.Routes.Tables["protected"]; len(got) != 2 {
		t.Errorf("Routes.Tables[protected] = %v", got)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
session:
  baseUrl: http://file.internal:9000
  timeout: 4s
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ROUTEGATE_SESSION_BASE", "http://env.internal:9100")
	t.Setenv("ROUTEGATE_SESSION_TIMEOUT", "9s")

	loader := NewLoader(configPath, "v-test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Session.BaseURL != "http://env.internal:9100" {
		t.Errorf("Session.BaseURL = %q, want env value", cfg.Session.BaseURL)
	}
	if cfg.Session.Timeout != 9*time.Second {
		t.Errorf("Session.Timeout = %v, want 9s", cfg.Session.Timeout)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := `
session:
  baseUrl: http://session.internal:9000
bouquets:
  - not-a-routegate-key
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader := NewLoader(configPath, "v-test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected strict parse error for unknown field")
	}
	if !errors.Is(err, ErrUnknownConfigField) {
		t.Errorf("expected ErrUnknownConfigField, got: %v", err)
	}
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loader := NewLoader(configPath, "v-test")
	_, err := loader.Load()
	if err == nil || !strings.Contains(err.Error(), "unsupported config format") {
		t.Errorf("expected unsupported format error, got: %v", err)
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	t.Setenv("ROUTEGATE_MODE", "tunnel")

	loader := NewLoader("", "v-test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected validation error for unknown mode")
	}
}

func TestLoadProxyModeRequiresUpstream(t *testing.T) {
	t.Setenv("ROUTEGATE_MODE", "proxy")

	loader := NewLoader("", "v-test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected validation error for proxy mode without upstream URL")
	}

	t.Setenv("ROUTEGATE_UPSTREAM_URL", "http://app.internal:3000")
	loader = NewLoader("", "v-test")
	if _, err := loader.Load(); err != nil {
		t.Fatalf("Load() with upstream failed: %v", err)
	}
}

func TestLoadScopedTokensFromEnv(t *testing.T) {
	t.Setenv("ROUTEGATE_API_TOKENS", `[{"token":"tok-a","scopes":["gate:read"]},{"token":"tok-b","scopes":["gate:admin"]}]`)

	loader := NewLoader("", "v-test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.APITokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(cfg.APITokens))
	}
	if cfg.APITokens[0].Token != "tok-a" || cfg.APITokens[0].Scopes[0] != "gate:read" {
		t.Errorf("unexpected first token: %+v", cfg.APITokens[0])
	}
}

func TestLoadScopedTokensLegacyFormat(t *testing.T) {
	t.Setenv("ROUTEGATE_API_TOKENS", "tok-a=gate:read;tok-b=gate:read,gate:admin")

	loader := NewLoader("", "v-test")
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.APITokens) != 2 {
		t.Fatalf("got %d tokens, want 2", len(cfg.APITokens))
	}
	if len(cfg.APITokens[1].Scopes) != 2 {
		t.Errorf("second token scopes = %v, want 2 entries", cfg.APITokens[1].Scopes)
	}
}

func TestLoadRejectsMalformedScopedTokens(t *testing.T) {
	t.Setenv("ROUTEGATE_API_TOKENS", `[{"token":"","scopes":["gate:read"]}]`)

	loader := NewLoader("", "v-test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected validation error for malformed tokens")
	}
}

func TestLoadRejectsUnknownScope(t *testing.T) {
	t.Setenv("ROUTEGATE_API_TOKEN", "tok-a")
	t.Setenv("ROUTEGATE_API_TOKEN_SCOPES", "stream:write")

	loader := NewLoader("", "v-test")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected validation error for unknown scope")
	}
}
