// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"time"
)

// mergeFileConfig merges values from the YAML file into cfg. File values
// override defaults; ENV is applied afterwards and wins over both.
func (l *Loader) mergeFileConfig(cfg *AppConfig, fileCfg *FileConfig) error {
	if fileCfg == nil {
		return nil
	}

	if fileCfg.ConfigVersion != "" {
		cfg.ConfigVersion = fileCfg.ConfigVersion
	}
	if fileCfg.DataDir != "" {
		cfg.DataDir = fileCfg.DataDir
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.LogService != "" {
		cfg.LogService = fileCfg.LogService
	}
	if fileCfg.Mode != "" {
		cfg.Mode = fileCfg.Mode
	}
	if fileCfg.UpstreamURL != "" {
		cfg.UpstreamURL = fileCfg.UpstreamURL
	}
	if fileCfg.ReadyStrict != nil {
		cfg.ReadyStrict = *fileCfg.ReadyStrict
	}
	if fileCfg.TrustedProxies != "" {
		cfg.TrustedProxies = fileCfg.TrustedProxies
	}

	if err := l.mergeFileSession(cfg, fileCfg.Session); err != nil {
		return err
	}
	if err := l.mergeFileProfile(cfg, fileCfg.Profile); err != nil {
		return err
	}
	if err := l.mergeFileGuard(cfg, fileCfg.Guard); err != nil {
		return err
	}
	l.mergeFileRoutes(cfg, fileCfg.Routes)
	l.mergeFileAPI(cfg, fileCfg.API)
	if err := l.mergeFileServer(cfg, fileCfg.Server); err != nil {
		return err
	}
	l.mergeFileNetwork(cfg, fileCfg.Network)
	l.mergeFileMetrics(cfg, fileCfg.Metrics)
	l.mergeFileTracing(cfg, fileCfg.Tracing)
	l.mergeFileTLS(cfg, fileCfg.TLS)

	return nil
}

func (l *Loader) mergeFileSession(cfg *AppConfig, file SessionFileConfig) error {
	if file.BaseURL != "" {
		cfg.Session.BaseURL = file.BaseURL
	}
	if err := mergeDurationString(&cfg.Session.Timeout, "session.timeout", file.Timeout); err != nil {
		return err
	}
	if file.Retries != nil {
		cfg.Session.Retries = *file.Retries
	}
	if err := mergeDurationString(&cfg.Session.Backoff, "session.backoff", file.Backoff); err != nil {
		return err
	}
	if err := mergeDurationString(&cfg.Session.MaxBackoff, "session.maxBackoff", file.MaxBackoff); err != nil {
		return err
	}
	return mergeDurationString(&cfg.Session.RefreshSkew, "session.refreshSkew", file.RefreshSkew)
}

func (l *Loader) mergeFileProfile(cfg *AppConfig, file ProfileFileConfig) error {
	if file.BaseURL != "" {
		cfg.Profile.BaseURL = file.BaseURL
	}
	if err := mergeDurationString(&cfg.Profile.Timeout, "profile.timeout", file.Timeout); err != nil {
		return err
	}
	if file.Breaker.Threshold != nil {
		cfg.Profile.BreakerThreshold = *file.Breaker.Threshold
	}
	return mergeDurationString(&cfg.Profile.BreakerCooldown, "profile.breaker.cooldown", file.Breaker.Cooldown)
}

func (l *Loader) mergeFileGuard(cfg *AppConfig, file GuardFileConfig) error {
	if file.Secret != "" {
		cfg.Guard.Secret = file.Secret
	}
	if err := mergeDurationString(&cfg.Guard.Window, "guard.window", file.Window); err != nil {
		return err
	}
	if file.Threshold != nil {
		cfg.Guard.Threshold = *file.Threshold
	}
	if file.CookieSecure != nil {
		cfg.Guard.CookieSecure = *file.CookieSecure
	}
	if file.GuestLanding.From != "" {
		cfg.Guard.GuestLandingFrom = file.GuestLanding.From
	}
	if file.GuestLanding.To != "" {
		cfg.Guard.GuestLandingTo = file.GuestLanding.To
	}
	return nil
}

func (l *Loader) mergeFileRoutes(cfg *AppConfig, file RoutesFileConfig) {
	if file.Version != "" {
		cfg.Routes.Version = file.Version
	}
	if len(file.Tables) > 0 {
		cfg.Routes.Tables = file.Tables
	}
	if len(file.ProtectedPrefixes) > 0 {
		cfg.Routes.ProtectedPrefixes = file.ProtectedPrefixes
	}
}

func (l *Loader) mergeFileAPI(cfg *AppConfig, file APIConfig) {
	if file.Token != "" {
		cfg.APIToken = file.Token
	}
	if len(file.TokenScopes) > 0 {
		cfg.APITokenScopes = file.TokenScopes
	}
	if len(file.Tokens) > 0 {
		cfg.APITokens = file.Tokens
	}
	if file.ListenAddr != "" {
		cfg.APIListenAddr = file.ListenAddr
	}
	if len(file.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = file.AllowedOrigins
	}
	if file.RateLimit.Enabled != nil {
		cfg.RateLimitEnabled = *file.RateLimit.Enabled
	}
	if file.RateLimit.Global != nil {
		cfg.RateLimitGlobal = *file.RateLimit.Global
	}
	if file.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *file.RateLimit.Burst
	}
	if len(file.RateLimit.Whitelist) > 0 {
		cfg.RateLimitWhitelist = file.RateLimit.Whitelist
	}
}

func (l *Loader) mergeFileServer(cfg *AppConfig, file ServerFileConfig) error {
	if err := mergeDurationString(&cfg.Server.ReadTimeout, "server.readTimeout", file.ReadTimeout); err != nil {
		return err
	}
	if err := mergeDurationString(&cfg.Server.WriteTimeout, "server.writeTimeout", file.WriteTimeout); err != nil {
		return err
	}
	if err := mergeDurationString(&cfg.Server.IdleTimeout, "server.idleTimeout", file.IdleTimeout); err != nil {
		return err
	}
	if file.MaxHeaderBytes != nil {
		cfg.Server.MaxHeaderBytes = *file.MaxHeaderBytes
	}
	return mergeDurationString(&cfg.Server.ShutdownTimeout, "server.shutdownTimeout", file.ShutdownTimeout)
}

func (l *Loader) mergeFileNetwork(cfg *AppConfig, file NetworkFileConfig) {
	if file.Outbound.Enabled != nil {
		cfg.Network.Outbound.Enabled = *file.Outbound.Enabled
	}
	if len(file.Outbound.Allow.Hosts) > 0 {
		cfg.Network.Outbound.Allow.Hosts = file.Outbound.Allow.Hosts
	}
	if len(file.Outbound.Allow.CIDRs) > 0 {
		cfg.Network.Outbound.Allow.CIDRs = file.Outbound.Allow.CIDRs
	}
	if len(file.Outbound.Allow.Ports) > 0 {
		cfg.Network.Outbound.Allow.Ports = file.Outbound.Allow.Ports
	}
	if len(file.Outbound.Allow.Schemes) > 0 {
		cfg.Network.Outbound.Allow.Schemes = file.Outbound.Allow.Schemes
	}
}

func (l *Loader) mergeFileMetrics(cfg *AppConfig, file MetricsConfig) {
	if file.Enabled != nil {
		cfg.MetricsEnabled = *file.Enabled
	}
	if file.ListenAddr != "" {
		cfg.MetricsAddr = file.ListenAddr
		if file.Enabled == nil {
			cfg.MetricsEnabled = true
		}
	}
}

func (l *Loader) mergeFileTracing(cfg *AppConfig, file TracingFileConfig) {
	if file.Enabled != nil {
		cfg.Tracing.Enabled = *file.Enabled
	}
	if file.Endpoint != "" {
		cfg.Tracing.Endpoint = file.Endpoint
	}
	if file.Protocol != "" {
		cfg.Tracing.Protocol = file.Protocol
	}
	if file.Insecure != nil {
		cfg.Tracing.Insecure = *file.Insecure
	}
}

func (l *Loader) mergeFileTLS(cfg *AppConfig, file TLSConfig) {
	if file.Enabled != nil {
		cfg.TLSEnabled = *file.Enabled
	}
	if file.Cert != "" {
		cfg.TLSCert = file.Cert
	}
	if file.Key != "" {
		cfg.TLSKey = file.Key
	}
	if file.ForceHTTPS != nil {
		cfg.ForceHTTPS = *file.ForceHTTPS
	}
}

// mergeDurationString parses a YAML duration string into dst when set.
func mergeDurationString(dst *time.Duration, field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", field, err)
	}
	*dst = d
	return nil
}
