// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"
	"time"
)

// ServerConfig holds the HTTP runtime settings for the gate listener.
type ServerConfig struct {
	ListenAddr      string        // gate listen address, e.g. ":8080"
	ReadTimeout     time.Duration // deadline for reading a full request
	WriteTimeout    time.Duration // deadline for writing a response
	IdleTimeout     time.Duration // keep-alive idle limit
	MaxHeaderBytes  int           // request header size cap
	ShutdownTimeout time.Duration // graceful drain limit
}

// The gate serves small decision responses only, so read and write
// deadlines stay tight.
const (
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultMaxHeaderBytes  = 1 << 20 // 1 MB
	defaultShutdownTimeout = 15 * time.Second
	fallbackListenAddr     = ":8080"

	minShutdownTimeout = 3 * time.Second
)

// ParseServerConfigForApp resolves the server runtime settings with
// precedence ENV > config file > built-in defaults.
func ParseServerConfigForApp(cfg AppConfig) ServerConfig {
	out := applyServerFileOverrides(serverDefaults(), cfg)

	out.ListenAddr = resolveListenAddr(cfg)
	out.ReadTimeout = ParseDuration("ROUTEGATE_SERVER_READ_TIMEOUT", out.ReadTimeout)
	out.WriteTimeout = ParseDuration("ROUTEGATE_SERVER_WRITE_TIMEOUT", out.WriteTimeout)
	out.IdleTimeout = ParseDuration("ROUTEGATE_SERVER_IDLE_TIMEOUT", out.IdleTimeout)
	if v := ParseInt("ROUTEGATE_SERVER_MAX_HEADER_BYTES", out.MaxHeaderBytes); v > 0 {
		out.MaxHeaderBytes = v
	}
	out.ShutdownTimeout = ParseDuration("ROUTEGATE_SERVER_SHUTDOWN_TIMEOUT", out.ShutdownTimeout)
	if out.ShutdownTimeout < minShutdownTimeout {
		out.ShutdownTimeout = minShutdownTimeout
	}
	return out
}

func serverDefaults() ServerConfig {
	return ServerConfig{
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		IdleTimeout:     defaultIdleTimeout,
		MaxHeaderBytes:  defaultMaxHeaderBytes,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

func applyServerFileOverrides(base ServerConfig, cfg AppConfig) ServerConfig {
	if cfg.Server.ReadTimeout > 0 {
		base.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		base.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.IdleTimeout > 0 {
		base.IdleTimeout = cfg.Server.IdleTimeout
	}
	if cfg.Server.MaxHeaderBytes > 0 {
		base.MaxHeaderBytes = cfg.Server.MaxHeaderBytes
	}
	if cfg.Server.ShutdownTimeout > 0 {
		base.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	return base
}

// resolveListenAddr prefers ROUTEGATE_LISTEN, then the file value, then
// the built-in fallback.
func resolveListenAddr(cfg AppConfig) string {
	if v := strings.TrimSpace(ParseString("ROUTEGATE_LISTEN", "")); v != "" {
		return v
	}
	if v := strings.TrimSpace(cfg.APIListenAddr); v != "" {
		return v
	}
	return fallbackListenAddr
}
