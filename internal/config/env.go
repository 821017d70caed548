// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/routegate/internal/log"
	"github.com/rs/zerolog"
)

// defaultEvent records that key fell back to its default value. The note
// field distinguishes a set-but-empty variable from an absent one.
func defaultEvent(logger zerolog.Logger, key string, present bool) *zerolog.Event {
	e := logger.Debug().Str("key", key).Str("source", "default")
	if present {
		e = e.Str("note", "environment variable is empty")
	}
	return e
}

// sensitiveKey reports whether values of key must never appear in logs.
func sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "token") || strings.Contains(k, "secret") || strings.Contains(k, "password")
}

// ParseString reads a string from an environment variable or returns the
// default. Values of sensitive keys are logged as set, never verbatim.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		defaultEvent(logger, key, ok).Str("default", defaultValue).Msg("using default value")
		return defaultValue
	}
	if sensitiveKey(key) {
		logger.Debug().
			Str("key", key).
			Str("source", "environment").
			Bool("sensitive", true).
			Msg("using environment variable")
		return v
	}
	logger.Debug().
		Str("key", key).
		Str("value", v).
		Str("source", "environment").
		Msg("using environment variable")
	return v
}

// ParseInt reads an integer from an environment variable or returns the
// default. Malformed values fall back and are logged at warn level so a
// typo stays visible.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		defaultEvent(logger, key, ok).Int("default", defaultValue).Msg("using default value")
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Int("value", i).
		Str("source", "environment").
		Msg("using environment variable")
	return i
}

// ParseDuration reads a duration in Go duration format (e.g. "5s") from an
// environment variable or returns the default. Bare numbers are rejected;
// a unit is required.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		defaultEvent(logger, key, ok).Dur("default", defaultValue).Msg("using default value")
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().
		Str("key", key).
		Dur("value", d).
		Str("source", "environment").
		Msg("using environment variable")
	return d
}

// ParseBool reads a boolean from an environment variable or returns the
// default. Accepts "true", "false", "1", "0", "yes", "no" in any case.
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		defaultEvent(logger, key, ok).Bool("default", defaultValue).Msg("using default value")
		return defaultValue
	}

	var parsed bool
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		parsed = true
	case "false", "0", "no":
		parsed = false
	default:
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}

	logger.Debug().
		Str("key", key).
		Bool("value", parsed).
		Str("source", "environment").
		Msg("using environment variable")
	return parsed
}
