// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/routegate/internal/log"
)

// scopedTokenEntry is the unvalidated wire form of one operator token,
// shared by the JSON and legacy parsers.
type scopedTokenEntry struct {
	Token  string   `json:"token"`
	Scopes []string `json:"scopes"`
}

// parseScopedTokens reads operator tokens from an environment value.
// A JSON array is canonical; the legacy "token=scopes;token2=scopes2"
// form remains supported. key names the variable in errors and logs.
func parseScopedTokens(key, envVal string, defaults []ScopedToken) ([]ScopedToken, error) {
	trimmed := strings.TrimSpace(envVal)
	if trimmed == "" {
		return defaults, nil
	}

	var (
		entries []scopedTokenEntry
		err     error
	)
	switch {
	case strings.HasPrefix(trimmed, "["):
		if err = json.Unmarshal([]byte(trimmed), &entries); err != nil {
			return nil, fmt.Errorf("%s JSON parse failed: %w", key, err)
		}
	case strings.HasPrefix(trimmed, "{"):
		return nil, fmt.Errorf("%s JSON must be an array of objects", key)
	default:
		l := log.WithComponent("config")
		l.Warn().
			Str("key", key).
			Msg("legacy token format detected; JSON array is recommended")
		if entries, err = splitLegacyTokens(key, trimmed); err != nil {
			return nil, err
		}
	}
	return normalizeScopedTokens(key, entries)
}

// splitLegacyTokens parses the semicolon form into unvalidated entries.
func splitLegacyTokens(key, raw string) ([]scopedTokenEntry, error) {
	var entries []scopedTokenEntry
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		token, scopes, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("%s legacy entry must be token=scopes: %q", key, item)
		}
		entries = append(entries, scopedTokenEntry{
			Token:  token,
			Scopes: strings.Split(scopes, ","),
		})
	}
	return entries, nil
}

// normalizeScopedTokens trims and validates entries. Tokens must be
// unique and every scope element non-empty; a token without scopes
// would silently grant nothing, so it is rejected instead.
func normalizeScopedTokens(key string, entries []scopedTokenEntry) ([]ScopedToken, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s has no token entries", key)
	}
	seen := make(map[string]struct{}, len(entries))
	out := make([]ScopedToken, 0, len(entries))
	for _, entry := range entries {
		token := strings.TrimSpace(entry.Token)
		if token == "" {
			return nil, fmt.Errorf("%s token is empty", key)
		}
		if _, dup := seen[token]; dup {
			return nil, fmt.Errorf("%s duplicate token %q", key, token)
		}
		seen[token] = struct{}{}

		scopes := make([]string, 0, len(entry.Scopes))
		for _, scope := range entry.Scopes {
			scope = strings.TrimSpace(scope)
			if scope == "" {
				return nil, fmt.Errorf("%s scopes must not be empty for token %q", key, token)
			}
			scopes = append(scopes, scope)
		}
		if len(scopes) == 0 {
			return nil, fmt.Errorf("%s scopes must be set for token %q", key, token)
		}
		out = append(out, ScopedToken{Token: token, Scopes: scopes})
	}
	return out, nil
}

// parseCommaSeparated splits a comma list, dropping empty elements.
func parseCommaSeparated(envVal string, defaults []string) []string {
	if envVal == "" {
		return defaults
	}
	var out []string
	for _, p := range strings.Split(envVal, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseCommaSeparatedInts splits a comma list of integers. Malformed
// elements are logged and skipped so one typo does not wipe the list.
func parseCommaSeparatedInts(envVal string, defaults []int) []int {
	if envVal == "" {
		return defaults
	}
	logger := log.WithComponent("config")
	var out []int
	for _, p := range strings.Split(envVal, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		val, err := strconv.Atoi(p)
		if err != nil {
			logger.Warn().
				Str("value", p).
				Msg("invalid integer in environment list; skipping")
			continue
		}
		out = append(out, val)
	}
	return out
}
