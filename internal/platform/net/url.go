// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package net

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Redacted returns a URL string safe for logs: userinfo and query are
// stripped, everything else is preserved.
func Redacted(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url-redacted"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

// ParseHTTPURL parses raw as an absolute http(s) URL for a backend
// connection. Credentials, fragments, schemeless strings and empty
// hosts are rejected.
func ParseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("url has no host")
	}
	if u.User != nil {
		return nil, errors.New("credentials in url not allowed")
	}
	if u.Fragment != "" {
		return nil, errors.New("fragment in url not allowed")
	}
	return u, nil
}
