package identity

import (
	"net/http"
	"strings"
)

const (
	// AccessCookieName carries the access token between browser and gate.
	AccessCookieName = "rg_access_token"
	// RefreshCookieName carries the refresh token.
	RefreshCookieName = "rg_refresh_token"

	legacyTokenHeader = "X-Session-Token"
)

// Credentials is the opaque session material extracted from a request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	// Source records where the access token came from, for debug logging.
	Source string
}

// Empty reports whether the request carried no session material at all.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// FromRequest extracts session credentials. Precedence for the access token:
// Authorization bearer header, then the session cookie, then the legacy
// header. The refresh token only ever travels in its cookie.
func FromRequest(r *http.Request) Credentials {
	var creds Credentials

	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			creds.AccessToken = strings.TrimSpace(token)
			creds.Source = "bearer"
		}
	}
	if creds.AccessToken == "" {
		if c, err := r.Cookie(AccessCookieName); err == nil && c.Value != "" {
			creds.AccessToken = c.Value
			creds.Source = "cookie"
		}
	}
	if creds.AccessToken == "" {
		if legacy := strings.TrimSpace(r.Header.Get(legacyTokenHeader)); legacy != "" {
			creds.AccessToken = legacy
			creds.Source = "legacy_header"
		}
	}

	if c, err := r.Cookie(RefreshCookieName); err == nil && c.Value != "" {
		creds.RefreshToken = c.Value
	}
	return creds
}
