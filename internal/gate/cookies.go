package gate

import (
	"net/http"
	"time"

	"github.com/ManuGH/routegate/internal/guard"
	"github.com/ManuGH/routegate/internal/identity"
	"github.com/ManuGH/routegate/internal/log"
)

// refreshCookieMaxAge matches the application's refresh token lifetime so a
// proactively rotated pair keeps the same persistence as a fresh login.
const refreshCookieMaxAge = 30 * 24 * time.Hour

func (s *Server) cookieSecure() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Guard.CookieSecure
}

func (s *Server) guardWindow() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w := s.cfg.Guard.Window
	if w <= 0 {
		w = guard.DefaultWindow
	}
	return w
}

// writeGuardCookie persists the loop guard state on the client. The cookie
// expires with the window; a stale one is ignored by Decode anyway.
func (s *Server) writeGuardCookie(w http.ResponseWriter, st guard.State) {
	token, err := s.guardCodec().Encode(st)
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str("event", "gate.guard_encode_failed").Msg("failed to encode guard state")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     guard.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.guardWindow().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearGuardCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     guard.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure(),
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCredentialCookies expires both session cookies. Used on fatal identity
// resolutions so the next request arrives as a clean guest.
func (s *Server) clearCredentialCookies(w http.ResponseWriter) {
	for _, name := range []string{identity.AccessCookieName, identity.RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.cookieSecure(),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// setCredentialCookies installs a refreshed token pair.
func (s *Server) setCredentialCookies(w http.ResponseWriter, pair identity.TokenPair) {
	access := &http.Cookie{
		Name:     identity.AccessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure(),
		SameSite: http.SameSiteLaxMode,
	}
	if !pair.ExpiresAt.IsZero() {
		access.Expires = pair.ExpiresAt
	}
	http.SetCookie(w, access)

	if pair.RefreshToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     identity.RefreshCookieName,
			Value:    pair.RefreshToken,
			Path:     "/",
			MaxAge:   int(refreshCookieMaxAge.Seconds()),
			HttpOnly: true,
			Secure:   s.cookieSecure(),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (s *Server) guardCodec() *guard.TokenCodec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codec
}
