package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ManuGH/routegate/internal/gate/problem"
)

// csrfPolicy holds the precompiled origin trust rules.
type csrfPolicy struct {
	allowAll bool
	origins  map[string]struct{}
}

// CSRFProtection blocks state-changing cross-site requests. It only
// runs in proxy mode, where browsers talk to the gate directly. Safe
// methods pass untouched; POST, PUT, DELETE and PATCH must present an
// Origin (or Referer) that is either configured as trusted or equal to
// the connection's own origin. The same-origin fallback is skipped when
// forwarding headers are present.
func CSRFProtection(trustedOrigins []string) func(http.Handler) http.Handler {
	policy := compileCSRFPolicy(trustedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			origin := callerOrigin(r)
			if origin == "" {
				writeCSRFProblem(w, r, "state-changing request without Origin or Referer")
				return
			}
			if !policy.trusts(origin, r) {
				writeCSRFProblem(w, r, "origin not trusted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeCSRFProblem(w http.ResponseWriter, r *http.Request, detail string) {
	problem.Write(w, r, http.StatusForbidden, "auth/csrf", "Forbidden", "CSRF_FORBIDDEN", detail, nil)
}

func compileCSRFPolicy(trusted []string) csrfPolicy {
	p := csrfPolicy{origins: make(map[string]struct{})}
	for _, raw := range trusted {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if raw == "*" {
			p.allowAll = true
			continue
		}
		if origin, ok := normalizeOrigin(raw); ok {
			p.origins[origin] = struct{}{}
		}
	}
	return p
}

// trusts reports whether origin may issue state-changing requests.
func (p csrfPolicy) trusts(origin string, r *http.Request) bool {
	if p.allowAll {
		return true
	}
	if _, ok := p.origins[origin]; ok {
		return true
	}
	if forwarded(r) {
		return false
	}
	return origin != "" && origin == connectionOrigin(r)
}

// forwarded reports whether any proxy forwarding header is set.
func forwarded(r *http.Request) bool {
	for _, h := range [...]string{
		"Forwarded",
		"X-Forwarded-For",
		"X-Forwarded-Host",
		"X-Forwarded-Proto",
		"X-Forwarded-Server",
	} {
		if r.Header.Get(h) != "" {
			return true
		}
	}
	return false
}

// callerOrigin resolves the request's origin, preferring the Origin
// header and falling back to Referer.
func callerOrigin(r *http.Request) string {
	if origin, ok := normalizeOrigin(r.Header.Get("Origin")); ok {
		return origin
	}

	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	origin, ok := normalizeOrigin(u.Scheme + "://" + u.Host)
	if !ok {
		return ""
	}
	return origin
}

// connectionOrigin reconstructs the origin of the gate's own listener
// from connection state, ignoring all forwarding headers.
func connectionOrigin(r *http.Request) string {
	if r.Host == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	origin, ok := normalizeOrigin(scheme + "://" + r.Host)
	if !ok {
		return ""
	}
	return origin
}

// normalizeOrigin canonicalizes scheme://host[:port]: lowercased,
// default ports dropped, IPv6 literals bracketed. Anything that is not
// a plain http(s) origin is rejected.
func normalizeOrigin(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" || strings.ContainsAny(host, " \t\r\n/@\\") {
		return "", false
	}

	port := u.Port()
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return "", false
		}
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	authority := host
	if ip := net.ParseIP(host); ip != nil && strings.Contains(host, ":") {
		authority = "[" + host + "]"
	}
	if port != "" {
		authority = net.JoinHostPort(host, port)
	}
	return scheme + "://" + authority, true
}
