package gate

import (
	"net/http"
	"strings"
)

// isPrefetch reports whether a request is a speculative prefetch rather than a
// real navigation. Prefetches still get a decision but must never advance the
// loop guard window or trigger its override.
func isPrefetch(r *http.Request) bool {
	if purpose := r.Header.Get("Sec-Purpose"); purpose != "" {
		if strings.Contains(strings.ToLower(purpose), "prefetch") {
			return true
		}
	}
	if strings.EqualFold(r.Header.Get("Purpose"), "prefetch") {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Moz"), "prefetch") {
		return true
	}
	if r.Header.Get("X-Middleware-Prefetch") != "" {
		return true
	}
	return false
}
