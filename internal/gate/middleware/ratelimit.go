// SPDX-License-Identifier: MIT

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/ManuGH/routegate/internal/gate/problem"
)

var rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "routegate_ratelimit_exceeded_total",
	Help: "Total rate limit rejections",
}, []string{"limit_type"})

const (
	defaultGlobalRPS   = 100
	defaultGlobalBurst = 200
)

// GlobalRateLimit applies a process-wide token bucket in front of all routes.
// Peers matching the whitelist (CIDRs or bare IPs, checked against the direct
// RemoteAddr) bypass the limit; the edge proxy driving the decision endpoint
// belongs there.
func GlobalRateLimit(enabled bool, rps, burst int, whitelist []string) func(http.Handler) http.Handler {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	if rps <= 0 {
		rps = defaultGlobalRPS
	}
	if burst <= 0 {
		burst = defaultGlobalBurst
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	exempt, err := ParseCIDRs(whitelist)
	if err != nil {
		// A broken whitelist must not open the gate wide or close it for
		// the proxy; keep limiting and ignore the list.
		exempt = nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(exempt) > 0 {
				host, _, splitErr := net.SplitHostPort(r.RemoteAddr)
				if splitErr != nil {
					host = r.RemoteAddr
				}
				if ip := net.ParseIP(host); ip != nil && IsIPAllowed(ip, exempt) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if !limiter.Allow() {
				rateLimitExceeded.WithLabelValues("global").Inc()
				w.Header().Set("Retry-After", "1")
				problem.Write(w, r, http.StatusTooManyRequests, "ratelimit/global", "Too Many Requests",
					"RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later.", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitConfig holds configuration for per-endpoint rate limiting.
type RateLimitConfig struct {
	// RequestLimit is the maximum number of requests allowed in the window
	RequestLimit int
	// WindowSize is the time window for rate limiting
	WindowSize time.Duration
	// KeyFunc extracts the rate limit key from the request (e.g., IP address)
	// If nil, defaults to IP-based rate limiting
	KeyFunc func(r *http.Request) (string, error)
}

// RateLimit creates a per-key rate limiting middleware using the httprate
// library's sliding window counter.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			rateLimitExceeded.WithLabelValues("endpoint").Inc()
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.WindowSize.Seconds())))
			problem.Write(w, r, http.StatusTooManyRequests, "ratelimit/endpoint", "Too Many Requests",
				"RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later.", nil)
		}),
	)
}

// ReloadRateLimit guards the expensive config reload endpoint.
// Default: 10 requests per minute per IP.
func ReloadRateLimit() func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{
		RequestLimit: 10,
		WindowSize:   time.Minute,
	})
}
