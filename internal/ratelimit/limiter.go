// SPDX-License-Identifier: MIT

// Package ratelimit provides token-bucket limiting with global,
// per-endpoint and per-client tiers.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "routegate",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total rate limit rejections",
	},
	[]string{"limit_type", "endpoint"},
)

// Config holds the three limiter tiers. Endpoint names follow the
// backend protocol surface ("session", "refresh", "profile_status").
type Config struct {
	GlobalRate  rate.Limit
	GlobalBurst int

	PerIPRate  rate.Limit
	PerIPBurst int

	EndpointRates map[string]rate.Limit
	EndpointBurst map[string]int

	// CleanupInterval bounds how long idle per-IP buckets survive.
	CleanupInterval time.Duration
}

// DefaultConfig returns limits sized for a single gate instance.
func DefaultConfig() Config {
	return Config{
		GlobalRate:  100,
		GlobalBurst: 200,

		PerIPRate:  10,
		PerIPBurst: 20,

		EndpointRates: map[string]rate.Limit{
			"session":        50, // session lookups dominate gate traffic
			"refresh":        10, // refreshes are rare and more expensive
			"profile_status": 30,
		},
		EndpointBurst: map[string]int{
			"session":        100,
			"refresh":        20,
			"profile_status": 60,
		},

		CleanupInterval: 5 * time.Minute,
	}
}

// ipBucket pairs a limiter with its last use so idle entries can be
// evicted without resetting active clients.
type ipBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter enforces global, per-endpoint and per-IP budgets, in that
// order. The first exhausted tier rejects the request.
type Limiter struct {
	config Config

	global      *rate.Limiter
	perEndpoint map[string]*rate.Limiter

	mu          sync.Mutex
	perIP       map[string]*ipBucket
	lastCleanup time.Time
}

// New builds a Limiter from config.
func New(config Config) *Limiter {
	l := &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perEndpoint: make(map[string]*rate.Limiter, len(config.EndpointRates)),
		perIP:       make(map[string]*ipBucket),
		lastCleanup: time.Now(),
	}
	for endpoint, r := range config.EndpointRates {
		l.perEndpoint[endpoint] = rate.NewLimiter(r, config.EndpointBurst[endpoint])
	}
	return l
}

// Allow reports whether a request from clientIP against endpoint fits
// into all three budgets.
func (l *Limiter) Allow(clientIP, endpoint string) bool {
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global", endpoint).Inc()
		return false
	}

	// perEndpoint is written only in New; reads need no lock.
	if el, ok := l.perEndpoint[endpoint]; ok && !el.Allow() {
		rateLimitExceeded.WithLabelValues("per_endpoint", endpoint).Inc()
		return false
	}

	if !l.allowIP(clientIP) {
		rateLimitExceeded.WithLabelValues("per_ip", endpoint).Inc()
		return false
	}
	return true
}

func (l *Limiter) allowIP(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.perIP[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(l.config.PerIPRate, l.config.PerIPBurst)}
		l.perIP[ip] = b
	}
	b.lastSeen = now
	l.evictIdleLocked(now)
	l.mu.Unlock()

	// rate.Limiter carries its own lock; the map lock is not held
	// while tokens are taken.
	return b.limiter.Allow()
}

// evictIdleLocked drops buckets idle for a full cleanup interval. The
// caller holds l.mu.
func (l *Limiter) evictIdleLocked(now time.Time) {
	if l.config.CleanupInterval <= 0 || now.Sub(l.lastCleanup) < l.config.CleanupInterval {
		return
	}
	for ip, b := range l.perIP {
		if now.Sub(b.lastSeen) >= l.config.CleanupInterval {
			delete(l.perIP, ip)
		}
	}
	l.lastCleanup = now
}

// ClientIP extracts the originating client address, preferring the
// forwarding headers the edge proxy sets over the socket peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
