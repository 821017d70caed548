package identity

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/routegate/internal/log"
	"github.com/ManuGH/routegate/internal/metrics"
)

// SessionAPI is the subset of the session backend the resolver needs.
type SessionAPI interface {
	GetSession(ctx context.Context, accessToken string) (Session, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// Options bounds the resolver. Zero Timeout, Backoff and MaxBackoff fall back
// to the defaults below; Retries and RefreshSkew are taken literally, so zero
// means no retry and no proactive refresh (the configuration defaults supply
// 2 and 30s).
type Options struct {
	Timeout     time.Duration
	Retries     int
	Backoff     time.Duration
	MaxBackoff  time.Duration
	RefreshSkew time.Duration
}

const (
	defaultTimeout    = 5 * time.Second
	defaultBackoff    = time.Second
	defaultMaxBackoff = 4 * time.Second
)

// Resolution carries the resolved identity plus any token pair produced by a
// proactive refresh, which the HTTP layer turns into fresh cookies.
type Resolution struct {
	Identity  Identity
	Refreshed *TokenPair
}

type Resolver struct {
	api    SessionAPI
	opts   Options
	logger zerolog.Logger
}

func NewResolver(api SessionAPI, opts Options) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	return &Resolver{
		api:    api,
		opts:   opts,
		logger: log.WithComponent("identity"),
	}
}

// Resolve classifies the request's session state. It never returns an error:
// every failure mode maps to an Identity the decision engine can act on.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) Resolution {
	if creds.Empty() {
		r.logger.Debug().Str("event", "identity.absent").Msg("no session material on request")
		metrics.RecordIdentityResolution(string(ErrorClassExpectedAbsent))
		return Resolution{Identity: Identity{ErrorClass: ErrorClassExpectedAbsent}}
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; ; attempt++ {
		sess, err := r.api.GetSession(ctx, creds.AccessToken)
		if err == nil {
			return r.resolved(ctx, creds, sess)
		}
		if IsFatal(err) {
			r.logger.Warn().Err(err).Str("event", "identity.fatal").Msg("credentials rejected, clearing session")
			metrics.RecordIdentityResolution(string(ErrorClassFatal))
			return Resolution{Identity: Identity{ErrorClass: ErrorClassFatal, ClearCredentials: true}}
		}
		lastErr = err
		if attempt >= r.opts.Retries || ctx.Err() != nil {
			break
		}
		metrics.RecordIdentityRetry()
		if !sleep(ctx, backoffDelay(r.opts.Backoff, r.opts.MaxBackoff, attempt)) {
			break
		}
	}

	r.logger.Warn().Err(lastErr).Str("event", "identity.transient").Msg("session backend unavailable, treating request as guest")
	metrics.RecordIdentityResolution(string(ErrorClassTransient))
	return Resolution{Identity: Identity{ErrorClass: ErrorClassTransient}}
}

func (r *Resolver) resolved(ctx context.Context, creds Credentials, sess Session) Resolution {
	res := Resolution{Identity: Identity{
		Present:       true,
		UserID:        sess.UserID,
		EmailVerified: sess.EmailVerified,
		ErrorClass:    ErrorClassNone,
	}}
	metrics.RecordIdentityResolution(string(ErrorClassNone))

	if r.opts.RefreshSkew <= 0 || sess.ExpiresAt.IsZero() || time.Until(sess.ExpiresAt) > r.opts.RefreshSkew {
		return res
	}
	if creds.RefreshToken == "" {
		metrics.RecordIdentityRefresh("skipped")
		return res
	}

	pair, err := r.api.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		// Optimization only: a failed refresh never fails the resolve.
		r.logger.Debug().Err(err).Str("event", "identity.refresh_failed").Msg("proactive refresh failed")
		metrics.RecordIdentityRefresh("failure")
		return res
	}
	metrics.RecordIdentityRefresh("success")
	res.Refreshed = &pair
	return res
}

func backoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	d := base << attempt
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
