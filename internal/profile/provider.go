package profile

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/routegate/internal/log"
	"github.com/ManuGH/routegate/internal/metrics"
	"github.com/ManuGH/routegate/internal/resilience"
)

// StoreAPI is the subset of the profile store the provider needs.
type StoreAPI interface {
	GetStatus(ctx context.Context, userID string, fields []string) (Record, error)
}

const defaultFetchTimeout = 3 * time.Second

// Provider turns store rows into normalized Status values. A circuit breaker
// around the store call short-circuits fetches while the store is unhealthy.
type Provider struct {
	store   StoreAPI
	breaker *resilience.CircuitBreaker
	timeout time.Duration
	logger  zerolog.Logger
}

// NewProvider builds a provider. A nil breaker disables circuit breaking;
// a non-positive timeout falls back to 3s.
func NewProvider(store StoreAPI, breaker *resilience.CircuitBreaker, timeout time.Duration) *Provider {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Provider{
		store:   store,
		breaker: breaker,
		timeout: timeout,
		logger:  log.WithComponent("profile"),
	}
}

// Fetch resolves the profile status for a user. It never returns an error:
// every failure mode maps to Known false.
func (p *Provider) Fetch(ctx context.Context, userID string) Status {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		rec      Record
		reduced  bool
		notFound bool
	)
	call := func() error {
		var err error
		rec, err = p.store.GetStatus(ctx, userID, PrimaryFields)
		if IsSchemaDrift(err) {
			metrics.RecordProfileSchemaDrift()
			p.logger.Warn().Err(err).Str("event", "profile.schema_drift").Msg("primary field set rejected, retrying reduced")
			rec, err = p.store.GetStatus(ctx, userID, ReducedFields)
			if err == nil {
				reduced = true
			}
		}
		if errors.Is(err, ErrNotFound) {
			// A missing row is a healthy store answering; it must not trip
			// the breaker.
			notFound = true
			return nil
		}
		return err
	}

	err := p.execute(call)
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		p.logger.Debug().Str("event", "profile.breaker_open").Str("user_id", userID).Msg("profile fetch short-circuited")
		metrics.RecordProfileFetch("breaker_open")
		return Status{}
	case err != nil:
		p.logger.Warn().Err(err).Str("event", "profile.unavailable").Str("user_id", userID).Msg("profile fetch failed, treating status as unknown")
		metrics.RecordProfileFetch("error")
		return Status{}
	case notFound:
		p.logger.Debug().Str("event", "profile.absent").Str("user_id", userID).Msg("no profile row yet")
		metrics.RecordProfileFetch("absent")
		return Status{}
	}

	if reduced {
		metrics.RecordProfileFetch("reduced")
	} else {
		metrics.RecordProfileFetch("ok")
	}
	return Status{
		Known:              true,
		Role:               NormalizeRole(rec.Role),
		OnboardingComplete: rec.OnboardingComplete,
		OnboardingStep:     NormalizeStep(rec.OnboardingStep),
	}
}

func (p *Provider) execute(fn func() error) error {
	if p.breaker == nil {
		return fn()
	}
	return p.breaker.Execute(fn)
}
