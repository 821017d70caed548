// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gate

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/routegate/internal/gate/problem"
	"github.com/ManuGH/routegate/internal/guard"
	"github.com/ManuGH/routegate/internal/identity"
	"github.com/ManuGH/routegate/internal/log"
	"github.com/ManuGH/routegate/internal/metrics"
	"github.com/ManuGH/routegate/internal/profile"
	"github.com/ManuGH/routegate/internal/routes"
	"github.com/ManuGH/routegate/internal/telemetry"
)

// Decision response headers. The edge proxy reads these; browsers only ever
// see the status code and Location.
const (
	HeaderDecision = "X-Gate-Decision"
	HeaderReason   = "X-Gate-Reason"
	HeaderRewrite  = "X-Gate-Rewrite"
)

// evaluation is the outcome of one pass through the decision pipeline.
type evaluation struct {
	path     string
	category routes.Category
	decision guard.Decision
	identity identity.Identity
	profile  profile.Status

	// state is the loop guard state to persist; nil clears the cookie.
	state    *guard.State
	hadPrior bool
	prefetch bool

	refreshed *identity.TokenPair
}

// evaluate runs classify, resolve identity, fetch profile, decide and
// loop-guard for the request described by rawPath, using the credentials and
// headers on r. It never fails: degraded upstreams surface as classified
// identity/profile states, exactly like the engine expects.
func (s *Server) evaluate(r *http.Request, rawPath string) evaluation {
	ctx := r.Context()
	start := time.Now()

	s.mu.RLock()
	engine, loop := s.engine, s.loop
	s.mu.RUnlock()

	table := s.table.Load()
	normPath := routes.NormalizePath(rawPath)
	category := table.Classify(rawPath)

	creds := identity.FromRequest(r)
	res := s.resolver.Resolve(ctx, creds)

	var prof profile.Status
	if res.Identity.Present && res.Identity.EmailVerified {
		prof = s.profiles.Fetch(ctx, res.Identity.UserID)
	}

	candidate := engine.Decide(guard.Input{
		Category: category,
		Path:     normPath,
		IsRoot:   normPath == "/",
		Referrer: r.Header.Get("Referer"),
		Identity: res.Identity,
		Profile:  prof,
	})

	prefetch := isPrefetch(r)
	var prior *guard.State
	hadPrior := false
	if c, err := r.Cookie(guard.CookieName); err == nil && c.Value != "" {
		hadPrior = true
		decoded, err := s.guardCodec().Decode(c.Value)
		if err != nil {
			metrics.RecordGuardTokenInvalid()
			log.FromContext(ctx).Debug().Err(err).
				Str("event", "gate.guard_token_invalid").
				Msg("guard cookie rejected, treating as absent")
		} else {
			prior = &decoded
		}
	}

	final, next := loop.Apply(candidate, normPath, prior, s.now(), prefetch)
	if final.Reason == guard.ReasonLoopBreak {
		metrics.RecordLoopBreak()
		log.FromContext(ctx).Warn().
			Str("event", "gate.loop_break").
			Str("path", normPath).
			Str("suppressed_target", candidate.Target).
			Msg("redirect chain exceeded the guard threshold, allowing through")
	}

	metrics.RecordDecision(string(final.Kind), string(final.Reason), final.Target, time.Since(start))

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(telemetry.RouteAttributes(string(category), "", table.Version())...)
	span.SetAttributes(telemetry.DecisionAttributes(string(final.Kind), string(final.Reason), final.Target)...)
	span.SetAttributes(telemetry.IdentityAttributes(res.Identity.Present, res.Identity.EmailVerified, string(res.Identity.ErrorClass))...)
	priorCount := 0
	if prior != nil {
		priorCount = prior.Count
	}
	span.SetAttributes(telemetry.GuardAttributes(priorCount, prefetch)...)

	log.FromContext(ctx).Debug().
		Str("event", "gate.decision").
		Str("path", normPath).
		Str("category", string(category)).
		Str("kind", string(final.Kind)).
		Str("reason", string(final.Reason)).
		Str("target", final.Target).
		Bool("prefetch", prefetch).
		Msg("decision evaluated")

	return evaluation{
		path:      normPath,
		category:  category,
		decision:  final,
		identity:  res.Identity,
		profile:   prof,
		state:     next,
		hadPrior:  hadPrior,
		prefetch:  prefetch,
		refreshed: res.Refreshed,
	}
}

// handleDecide serves the forward-auth endpoint. The edge proxy describes the
// end-user request with X-Forwarded-Uri (Traefik) or X-Original-URI (nginx
// auth_request) and forwards the user's cookies verbatim.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	rawURI, ok := forwardedURI(r)
	if !ok {
		problem.Write(w, r, http.StatusBadRequest,
			"gate/missing-forwarded-uri", "Missing Forwarded URI", "MISSING_FORWARDED_URI",
			"the decide endpoint requires X-Forwarded-Uri or X-Original-URI", nil)
		return
	}

	ev := s.evaluate(r, pathOnly(rawURI))
	s.applyGuardState(w, ev)
	s.applyCredentialSideEffects(w, ev)

	w.Header().Set(HeaderDecision, string(ev.decision.Kind))
	w.Header().Set(HeaderReason, string(ev.decision.Reason))

	switch ev.decision.Kind {
	case guard.KindRedirect:
		w.Header().Set("Location", ev.decision.Target)
		w.WriteHeader(http.StatusFound)
	case guard.KindRewrite:
		w.Header().Set(HeaderRewrite, ev.decision.Target)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// applyGuardState persists or clears the loop guard cookie. Prefetch requests
// leave the cookie exactly as it was.
func (s *Server) applyGuardState(w http.ResponseWriter, ev evaluation) {
	if ev.prefetch {
		return
	}
	switch {
	case ev.state != nil:
		s.writeGuardCookie(w, *ev.state)
	case ev.hadPrior:
		s.clearGuardCookie(w)
	}
}

func (s *Server) applyCredentialSideEffects(w http.ResponseWriter, ev evaluation) {
	switch {
	case ev.identity.ClearCredentials:
		s.clearCredentialCookies(w)
	case ev.refreshed != nil:
		s.setCredentialCookies(w, *ev.refreshed)
	}
}

func forwardedURI(r *http.Request) (string, bool) {
	if uri := r.Header.Get("X-Forwarded-Uri"); uri != "" {
		return uri, true
	}
	if uri := r.Header.Get("X-Original-URI"); uri != "" {
		return uri, true
	}
	return "", false
}

// pathOnly strips query and fragment; classification only ever sees paths.
func pathOnly(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return u.Path
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}
