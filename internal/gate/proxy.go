// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gate

import (
	"fmt"
	"net/http"
	"net/http/httputil"

	"github.com/ManuGH/routegate/internal/gate/problem"
	"github.com/ManuGH/routegate/internal/guard"
	"github.com/ManuGH/routegate/internal/log"
	rgnet "github.com/ManuGH/routegate/internal/platform/net"
)

// newProxyHandler builds the embedded-proxy data plane. Every request runs the
// decision pipeline first: Allow proxies to the upstream unchanged, Redirect
// answers 307 with the guard cookie, Rewrite proxies the alias target while
// the browser keeps the original URL.
func (s *Server) newProxyHandler(upstream string) (http.Handler, error) {
	if upstream == "" {
		return nil, fmt.Errorf("gate: proxy mode requires an upstream URL")
	}
	target, err := rgnet.ParseHTTPURL(upstream)
	if err != nil {
		return nil, fmt.Errorf("gate: upstream URL %q: %w", upstream, err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	if s.httpClient != nil && s.httpClient.Transport != nil {
		proxy.Transport = s.httpClient.Transport
	}

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = target.Host
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.FromContext(r.Context()).Error().Err(err).
			Str("event", "gate.upstream_error").
			Str("path", r.URL.Path).
			Msg("upstream request failed")
		problem.Write(w, r, http.StatusBadGateway,
			"gate/upstream-unavailable", "Upstream Unavailable", "UPSTREAM_UNAVAILABLE",
			"the application upstream did not answer", nil)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ev := s.evaluate(r, r.URL.Path)
		s.applyGuardState(w, ev)
		s.applyCredentialSideEffects(w, ev)

		switch ev.decision.Kind {
		case guard.KindRedirect:
			// 307 keeps the method; the decision targets are all pages, but a
			// POST caught mid-redirect should not silently become a GET.
			http.Redirect(w, r, ev.decision.Target, http.StatusTemporaryRedirect)
		case guard.KindRewrite:
			r2 := r.Clone(r.Context())
			r2.URL.Path = ev.decision.Target
			r2.URL.RawPath = ""
			proxy.ServeHTTP(w, r2)
		default:
			proxy.ServeHTTP(w, r)
		}
	}), nil
}
