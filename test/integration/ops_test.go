// SPDX-License-Identifier: MIT

//go:build integration
// +build integration

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/routegate/internal/config"
	"github.com/ManuGH/routegate/internal/gate/problem"
)

// get issues a plain GET against the gate, without forward-auth headers.
func (s *stack) get(t *testing.T, path string, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, s.Gate.URL+path, nil)
	require.NoError(t, err, "build request")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := noRedirect.Do(req)
	require.NoError(t, err, "request %s should reach the gate", path)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err, "read response body")
	return string(b)
}

// problemDoc mirrors the RFC 7807 body the gate emits.
type problemDoc struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
}

func decodeProblem(t *testing.T, res *http.Response) problemDoc {
	t.Helper()
	assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"), "problem content type")

	var doc problemDoc
	require.NoError(t, json.NewDecoder(res.Body).Decode(&doc), "decode problem body")
	return doc
}

// TestOperatorRouteDump reads the active classification table through the
// scoped operator endpoint.
func TestOperatorRouteDump(t *testing.T) {
	st := startStack(t, nil)

	res := st.get(t, "/gate/v1/routes", bearer("ops-token"))
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get(problem.HeaderRequestID), "every response carries a request id")

	var dump struct {
		Version           string              `json:"version"`
		PatternCount      int                 `json:"patternCount"`
		Tables            map[string][]string `json:"tables"`
		ProtectedPrefixes []string            `json:"protectedPrefixes"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&dump))

	assert.Equal(t, "default", dump.Version)
	assert.Positive(t, dump.PatternCount)
	assert.Contains(t, dump.Tables["protected"], "/profile")
	assert.Contains(t, dump.ProtectedPrefixes, "/app")

	// The dump is not public.
	res = st.get(t, "/gate/v1/routes", nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	doc := decodeProblem(t, res)
	assert.Equal(t, "UNAUTHORIZED", doc.Code)

	t.Logf("✅ Route dump served %d patterns from table %q", dump.PatternCount, dump.Version)
}

// TestProblemResponses checks the RFC 7807 contract on the two canonical
// error paths: missing operator token and missing forwarded URI.
func TestProblemResponses(t *testing.T) {
	st := startStack(t, nil)

	res := st.get(t, "/gate/v1/explain?path=/profile", nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	doc := decodeProblem(t, res)
	assert.Equal(t, "UNAUTHORIZED", doc.Code)
	assert.Equal(t, http.StatusUnauthorized, doc.Status)
	assert.NotEmpty(t, doc.RequestID)
	assert.Equal(t, "/gate/v1/explain", doc.Instance)

	// A decide call without the forwarded URI is an edge misconfiguration and
	// must say so instead of guessing a path.
	res = st.get(t, "/gate/v1/decide", nil)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	doc = decodeProblem(t, res)
	assert.Equal(t, "MISSING_FORWARDED_URI", doc.Code)
	assert.NotEmpty(t, doc.RequestID)

	t.Logf("✅ Problem responses carried code, instance and request id")
}

// TestExplainTrace asks the admin explain endpoint for a full rule trace of a
// synthetic identity.
func TestExplainTrace(t *testing.T) {
	st := startStack(t, nil)

	res := st.get(t, "/gate/v1/explain?path=/profile&authenticated=true&verified=true&onboarding_complete=true", bearer("ops-token"))
	require.Equal(t, http.StatusOK, res.StatusCode)

	var explain struct {
		Path         string `json:"path"`
		Category     string `json:"category"`
		TableVersion string `json:"tableVersion"`
		Decision     struct {
			Kind   string `json:"kind"`
			Target string `json:"target"`
			Reason string `json:"reason"`
		} `json:"decision"`
		Trace []struct {
			Rule    string `json:"rule"`
			Matched bool   `json:"matched"`
		} `json:"trace"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&explain))

	assert.Equal(t, "/profile", explain.Path)
	assert.Equal(t, "protected", explain.Category)
	assert.Equal(t, "default", explain.TableVersion)
	assert.Equal(t, "allow", explain.Decision.Kind)
	assert.Equal(t, "default_allow", explain.Decision.Reason)
	require.NotEmpty(t, explain.Trace, "explain must include the rule trace")

	t.Logf("✅ Explain traced %d rules to %s/%s", len(explain.Trace), explain.Decision.Kind, explain.Decision.Reason)
}

// TestHealthProbes exercises liveness and readiness with both backends up.
func TestHealthProbes(t *testing.T) {
	st := startStack(t, nil)

	res := st.get(t, "/healthz", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode, "liveness")

	res = st.get(t, "/readyz", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode, "readiness with live backends")
}

// TestProxyModeServesUpstream runs the gate as the embedded proxy in front of
// an echo upstream: allowed paths stream the upstream body, redirects answer
// 307 before the upstream is touched, and rewrites swap the path invisibly.
func TestProxyModeServesUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "upstream:%s", r.URL.Path)
	}))
	t.Cleanup(upstream.Close)

	st := startStack(t, func(cfg *config.AppConfig) {
		cfg.Mode = config.ModeProxy
		cfg.UpstreamURL = upstream.URL
	})

	res := st.get(t, "/trending", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, "public page proxies through")
	assert.Equal(t, "upstream:/trending", readBody(t, res))

	res = st.get(t, "/", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, res.StatusCode, "root redirects before the upstream")
	assert.Equal(t, "/home", res.Header.Get("Location"))

	res = st.get(t, "/welcome", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, "alias rewrites inside the proxy")
	assert.Equal(t, "upstream:/home", readBody(t, res), "upstream sees the rewrite target")

	res = st.get(t, "/profile", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, res.StatusCode, "protected page redirects for guests")
	assert.Equal(t, "/login", res.Header.Get("Location"))

	t.Logf("✅ Proxy mode proxied, redirected and rewrote as decided")
}
