// Package main - forward-auth client for the soak harness.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	headerDecision  = "X-Gate-Decision"
	headerReason    = "X-Gate-Reason"
	guardCookieName = "rg_redirect_guard"
)

// gateClient drives the gate the way an edge proxy would.
type gateClient struct {
	baseURL    string
	httpClient *http.Client
}

func newGateClient(baseURL string) *gateClient {
	return &gateClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			// The gate's redirect answers are the payload under test.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// decideResult captures one decide round trip.
type decideResult struct {
	Status      int
	Decision    string
	Reason      string
	Location    string
	GuardCookie string
	Latency     time.Duration
	Err         error
}

// Decide evaluates one forwarded URI. token and guardCookie are optional.
func (c *gateClient) Decide(forwardedURI, token, guardCookie string) decideResult {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/gate/v1/decide", nil)
	if err != nil {
		return decideResult{Err: err}
	}
	req.Header.Set("X-Forwarded-Uri", forwardedURI)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if guardCookie != "" {
		req.AddCookie(&http.Cookie{Name: guardCookieName, Value: guardCookie})
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return decideResult{Latency: latency, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}()

	out := decideResult{
		Status:   res.StatusCode,
		Decision: res.Header.Get(headerDecision),
		Reason:   res.Header.Get(headerReason),
		Location: res.Header.Get("Location"),
		Latency:  latency,
	}
	for _, ck := range res.Cookies() {
		if ck.Name == guardCookieName && ck.MaxAge >= 0 {
			out.GuardCookie = ck.Value
		}
	}
	return out
}

// FetchPaths loads the active route table and turns its patterns into a
// request corpus. Requires a token with gate:read.
func (c *gateClient) FetchPaths(token string) ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/gate/v1/routes", nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routes endpoint answered %d", res.StatusCode)
	}

	var dump struct {
		Tables map[string][]string `json:"tables"`
	}
	if err := json.NewDecoder(res.Body).Decode(&dump); err != nil {
		return nil, err
	}

	var paths []string
	for _, patterns := range dump.Tables {
		for _, pattern := range patterns {
			if p := substitutePattern(pattern); p != "" {
				paths = append(paths, p)
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("route table produced no usable paths")
	}
	return paths, nil
}

// substitutePattern turns a route pattern into a concrete request path by
// filling parameters and wildcards. Malformed mixed segments yield "".
func substitutePattern(pattern string) string {
	if pattern == "/" {
		return "/"
	}
	segments := strings.Split(strings.TrimPrefix(pattern, "/"), "/")
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch {
		case seg == "*":
			out = append(out, "soak")
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			out = append(out, "soak")
		case strings.ContainsAny(seg, "{}*"):
			return ""
		default:
			out = append(out, seg)
		}
	}
	return "/" + strings.Join(out, "/")
}

// defaultPaths is the fallback corpus covering every route class of the
// built-in table.
func defaultPaths() []string {
	return []string{
		"/", "/home", "/trending", "/search", "/about", "/welcome",
		"/login", "/signup", "/verify-email", "/forgot-password",
		"/profile", "/settings", "/saved", "/write-review",
		"/interests", "/subcategories", "/deal-breakers",
		"/admin", "/my-businesses", "/app/inbox",
	}
}

// pathCorpus resolves the request corpus: the live route table when an
// operator token is available, the built-in defaults otherwise.
func pathCorpus(cfg Config, client *gateClient) []string {
	if cfg.Token != "" {
		paths, err := client.FetchPaths(cfg.Token)
		if err == nil {
			return paths
		}
		fmt.Printf("[Corpus] route table fetch failed (%v), using defaults\n", err)
	}
	return defaultPaths()
}
