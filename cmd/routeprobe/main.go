package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ManuGH/routegate/internal/config"
)

// Wire contract of the gate, as seen by an external client. The probe
// deliberately speaks the raw protocol instead of importing the server types.
const (
	headerDecision  = "X-Gate-Decision"
	headerReason    = "X-Gate-Reason"
	guardCookieName = "rg_redirect_guard"
)

// maxLoopAttempts bounds the redirect chain the loop check is willing to
// follow before declaring the guard broken. Default guard config trips after
// two redirects; a deployment with a higher threshold still fits.
const maxLoopAttempts = 8

type ProbeReport struct {
	Timestamp    time.Time         `json:"timestamp"`
	BaseURL      string            `json:"base_url"`
	TableVersion string            `json:"table_version,omitempty"`
	Checks       []CheckResult     `json:"checks"`
	Environment  map[string]string `json:"environment"`
}

type CheckResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	LatencyMs int64  `json:"latency_ms"`
	Details   string `json:"details,omitempty"`
	Body      string `json:"body,omitempty"` // Captured body on failure
}

// The gate answers redirects itself; following them would turn a 302 decision
// into a fetch of the target page.
var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

var (
	baseURLFlag = flag.String("base-url", "", "Override GATE_BASE_URL")
	tokenFlag   = flag.String("token", "", "Override GATE_AUTH_BEARER (needs gate:admin for the full check set)")
	pathFlag    = flag.String("protected-path", "", "Override GATE_PROBE_PATH: a path guests must not reach")
)

func main() {
	flag.Parse()
	cfg := ProbeConfig{
		BaseURL:       *baseURLFlag,
		Token:         *tokenFlag,
		ProtectedPath: *pathFlag,
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Probe failed: %v\n", err)
		os.Exit(1)
	}
}

type ProbeConfig struct {
	BaseURL       string
	Token         string
	ProtectedPath string
}

func run(cfg ProbeConfig) error {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.ParseString("GATE_BASE_URL", "")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	token := cfg.Token
	if token == "" {
		token = config.ParseString("GATE_AUTH_BEARER", "")
	}

	report := ProbeReport{
		Timestamp: time.Now(),
		BaseURL:   baseURL,
		Checks:    make([]CheckResult, 0),
		Environment: map[string]string{
			"USER": config.ParseString("USER", ""),
		},
	}

	// Helper to capture body in error
	runCheck := func(name string, fn func() (string, error)) {
		start := time.Now()
		bodyCaptured, err := fn()
		latency := time.Since(start).Milliseconds()

		res := CheckResult{
			Name:      name,
			Passed:    err == nil,
			LatencyMs: latency,
			Body:      bodyCaptured,
		}
		if err != nil {
			res.Details = err.Error()
		}
		report.Checks = append(report.Checks, res)
		if err != nil {
			fmt.Printf("FAIL: %s (%s)\n", name, err)
		} else {
			fmt.Printf("PASS: %s (%dms)\n", name, latency)
		}
	}

	// 0. Server Identity (Is a gate mounted at this base URL at all?)
	runCheck("Server_Identity", func() (string, error) {
		// 200 (token worked) and 401/403 (auth required) both prove the gate
		// is there. 404 means the decision API is not mounted.
		code, _, bodyBytes, err := doRequest("GET", baseURL+"/gate/v1/routes", nil, token)
		if err != nil {
			return "", fmt.Errorf("net error: %v", err)
		}
		if code == http.StatusNotFound {
			return string(bodyBytes), fmt.Errorf("server returned 404 (Not Found) - gate API likely not mounted")
		}
		if code >= 500 {
			return string(bodyBytes), fmt.Errorf("server error: %d", code)
		}
		return string(bodyBytes), nil
	})

	// 1. System probes
	runCheck("Liveness", func() (string, error) {
		code, _, bodyBytes, err := doRequest("GET", baseURL+"/healthz", nil, "")
		if err != nil {
			return "", fmt.Errorf("net error: %v", err)
		}
		if code != http.StatusOK {
			return string(bodyBytes), fmt.Errorf("failed status: %d", code)
		}
		return "", nil
	})

	runCheck("Readiness", func() (string, error) {
		// A 503 body names the degraded checker, so capture it for the report.
		code, _, bodyBytes, err := doRequest("GET", baseURL+"/readyz", nil, "")
		if err != nil {
			return "", fmt.Errorf("net error: %v", err)
		}
		if code != http.StatusOK {
			return string(bodyBytes), fmt.Errorf("not ready: %d", code)
		}
		return "", nil
	})

	// 2. Setup: resolve the live table and a concrete login-gated path
	var protectedPath, tableVersion string
	runCheck("Setup_FetchRoutes", func() (string, error) {
		// Priority 1: explicit flag / env var
		if cfg.ProtectedPath != "" {
			protectedPath = cfg.ProtectedPath
		} else if p := config.ParseString("GATE_PROBE_PATH", ""); p != "" {
			protectedPath = p
		}

		code, _, bodyBytes, err := doRequest("GET", baseURL+"/gate/v1/routes", nil, token)
		if err != nil {
			return "", fmt.Errorf("net error: %v", err)
		}
		if code != http.StatusOK {
			return string(bodyBytes), fmt.Errorf("failed status: %d (a token with gate:read is required)", code)
		}

		var dump struct {
			Version           string              `json:"version"`
			PatternCount      int                 `json:"patternCount"`
			Tables            map[string][]string `json:"tables"`
			ProtectedPrefixes []string            `json:"protectedPrefixes"`
		}
		if err := json.Unmarshal(bodyBytes, &dump); err != nil {
			return string(bodyBytes), fmt.Errorf("decode failed: %v", err)
		}
		if dump.Version == "" {
			return string(bodyBytes), fmt.Errorf("route table version is empty")
		}
		if dump.PatternCount == 0 {
			return string(bodyBytes), fmt.Errorf("route table has no patterns")
		}
		tableVersion = dump.Version

		if protectedPath == "" {
			protectedPath = deriveProtectedPath(dump.Tables["protected"], dump.ProtectedPrefixes)
		}
		return "", nil
	})

	if protectedPath == "" {
		fmt.Println("FATAL: Could not resolve a protected path. Will skip decision flow checks.")
	}

	// 3. Error contract (RFC 7807, fail closed)
	runCheck("Ops_401_RFC7807", func() (string, error) {
		// Anonymous explain must be rejected by the scope middleware, not by
		// the handler's own validation.
		return checkProblem(baseURL+"/gate/v1/explain", http.StatusUnauthorized, "UNAUTHORIZED", "")
	})

	runCheck("Decide_MissingURI_RFC7807", func() (string, error) {
		return checkProblem(baseURL+"/gate/v1/decide", http.StatusBadRequest, "MISSING_FORWARDED_URI", "")
	})

	// 4. Decision flow
	if protectedPath != "" {
		runCheck("Decide_Guest_Protected", func() (string, error) {
			resp, bodyBytes, err := decide(baseURL, protectedPath, "")
			if err != nil {
				return "", fmt.Errorf("net error: %v", err)
			}
			if resp.StatusCode != http.StatusFound {
				return string(bodyBytes), fmt.Errorf("expected 302 for a guest on %s, got %d", protectedPath, resp.StatusCode)
			}
			if resp.Header.Get("Location") == "" {
				return string(bodyBytes), fmt.Errorf("redirect without Location header")
			}
			if d := resp.Header.Get(headerDecision); d != "redirect" {
				return string(bodyBytes), fmt.Errorf("%s mismatch: got %q want %q", headerDecision, d, "redirect")
			}
			return "", nil
		})

		runCheck("Guard_Loop_Break", func() (string, error) {
			// Replay the decision for the same path, carrying the guard cookie
			// forward like a browser would. The chain must end in an allow
			// with reason loop_break, never in an endless redirect.
			cookie := ""
			for attempt := 1; attempt <= maxLoopAttempts; attempt++ {
				resp, bodyBytes, err := decide(baseURL, protectedPath, cookie)
				if err != nil {
					return "", fmt.Errorf("net error on attempt %d: %v", attempt, err)
				}
				switch resp.StatusCode {
				case http.StatusFound:
					next := guardCookieValue(resp)
					if next == "" {
						return string(bodyBytes), fmt.Errorf("redirect on attempt %d did not set the guard cookie", attempt)
					}
					cookie = next
				case http.StatusNoContent:
					if reason := resp.Header.Get(headerReason); reason != "loop_break" {
						return string(bodyBytes), fmt.Errorf("chain ended with reason %q, want loop_break", reason)
					}
					return "", nil
				default:
					return string(bodyBytes), fmt.Errorf("unexpected status %d on attempt %d", resp.StatusCode, attempt)
				}
			}
			return "", fmt.Errorf("loop guard never tripped after %d redirects", maxLoopAttempts)
		})
	}

	// 5. Explain (admin scope, trace must be populated)
	if token != "" {
		runCheck("Explain_Trace", func() (string, error) {
			u := baseURL + "/gate/v1/explain?path=" + url.QueryEscape("/") + "&authenticated=true&verified=true&role=admin"
			code, _, bodyBytes, err := doRequest("GET", u, nil, token)
			if err != nil {
				return "", fmt.Errorf("net error: %v", err)
			}
			if code == http.StatusForbidden {
				return string(bodyBytes), fmt.Errorf("token lacks gate:admin (403)")
			}
			if code != http.StatusOK {
				return string(bodyBytes), fmt.Errorf("failed status: %d", code)
			}

			var exp struct {
				TableVersion string `json:"tableVersion"`
				Decision     struct {
					Kind   string `json:"kind"`
					Reason string `json:"reason"`
				} `json:"decision"`
				Trace []json.RawMessage `json:"trace"`
			}
			if err := json.Unmarshal(bodyBytes, &exp); err != nil {
				return string(bodyBytes), fmt.Errorf("decode failed: %v", err)
			}
			if exp.Decision.Kind == "" {
				return string(bodyBytes), fmt.Errorf("decision kind is empty")
			}
			if len(exp.Trace) == 0 {
				return string(bodyBytes), fmt.Errorf("trace is empty")
			}
			if tableVersion != "" && exp.TableVersion != tableVersion {
				return string(bodyBytes), fmt.Errorf("table version drifted: routes=%s explain=%s", tableVersion, exp.TableVersion)
			}
			return "", nil
		})
	}

	report.TableVersion = tableVersion

	// Output Report
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	// Fail if any checks failed
	for _, c := range report.Checks {
		if !c.Passed {
			return fmt.Errorf("one or more checks failed")
		}
	}
	return nil
}

// Wraps http.NewRequest + Auth Injection + Client.Do + Body Read
func doRequest(method, urlStr string, body io.Reader, token string) (int, http.Header, []byte, error) {
	req, err := http.NewRequest(method, urlStr, body)
	if err != nil {
		return 0, nil, nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	return resp.StatusCode, resp.Header, bodyBytes, err
}

// decide calls the forward-auth endpoint the way an edge proxy would: path in
// X-Forwarded-Uri, guard state in the cookie, no operator token.
func decide(baseURL, forwardedURI, guardCookie string) (*http.Response, []byte, error) {
	req, err := http.NewRequest("GET", baseURL+"/gate/v1/decide", nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("X-Forwarded-Uri", forwardedURI)
	if guardCookie != "" {
		req.AddCookie(&http.Cookie{Name: guardCookieName, Value: guardCookie})
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	return resp, bodyBytes, err
}

func guardCookieValue(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == guardCookieName {
			return c.Value
		}
	}
	return ""
}

func checkProblem(urlStr string, expectedStatus int, expectedCode, token string) (string, error) {
	code, header, bodyBytes, err := doRequest("GET", urlStr, nil, token)
	if err != nil {
		return "", err
	}

	if code != expectedStatus {
		return string(bodyBytes), fmt.Errorf("status mismatch: got %d want %d", code, expectedStatus)
	}

	contentType := header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/problem+json") {
		return string(bodyBytes), fmt.Errorf("content-type mismatch: got %s", contentType)
	}

	var prob struct {
		Code      string `json:"code"`
		Title     string `json:"title"`
		Status    int    `json:"status"`
		Instance  string `json:"instance"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(bodyBytes, &prob); err != nil {
		return string(bodyBytes), fmt.Errorf("invalid json body: %v", err)
	}

	if prob.Code != expectedCode {
		return string(bodyBytes), fmt.Errorf("code mismatch: got %s want %s", prob.Code, expectedCode)
	}
	if prob.Status != expectedStatus {
		return string(bodyBytes), fmt.Errorf("body status mismatch: got %d want %d", prob.Status, expectedStatus)
	}
	if prob.RequestID == "" {
		return string(bodyBytes), fmt.Errorf("problem response carries no requestId")
	}

	// Check instance contains path
	u, _ := url.Parse(urlStr)
	if !strings.Contains(prob.Instance, u.Path) {
		return string(bodyBytes), fmt.Errorf("instance path mismatch: got %s, expected to contain %s", prob.Instance, u.Path)
	}

	return string(bodyBytes), nil
}

// deriveProtectedPath picks a concrete login-gated path from the live table:
// an exact protected pattern if one exists, else a protected namespace prefix,
// else a pattern with its parameters substituted.
func deriveProtectedPath(patterns, prefixes []string) string {
	for _, p := range patterns {
		if p != "/" && !strings.ContainsAny(p, "{}*") {
			return p
		}
	}
	for _, prefix := range prefixes {
		if prefix != "" && prefix != "/" {
			return strings.TrimSuffix(prefix, "/") + "/probe"
		}
	}
	for _, p := range patterns {
		if concrete := substitutePattern(p); concrete != "" {
			return concrete
		}
	}
	return ""
}

// substitutePattern turns a table pattern into one matching concrete path.
// "/reviews/{id}/edit" becomes "/reviews/probe/edit"; a malformed pattern
// yields "".
func substitutePattern(p string) string {
	if p == "" || p == "/" || !strings.HasPrefix(p, "/") {
		return ""
	}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, part := range parts {
		switch {
		case part == "*":
			parts[i] = "probe"
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			parts[i] = "probe"
		case strings.ContainsAny(part, "{}*"):
			return ""
		}
	}
	return "/" + strings.Join(parts, "/")
}
