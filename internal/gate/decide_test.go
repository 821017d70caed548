// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/routegate/internal/guard"
	"github.com/ManuGH/routegate/internal/identity"
	"github.com/ManuGH/routegate/internal/profile"
)

// decideRequest builds a forward-auth request for uri carrying the given
// cookies and headers.
func decideRequest(uri string, cookies []*http.Cookie, headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/gate/v1/decide", nil)
	r.Header.Set("X-Forwarded-Uri", uri)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestDecide_MissingForwardedURI(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil, nil)
	rec := httptest.NewRecorder()
	s.handleDecide(rec, httptest.NewRequest(http.MethodGet, "/gate/v1/decide", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/problem+json") {
		t.Errorf("Content-Type = %q, want problem+json", ct)
	}
}

func TestDecide_AcceptsOriginalURIHeader(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil, nil)
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/gate/v1/decide", nil)
	r.Header.Set("X-Original-URI", "/trending")
	s.handleDecide(rec, r)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get(HeaderDecision); got != "allow" {
		t.Errorf("decision = %q, want allow", got)
	}
}

func TestDecide_GuestScenarios(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil, nil)

	tests := []struct {
		name         string
		uri          string
		wantStatus   int
		wantDecision string
		wantLocation string
		wantRewrite  string
		wantReason   string
	}{
		{
			name:         "public page allowed",
			uri:          "/trending",
			wantStatus:   http.StatusNoContent,
			wantDecision: "allow",
			wantReason:   "guest_public",
		},
		{
			name:         "query string is ignored for classification",
			uri:          "/search?q=pizza&page=2",
			wantStatus:   http.StatusNoContent,
			wantDecision: "allow",
			wantReason:   "guest_public",
		},
		{
			name:         "root lands on home",
			uri:          "/",
			wantStatus:   http.StatusFound,
			wantDecision: "redirect",
			wantLocation: "/home",
			wantReason:   "guest_root_landing",
		},
		{
			name:         "protected page bounces to login",
			uri:          "/write-review",
			wantStatus:   http.StatusFound,
			wantDecision: "redirect",
			wantLocation: "/login",
			wantReason:   "guest_protected",
		},
		{
			name:         "landing alias is rewritten",
			uri:          "/welcome",
			wantStatus:   http.StatusNoContent,
			wantDecision: "rewrite",
			wantRewrite:  "/home",
			wantReason:   "guest_landing_alias",
		},
		{
			name:         "login page renders",
			uri:          "/login",
			wantStatus:   http.StatusNoContent,
			wantDecision: "allow",
			wantReason:   "auth_page_guest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.handleDecide(rec, decideRequest(tt.uri, nil, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get(HeaderDecision); got != tt.wantDecision {
				t.Errorf("%s = %q, want %q", HeaderDecision, got, tt.wantDecision)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
			if got := rec.Header().Get(HeaderRewrite); got != tt.wantRewrite {
				t.Errorf("%s = %q, want %q", HeaderRewrite, got, tt.wantRewrite)
			}
			if got := rec.Header().Get(HeaderReason); got != tt.wantReason {
				t.Errorf("%s = %q, want %q", HeaderReason, got, tt.wantReason)
			}
		})
	}
}

func TestDecide_RoleScenarios(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionAPI{sessions: map[string]identity.Session{
		"tok-user":  verifiedSession("u-user"),
		"tok-admin": verifiedSession("u-admin"),
		"tok-owner": verifiedSession("u-owner"),
		"tok-step":  verifiedSession("u-step"),
	}}
	store := &fakeStoreAPI{records: map[string]profile.Record{
		"u-user":  {Role: "user", OnboardingComplete: true},
		"u-admin": {Role: "admin", OnboardingComplete: true},
		"u-owner": {Role: "business_owner", OnboardingComplete: true},
		"u-step":  {Role: "user", OnboardingStep: "subcategories"},
	}}
	s := newTestServer(t, testConfig(), sessions, store)

	tests := []struct {
		name         string
		token        string
		uri          string
		wantStatus   int
		wantLocation string
		wantReason   string
	}{
		{
			name:       "onboarded user opens profile",
			token:      "tok-user",
			uri:        "/profile",
			wantStatus: http.StatusNoContent,
			wantReason: "default_allow",
		},
		{
			name:         "onboarded user at root lands on home",
			token:        "tok-user",
			uri:          "/",
			wantStatus:   http.StatusFound,
			wantLocation: "/home",
			wantReason:   "root_landing",
		},
		{
			name:         "user is kept off admin pages",
			token:        "tok-user",
			uri:          "/admin/users",
			wantStatus:   http.StatusFound,
			wantLocation: "/home",
			wantReason:   "role_restricted",
		},
		{
			name:         "admin is pinned to the admin area",
			token:        "tok-admin",
			uri:          "/trending",
			wantStatus:   http.StatusFound,
			wantLocation: "/admin",
			wantReason:   "admin_redirect",
		},
		{
			name:       "admin opens admin pages",
			token:      "tok-admin",
			uri:        "/admin/users",
			wantStatus: http.StatusNoContent,
			wantReason: "admin_scope",
		},
		{
			name:         "owner is sent to the business dashboard",
			token:        "tok-owner",
			uri:          "/home",
			wantStatus:   http.StatusFound,
			wantLocation: "/my-businesses",
			wantReason:   "owner_redirect",
		},
		{
			name:         "mid-onboarding user is pulled back to their step",
			token:        "tok-step",
			uri:          "/deal-breakers",
			wantStatus:   http.StatusFound,
			wantLocation: "/subcategories",
			wantReason:   "onboarding_step_gate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			headers := map[string]string{"Authorization": "Bearer " + tt.token}
			s.handleDecide(rec, decideRequest(tt.uri, nil, headers))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
			if got := rec.Header().Get(HeaderReason); got != tt.wantReason {
				t.Errorf("%s = %q, want %q", HeaderReason, got, tt.wantReason)
			}
		})
	}
}

func TestDecide_RedirectSetsGuardCookie(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil, nil)
	rec := httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/write-review", nil, nil))

	c := findCookie(t, rec, guard.CookieName)
	if c == nil {
		t.Fatalf("redirect response missing guard cookie")
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("guard cookie attributes wrong: %+v", c)
	}
	if c.MaxAge != 5 {
		t.Errorf("guard cookie MaxAge = %d, want window seconds (5)", c.MaxAge)
	}

	st, err := s.codec.Decode(c.Value)
	if err != nil {
		t.Fatalf("decode guard cookie: %v", err)
	}
	if st.Count != 1 || st.LastTo != "/login" || st.LastFrom != "/write-review" {
		t.Errorf("guard state = %+v, want count 1 /write-review -> /login", st)
	}
}

func TestDecide_LoopBreaksOnThirdRedirect(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil, nil)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	// A guest who keeps re-requesting a protected path: each pass yields a
	// redirect until the guard steps in on the third in-window attempt.
	var cookie *http.Cookie
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		var cookies []*http.Cookie
		if cookie != nil {
			cookies = append(cookies, cookie)
		}
		s.handleDecide(rec, decideRequest("/write-review", cookies, nil))
		if rec.Code != http.StatusFound {
			t.Fatalf("pass %d: status = %d, want 302", i+1, rec.Code)
		}
		cookie = findCookie(t, rec, guard.CookieName)
		if cookie == nil {
			t.Fatalf("pass %d: missing guard cookie", i+1)
		}
		base = base.Add(time.Second)
	}

	rec := httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/write-review", []*http.Cookie{cookie}, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("third pass: status = %d, want 204 (loop break)", rec.Code)
	}
	if got := rec.Header().Get(HeaderReason); got != "loop_break" {
		t.Errorf("%s = %q, want loop_break", HeaderReason, got)
	}
	// The break clears the chain: the cookie is expired on the response.
	cleared := findCookie(t, rec, guard.CookieName)
	if cleared == nil || cleared.MaxAge != -1 {
		t.Errorf("loop break should expire the guard cookie, got %+v", cleared)
	}
}

func TestDecide_ExpiredWindowStartsFresh(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil, nil)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	rec := httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/write-review", nil, nil))
	cookie := findCookie(t, rec, guard.CookieName)
	if cookie == nil {
		t.Fatalf("missing guard cookie")
	}

	// Beyond the 5s window the chain restarts at count 1.
	base = base.Add(6 * time.Second)
	rec = httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/write-review", []*http.Cookie{cookie}, nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	next := findCookie(t, rec, guard.CookieName)
	if next == nil {
		t.Fatalf("missing refreshed guard cookie")
	}
	st, err := s.codec.Decode(next.Value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Count != 1 || !st.WindowStart.Equal(base) {
		t.Errorf("state = %+v, want fresh window at %v", st, base)
	}
}

func TestDecide_InvalidGuardCookieTreatedAbsent(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil, nil)
	bogus := &http.Cookie{Name: guard.CookieName, Value: "not.a.token"}

	rec := httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/write-review", []*http.Cookie{bogus}, nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	c := findCookie(t, rec, guard.CookieName)
	if c == nil {
		t.Fatalf("missing replacement guard cookie")
	}
	st, err := s.codec.Decode(c.Value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Count != 1 {
		t.Errorf("count = %d, want 1 (fresh window after rejected cookie)", st.Count)
	}
}

func TestDecide_PrefetchLeavesGuardStateAlone(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, testConfig(), nil, nil)

	rec := httptest.NewRecorder()
	headers := map[string]string{"Sec-Purpose": "prefetch;prerender"}
	s.handleDecide(rec, decideRequest("/write-review", nil, headers))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (prefetch still gets the verdict)", rec.Code)
	}
	if c := findCookie(t, rec, guard.CookieName); c != nil {
		t.Errorf("prefetch must not touch the guard cookie, got %+v", c)
	}
}

func TestDecide_FatalIdentityClearsCredentials(t *testing.T) {
	t.Parallel()

	// Empty session map: any token resolves to a definitive rejection.
	s := newTestServer(t, testConfig(), &fakeSessionAPI{}, nil)

	cookies := []*http.Cookie{
		{Name: identity.AccessCookieName, Value: "stale-token"},
		{Name: identity.RefreshCookieName, Value: "stale-refresh"},
	}
	rec := httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/write-review", cookies, nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (fatal resolves as guest)", rec.Code)
	}
	for _, name := range []string{identity.AccessCookieName, identity.RefreshCookieName} {
		c := findCookie(t, rec, name)
		if c == nil || c.MaxAge != -1 {
			t.Errorf("cookie %s not expired on fatal identity: %+v", name, c)
		}
	}
}

func TestDecide_TransientIdentityFailsOpenOnPublic(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionAPI{getErr: identity.ErrBackendUnavailable}
	s := newTestServer(t, testConfig(), sessions, nil)

	cookies := []*http.Cookie{{Name: identity.AccessCookieName, Value: "whatever"}}

	rec := httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/trending", cookies, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("public path during outage: status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/admin/users", cookies, nil))
	if rec.Code != http.StatusFound {
		t.Errorf("restricted path during outage: status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login" {
		t.Errorf("Location = %q, want /login (fail closed to login)", got)
	}
	// A transient failure must not clear the session cookies.
	if c := findCookie(t, rec, identity.AccessCookieName); c != nil {
		t.Errorf("transient failure expired the access cookie: %+v", c)
	}
}

func TestDecide_ProfileOutageFailsOpenExceptRestricted(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessionAPI{sessions: map[string]identity.Session{
		"tok": verifiedSession("u-1"),
	}}
	store := &fakeStoreAPI{err: profile.ErrStoreError}
	s := newTestServer(t, testConfig(), sessions, store)
	headers := map[string]string{"Authorization": "Bearer tok"}

	rec := httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/write-review", nil, headers))
	if rec.Code != http.StatusNoContent {
		t.Errorf("protected path with unknown profile: status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get(HeaderReason); got != "profile_unknown_failopen" {
		t.Errorf("%s = %q, want profile_unknown_failopen", HeaderReason, got)
	}

	rec = httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/admin/users", nil, headers))
	if rec.Code != http.StatusFound {
		t.Fatalf("restricted path with unknown profile: status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/home" {
		t.Errorf("Location = %q, want /home", got)
	}
}

func TestDecide_ProactiveRefreshSetsCookies(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Session.RefreshSkew = time.Minute

	sessions := &fakeSessionAPI{
		sessions: map[string]identity.Session{
			// Expires inside the skew, so the resolver refreshes.
			"tok": {UserID: "u-1", EmailVerified: true, ExpiresAt: time.Now().Add(10 * time.Second)},
		},
		refreshed: identity.TokenPair{
			AccessToken:  "fresh-access",
			RefreshToken: "fresh-refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
		},
	}
	store := &fakeStoreAPI{records: map[string]profile.Record{
		"u-1": {Role: "user", OnboardingComplete: true},
	}}
	s := newTestServer(t, cfg, sessions, store)

	cookies := []*http.Cookie{
		{Name: identity.AccessCookieName, Value: "tok"},
		{Name: identity.RefreshCookieName, Value: "refresh-tok"},
	}
	rec := httptest.NewRecorder()
	s.handleDecide(rec, decideRequest("/profile", cookies, nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	access := findCookie(t, rec, identity.AccessCookieName)
	if access == nil || access.Value != "fresh-access" {
		t.Errorf("access cookie = %+v, want fresh-access", access)
	}
	refresh := findCookie(t, rec, identity.RefreshCookieName)
	if refresh == nil || refresh.Value != "fresh-refresh" {
		t.Errorf("refresh cookie = %+v, want fresh-refresh", refresh)
	}
}
