package routes

import "testing"

func TestClassify_DefaultTables(t *testing.T) {
	t.Parallel()

	table, err := Compile("", nil, nil)
	if err != nil {
		t.Fatalf("compile default table: %v", err)
	}

	tests := []struct {
		name string
		path string
		want Category
	}{
		{"root is public", "/", CategoryPublic},
		{"home is public", "/home", CategoryPublic},
		{"guest landing is public", "/welcome", CategoryPublic},
		{"login is auth page", "/login", CategoryAuthPage},
		{"signup is auth page", "/signup", CategoryAuthPage},
		{"verify email is auth page", "/verify-email", CategoryAuthPage},
		{"forgot password is password reset", "/forgot-password", CategoryPasswordReset},
		{"reset with token is password reset", "/reset-password/abc123", CategoryPasswordReset},
		{"admin root is admin restricted", "/admin", CategoryAdminRestricted},
		{"admin subtree is admin restricted", "/admin/users/42", CategoryAdminRestricted},
		{"my businesses is business restricted", "/my-businesses", CategoryBusinessRestricted},
		{"business creation is business restricted", "/business/new", CategoryBusinessRestricted},
		{"business detail is public", "/business/blue-bottle", CategoryPublic},
		{"business reviews are public", "/business/blue-bottle/reviews", CategoryPublic},
		{"business edit outranks public detail", "/business/blue-bottle/edit", CategoryBusinessRestricted},
		{"business manage outranks public detail", "/business/blue-bottle/manage", CategoryBusinessRestricted},
		{"interests is onboarding", "/interests", CategoryOnboarding},
		{"subcategories is onboarding", "/subcategories", CategoryOnboarding},
		{"deal breakers is onboarding", "/deal-breakers", CategoryOnboarding},
		{"completion page is onboarding", "/onboarding/complete", CategoryOnboarding},
		{"profile is protected", "/profile", CategoryProtected},
		{"profile subtree is protected", "/profile/settings", CategoryProtected},
		{"write review is protected", "/write-review", CategoryProtected},
		{"review detail is public", "/reviews/42", CategoryPublic},
		{"review edit outranks public detail", "/reviews/42/edit", CategoryProtected},
		{"unmatched path defaults to public", "/some-random-page", CategoryPublic},
		{"unmatched app namespace defaults to protected", "/app/anything/at/all", CategoryProtected},
		{"app prefix itself defaults to protected", "/app", CategoryProtected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Classify(tt.path); got != tt.want {
				t.Fatalf("category mismatch: got=%q want=%q", got, tt.want)
			}
		})
	}
}

func TestClassify_PathNormalization(t *testing.T) {
	t.Parallel()

	table, err := Compile("", nil, nil)
	if err != nil {
		t.Fatalf("compile default table: %v", err)
	}

	tests := []struct {
		name string
		path string
		want Category
	}{
		{"trailing slash stripped", "/admin/", CategoryAdminRestricted},
		{"duplicate slashes collapsed", "//admin", CategoryAdminRestricted},
		{"dot segments resolved", "/home/../admin", CategoryAdminRestricted},
		{"missing leading slash added", "admin", CategoryAdminRestricted},
		{"empty path is root", "", CategoryPublic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Classify(tt.path); got != tt.want {
				t.Fatalf("category mismatch: got=%q want=%q", got, tt.want)
			}
		})
	}
}

func TestClassify_UnicodeLookalikes(t *testing.T) {
	t.Parallel()

	// Table written with a precomposed e-acute; request arrives decomposed.
	table, err := Compile("v1", map[string][]string{
		"protected": {"/café/orders"},
	}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if got := table.Classify("/café/orders"); got != CategoryProtected {
		t.Fatalf("decomposed path should hit the protected table, got=%q", got)
	}
}

func TestClassify_MostSpecificMatchWins(t *testing.T) {
	t.Parallel()

	table, err := Compile("v1", map[string][]string{
		"public":          {"/docs/*"},
		"adminRestricted": {"/docs/internal/*"},
	}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if got := table.Classify("/docs/guide"); got != CategoryPublic {
		t.Fatalf("shallow docs path: got=%q want=%q", got, CategoryPublic)
	}
	if got := table.Classify("/docs/internal/runbook"); got != CategoryAdminRestricted {
		t.Fatalf("deep internal path: got=%q want=%q", got, CategoryAdminRestricted)
	}
}

func TestClassify_PrecedenceBreaksTies(t *testing.T) {
	t.Parallel()

	// Identical literal pattern in two tables: password reset outranks auth page.
	table, err := Compile("v1", map[string][]string{
		"authPage":      {"/account/recover"},
		"passwordReset": {"/account/recover"},
	}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if got := table.Classify("/account/recover"); got != CategoryPasswordReset {
		t.Fatalf("tie should resolve by precedence: got=%q want=%q", got, CategoryPasswordReset)
	}
}

func TestClassify_ConfiguredTableReplacesDefaults(t *testing.T) {
	t.Parallel()

	table, err := Compile("v2", map[string][]string{
		"onboarding": {"/setup/interests"},
	}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if got := table.Classify("/setup/interests"); got != CategoryOnboarding {
		t.Fatalf("configured pattern: got=%q want=%q", got, CategoryOnboarding)
	}
	// The built-in onboarding list is gone once the category is configured.
	if got := table.Classify("/interests"); got != CategoryPublic {
		t.Fatalf("replaced default: got=%q want=%q", got, CategoryPublic)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	t.Parallel()

	table, err := Compile("", nil, nil)
	if err != nil {
		t.Fatalf("compile default table: %v", err)
	}

	first := table.Classify("/business/acme/edit")
	for i := 0; i < 50; i++ {
		if got := table.Classify("/business/acme/edit"); got != first {
			t.Fatalf("classification changed between calls: got=%q want=%q", got, first)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty becomes root", "", "/"},
		{"root stays root", "/", "/"},
		{"trailing slash stripped", "/login/", "/login"},
		{"dot segments resolved", "/a/b/../c", "/a/c"},
		{"duplicate slashes collapsed", "/a//b", "/a/b"},
		{"leading slash added", "login", "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePath(tt.in); got != tt.want {
				t.Fatalf("normalize mismatch: got=%q want=%q", got, tt.want)
			}
		})
	}
}
