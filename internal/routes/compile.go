package routes

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// categoryByKey maps configuration table keys to categories.
var categoryByKey = map[string]Category{
	"passwordReset":      CategoryPasswordReset,
	"authPage":           CategoryAuthPage,
	"adminRestricted":    CategoryAdminRestricted,
	"businessRestricted": CategoryBusinessRestricted,
	"onboarding":         CategoryOnboarding,
	"protected":          CategoryProtected,
	"public":             CategoryPublic,
}

// DefaultProtectedPrefixes returns the namespaces whose unmatched paths
// classify as Protected instead of Public.
func DefaultProtectedPrefixes() []string {
	return []string{"/app"}
}

// defaultTables holds the built-in classification tables. A configured table
// replaces the built-in list for its category wholesale.
func defaultTables() map[Category][]string {
	return map[Category][]string{
		CategoryPasswordReset: {"/forgot-password", "/reset-password", "/reset-password/{token}"},
		CategoryAuthPage:      {"/login", "/signup", "/verify-email"},
		CategoryAdminRestricted: {
			"/admin", "/admin/*",
		},
		CategoryBusinessRestricted: {
			"/my-businesses", "/my-businesses/*", "/business/new",
			"/business/{slug}/edit", "/business/{slug}/manage", "/business/{slug}/analytics",
		},
		CategoryOnboarding: {
			"/interests", "/subcategories", "/deal-breakers", "/onboarding/complete",
		},
		CategoryProtected: {
			"/profile", "/profile/*", "/settings", "/settings/*",
			"/write-review", "/saved", "/recommendations", "/reviews/{id}/edit",
		},
		CategoryPublic: {
			"/", "/home", "/welcome", "/trending", "/explore", "/search",
			"/categories", "/categories/{slug}", "/business/{slug}",
			"/business/{slug}/reviews", "/reviews/{id}", "/users/{id}",
			"/about", "/terms", "/privacy",
		},
	}
}

// Compile builds an immutable Table from configuration. tables keys are the
// configuration category names; a present key replaces the built-in patterns
// for that category. A nil protectedPrefixes slice keeps the defaults.
func Compile(version string, tables map[string][]string, protectedPrefixes []string) (*Table, error) {
	if version == "" {
		version = "default"
	}

	merged := defaultTables()
	for key, patterns := range tables {
		c, ok := categoryByKey[key]
		if !ok {
			return nil, fmt.Errorf("routes: unknown category %q", key)
		}
		merged[c] = append([]string(nil), patterns...)
	}

	if protectedPrefixes == nil {
		protectedPrefixes = DefaultProtectedPrefixes()
	}
	prefixes := make([]string, 0, len(protectedPrefixes))
	for _, raw := range protectedPrefixes {
		p := NormalizePath(raw)
		if p == "/" {
			return nil, fmt.Errorf("routes: protected prefix %q would cover the whole path space", raw)
		}
		prefixes = append(prefixes, p)
	}

	t := &Table{
		version:           version,
		protectedPrefixes: prefixes,
		raw:               make(map[Category][]string, len(merged)),
	}
	for _, c := range precedence {
		for _, rawPat := range merged[c] {
			pat, err := parsePattern(rawPat)
			if err != nil {
				return nil, fmt.Errorf("routes: category %s: %w", c, err)
			}
			t.entries = append(t.entries, entry{pattern: pat, category: c, rank: precedenceRank(c)})
		}
		t.raw[c] = append([]string(nil), merged[c]...)
	}
	return t, nil
}

type pattern struct {
	raw      string
	segments []patternSegment
	wildcard bool
}

type patternSegment struct {
	literal string
	param   bool
}

// parsePattern compiles one path pattern. Literal segments are NFC-normalized
// so a table written in decomposed form still matches normalized paths.
func parsePattern(raw string) (pattern, error) {
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return pattern{}, fmt.Errorf("pattern %q must start with /", raw)
	}
	if strings.ContainsAny(raw, "?#") {
		return pattern{}, fmt.Errorf("pattern %q must not contain query or fragment", raw)
	}
	if raw == "/" {
		return pattern{raw: raw}, nil
	}

	p := pattern{raw: raw}
	parts := strings.Split(strings.TrimPrefix(raw, "/"), "/")
	for i, part := range parts {
		switch {
		case part == "":
			return pattern{}, fmt.Errorf("pattern %q has an empty segment", raw)
		case part == "*":
			if i != len(parts)-1 {
				return pattern{}, fmt.Errorf("pattern %q: * is only valid as the final segment", raw)
			}
			p.wildcard = true
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			if len(part) == 2 {
				return pattern{}, fmt.Errorf("pattern %q has an unnamed parameter", raw)
			}
			p.segments = append(p.segments, patternSegment{param: true})
		case strings.ContainsAny(part, "{}*"):
			return pattern{}, fmt.Errorf("pattern %q mixes literal and wildcard characters in one segment", raw)
		default:
			p.segments = append(p.segments, patternSegment{literal: norm.NFC.String(part)})
		}
	}
	return p, nil
}

// match reports whether the path segments satisfy the pattern and, if so, a
// specificity score. Literal segments outrank parameters, and exact-length
// patterns outrank trailing-wildcard ones.
func (p pattern) match(segs []string) (int, bool) {
	if p.wildcard {
		if len(segs) <= len(p.segments) {
			return 0, false
		}
	} else if len(segs) != len(p.segments) {
		return 0, false
	}

	score := 0
	for i, ps := range p.segments {
		if ps.param {
			if segs[i] == "" {
				return 0, false
			}
			score += 2
			continue
		}
		if segs[i] != ps.literal {
			return 0, false
		}
		score += 8
	}
	if !p.wildcard {
		score += 4
	}
	return score, true
}
