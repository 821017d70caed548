// Package routes classifies request paths into access-control categories.
// Classification is a pure function over an immutable, versioned table; the
// package performs no I/O.
package routes

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Category string

const (
	CategoryPublic             Category = "public"
	CategoryProtected          Category = "protected"
	CategoryOnboarding         Category = "onboarding"
	CategoryAuthPage           Category = "auth_page"
	CategoryPasswordReset      Category = "password_reset"
	CategoryBusinessRestricted Category = "business_restricted"
	CategoryAdminRestricted    Category = "admin_restricted"
)

// precedence orders categories for tie-breaking when two tables match a path
// at equal specificity. Earlier wins.
var precedence = []Category{
	CategoryPasswordReset,
	CategoryAuthPage,
	CategoryAdminRestricted,
	CategoryBusinessRestricted,
	CategoryOnboarding,
	CategoryProtected,
	CategoryPublic,
}

func precedenceRank(c Category) int {
	for i, cand := range precedence {
		if cand == c {
			return i
		}
	}
	return len(precedence)
}

// Table is a compiled, immutable route classification table. Build one with
// Compile; share it freely across goroutines.
type Table struct {
	version           string
	entries           []entry
	protectedPrefixes []string
	raw               map[Category][]string
}

type entry struct {
	pattern  pattern
	category Category
	rank     int
}

// Version reports the table version supplied at compile time.
func (t *Table) Version() string {
	return t.version
}

// Patterns returns the raw pattern lists per category, for the ops API dump.
// The returned map is a copy.
func (t *Table) Patterns() map[Category][]string {
	out := make(map[Category][]string, len(t.raw))
	for c, ps := range t.raw {
		out[c] = append([]string(nil), ps...)
	}
	return out
}

// ProtectedPrefixes returns the namespace prefixes that make unmatched paths
// default to Protected instead of Public.
func (t *Table) ProtectedPrefixes() []string {
	return append([]string(nil), t.protectedPrefixes...)
}

// Classify maps a request path to exactly one category. The path is cleaned
// and NFC-normalized first so Unicode look-alikes and dot segments cannot
// dodge a restricted table. Unmatched paths fall back per namespace: a
// configured protected prefix makes them Protected, everything else is Public.
func (t *Table) Classify(rawPath string) Category {
	p := NormalizePath(rawPath)
	segs := splitSegments(p)

	best := -1
	bestCategory := Category("")
	bestRank := 0
	for _, e := range t.entries {
		score, ok := e.pattern.match(segs)
		if !ok {
			continue
		}
		if score > best || (score == best && e.rank < bestRank) {
			best = score
			bestCategory = e.category
			bestRank = e.rank
		}
	}
	if best >= 0 {
		return bestCategory
	}

	for _, prefix := range t.protectedPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return CategoryProtected
		}
	}
	return CategoryPublic
}

// NormalizePath canonicalizes a request path for classification: NFC
// normalization, a guaranteed leading slash, dot-segment and duplicate-slash
// removal, and no trailing slash except on root.
func NormalizePath(raw string) string {
	p := norm.NFC.String(raw)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func splitSegments(p string) []string {
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}
