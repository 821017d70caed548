package guard

import (
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// The decision layer must stay transport-free: it receives resolved state and
// returns a verdict. Anything HTTP-shaped belongs to the gate package.
func TestGuard_NoForbiddenImports(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedImports}
	pkgs, err := packages.Load(cfg,
		"github.com/ManuGH/routegate/internal/guard",
		"github.com/ManuGH/routegate/internal/routes",
	)
	if err != nil {
		t.Fatalf("failed to load packages: %v", err)
	}

	forbiddenPatterns := []string{
		"net/http",
		"github.com/go-chi/chi",
		"github.com/ManuGH/routegate/internal/gate",
	}

	for _, pkg := range pkgs {
		for imp := range pkg.Imports {
			for _, pattern := range forbiddenPatterns {
				if strings.Contains(imp, pattern) {
					t.Errorf("forbidden import found in domain package %s: %s (matches pattern %s)", pkg.PkgPath, imp, pattern)
				}
			}
		}
	}
}
