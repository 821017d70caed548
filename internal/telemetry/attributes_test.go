// SPDX-License-Identifier: MIT
package telemetry

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("GET", "/gate/v1/decide", "http://localhost:8080/gate/v1/decide", 204)

	if len(attrs) != 4 {
		t.Fatalf("Expected 4 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, HTTPMethodKey, "GET")
	verifyAttribute(t, attrs, HTTPRouteKey, "/gate/v1/decide")
	verifyAttribute(t, attrs, HTTPURLKey, "http://localhost:8080/gate/v1/decide")
	verifyIntAttribute(t, attrs, HTTPStatusCodeKey, 204)
}

func TestRouteAttributes(t *testing.T) {
	tests := []struct {
		name     string
		category string
		pattern  string
		version  string
		wantLen  int
	}{
		{
			name:     "all fields",
			category: "admin_restricted",
			pattern:  "/admin/*",
			version:  "2024-11-01",
			wantLen:  3,
		},
		{
			name:     "only category",
			category: "public",
			pattern:  "",
			version:  "",
			wantLen:  1,
		},
		{
			name:     "empty fields",
			category: "",
			pattern:  "",
			version:  "",
			wantLen:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := RouteAttributes(tt.category, tt.pattern, tt.version)

			if len(attrs) != tt.wantLen {
				t.Errorf("Expected %d attributes, got %d", tt.wantLen, len(attrs))
			}

			if tt.category != "" {
				verifyAttribute(t, attrs, RouteCategoryKey, tt.category)
			}
			if tt.pattern != "" {
				verifyAttribute(t, attrs, RoutePatternKey, tt.pattern)
			}
			if tt.version != "" {
				verifyAttribute(t, attrs, RouteVersionKey, tt.version)
			}
		})
	}
}

func TestDecisionAttributes(t *testing.T) {
	attrs := DecisionAttributes("redirect", "guest_protected", "/login")

	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, DecisionKindKey, "redirect")
	verifyAttribute(t, attrs, DecisionReasonKey, "guest_protected")
	verifyAttribute(t, attrs, DecisionTargetKey, "/login")
}

func TestDecisionAttributes_AllowOmitsTarget(t *testing.T) {
	attrs := DecisionAttributes("allow", "guest_public", "")

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, DecisionKindKey, "allow")
	verifyAttribute(t, attrs, DecisionReasonKey, "guest_public")
}

func TestIdentityAttributes(t *testing.T) {
	attrs := IdentityAttributes(true, false, "none")

	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}

	verifyBoolAttribute(t, attrs, IdentityPresentKey, true)
	verifyBoolAttribute(t, attrs, IdentityVerifiedKey, false)
	verifyAttribute(t, attrs, IdentityErrorClassKey, "none")
}

func TestProfileAttributes(t *testing.T) {
	attrs := ProfileAttributes(true, "BusinessOwner", "complete")

	if len(attrs) != 3 {
		t.Fatalf("Expected 3 attributes, got %d", len(attrs))
	}

	verifyBoolAttribute(t, attrs, ProfileKnownKey, true)
	verifyAttribute(t, attrs, ProfileRoleKey, "BusinessOwner")
	verifyAttribute(t, attrs, ProfileStepKey, "complete")
}

func TestGuardAttributes(t *testing.T) {
	attrs := GuardAttributes(2, true)

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyIntAttribute(t, attrs, GuardCountKey, 2)
	verifyBoolAttribute(t, attrs, GuardPrefetchKey, true)
}

func TestErrorAttributes(t *testing.T) {
	err := errors.New("test error")
	attrs := ErrorAttributes(err, "upstream_timeout")

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyBoolAttribute(t, attrs, ErrorKey, true)
	verifyAttribute(t, attrs, ErrorTypeKey, "upstream_timeout")
}

func TestAttributeKeys_Consistency(t *testing.T) {
	// Verify attribute keys follow OpenTelemetry conventions
	keys := []string{
		HTTPMethodKey,
		HTTPStatusCodeKey,
		HTTPRouteKey,
		RouteCategoryKey,
		DecisionKindKey,
		IdentityPresentKey,
		ProfileRoleKey,
		GuardCountKey,
		ErrorKey,
	}

	for _, key := range keys {
		if key == "" {
			t.Errorf("Expected non-empty attribute key")
		}
	}
}

// Helper functions for attribute verification

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, expectedValue string) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsString() != expectedValue {
				t.Errorf("Expected %s=%s, got %s", key, expectedValue, attr.Value.AsString())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsInt64() != int64(expectedValue) {
				t.Errorf("Expected %s=%d, got %d", key, expectedValue, attr.Value.AsInt64())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyBoolAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue bool) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsBool() != expectedValue {
				t.Errorf("Expected %s=%t, got %t", key, expectedValue, attr.Value.AsBool())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
