// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPUserAgentKey  = "http.user_agent"

	// Route classification attributes
	RouteCategoryKey = "route.category"
	RoutePatternKey  = "route.pattern"
	RouteVersionKey  = "route.table_version"

	// Decision attributes
	DecisionKindKey   = "decision.kind"
	DecisionReasonKey = "decision.reason"
	DecisionTargetKey = "decision.target"

	// Identity attributes
	IdentityPresentKey    = "identity.present"
	IdentityVerifiedKey   = "identity.email_verified"
	IdentityErrorClassKey = "identity.error_class"

	// Profile attributes
	ProfileKnownKey = "profile.known"
	ProfileRoleKey  = "profile.role"
	ProfileStepKey  = "profile.onboarding_step"

	// Loop guard attributes
	GuardCountKey    = "guard.redirect_count"
	GuardPrefetchKey = "guard.prefetch"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// RouteAttributes creates route-classification span attributes.
func RouteAttributes(category, pattern, tableVersion string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if category != "" {
		attrs = append(attrs, attribute.String(RouteCategoryKey, category))
	}
	if pattern != "" {
		attrs = append(attrs, attribute.String(RoutePatternKey, pattern))
	}
	if tableVersion != "" {
		attrs = append(attrs, attribute.String(RouteVersionKey, tableVersion))
	}
	return attrs
}

// DecisionAttributes creates decision-related span attributes.
func DecisionAttributes(kind, reason, target string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(DecisionKindKey, kind),
		attribute.String(DecisionReasonKey, reason),
	}
	if target != "" {
		attrs = append(attrs, attribute.String(DecisionTargetKey, target))
	}
	return attrs
}

// IdentityAttributes creates identity-resolution span attributes.
func IdentityAttributes(present, emailVerified bool, errorClass string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(IdentityPresentKey, present),
		attribute.Bool(IdentityVerifiedKey, emailVerified),
		attribute.String(IdentityErrorClassKey, errorClass),
	}
}

// ProfileAttributes creates profile-lookup span attributes.
func ProfileAttributes(known bool, role, onboardingStep string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ProfileKnownKey, known),
		attribute.String(ProfileRoleKey, role),
		attribute.String(ProfileStepKey, onboardingStep),
	}
}

// GuardAttributes creates loop-guard span attributes.
func GuardAttributes(redirectCount int, prefetch bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(GuardCountKey, redirectCount),
		attribute.Bool(GuardPrefetchKey, prefetch),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
