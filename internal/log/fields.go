// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldUserID        = "user_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Gate fields
	FieldPath           = "path"
	FieldCategory       = "category"
	FieldDecision       = "decision"
	FieldTarget         = "target"
	FieldReason         = "reason"
	FieldRole           = "role"
	FieldErrorClass     = "error_class"
	FieldOnboardingStep = "onboarding_step"

	// Timing / diagnostics
	FieldDurationMS = "duration_ms"
	FieldAttempt    = "attempt"
	FieldStatus     = "status"
)
