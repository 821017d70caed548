// SPDX-License-Identifier: MIT

// Package validate provides configuration validation utilities for the routegate application.
package validate

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// Error represents a validation error
type Error struct {
	Field   string      // Field name that failed validation
	Value   interface{} // The invalid value
	Message string      // Human-readable error message
}

// Error implements the error interface
func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates validation errors and can produce a ValidationError when invalid.
type Validator struct {
	errors []Error
}

// ValidationError bundles multiple validation errors into a single error value.
type ValidationError struct {
	errors []Error
}

// New creates a new validator
func New() *Validator {
	return &Validator{
		errors: make([]Error, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string, value interface{}) {
	v.errors = append(v.errors, Error{
		Field:   field,
		Value:   value,
		Message: message,
	})
}

// IsValid returns true if no errors have been accumulated
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Errors returns all accumulated validation errors
func (v *Validator) Errors() []Error {
	return v.errors
}

// Err converts the accumulated validation errors into an error value.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}

	copied := make([]Error, len(v.errors))
	copy(copied, v.errors)

	return ValidationError{errors: copied}
}

// Errors returns the individual validation errors making up the validation failure.
func (e ValidationError) Errors() []Error {
	return e.errors
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	if len(e.errors) == 0 {
		return ""
	}

	if len(e.errors) == 1 {
		return e.errors[0].Error()
	}

	// Multiple errors - format as list
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// URL validates a URL string
func (v *Validator) URL(field, value string, allowedSchemes []string) {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}

	u, err := url.Parse(value)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid URL: %v", err), value)
		return
	}

	if u.Host == "" {
		v.AddError(field, "URL must have a host", value)
		return
	}

	// Check allowed schemes
	if len(allowedSchemes) > 0 {
		schemeValid := false
		for _, scheme := range allowedSchemes {
			if u.Scheme == scheme {
				schemeValid = true
				break
			}
		}
		if !schemeValid {
			v.AddError(field,
				fmt.Sprintf("unsupported URL scheme %q (allowed: %v)", u.Scheme, allowedSchemes),
				value)
		}
	}
}

// Range validates that an integer is within a specified range (inclusive)
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field,
			fmt.Sprintf("value must be between %d and %d, got %d", minVal, maxVal, value),
			value)
	}
}

// NotEmpty validates that a string is not empty or whitespace-only
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field,
		fmt.Sprintf("value must be one of %v, got %q", allowed, value),
		value)
}

// Positive validates that a number is positive (> 0)
func (v *Validator) Positive(field string, value int) {
	if value <= 0 {
		v.AddError(field, fmt.Sprintf("value must be positive, got %d", value), value)
	}
}

// NonNegative validates that a number is non-negative (>= 0)
func (v *Validator) NonNegative(field string, value int) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("value cannot be negative, got %d", value), value)
	}
}

// MinDuration validates that a duration is at least the given floor
func (v *Validator) MinDuration(field string, value, floor time.Duration) {
	if value < floor {
		v.AddError(field,
			fmt.Sprintf("duration must be at least %s, got %s", floor, value),
			value)
	}
}

// RoutePath validates an application route path: rooted, no scheme or host,
// no traversal, no query or fragment. Used for route tables and redirect targets.
func (v *Validator) RoutePath(field, value string) {
	if value == "" {
		v.AddError(field, "route path cannot be empty", value)
		return
	}
	if !strings.HasPrefix(value, "/") {
		v.AddError(field, fmt.Sprintf("route path must start with /, got %q", value), value)
		return
	}
	if strings.Contains(value, "://") || strings.HasPrefix(value, "//") {
		v.AddError(field, fmt.Sprintf("route path must not carry a scheme or host: %q", value), value)
		return
	}
	if strings.ContainsAny(value, "?#") {
		v.AddError(field, fmt.Sprintf("route path must not contain query or fragment: %q", value), value)
		return
	}
	if strings.Contains(value, "..") {
		v.AddError(field, fmt.Sprintf("route path contains traversal: %q", value), value)
		return
	}
	// Patterns may end in /* (prefix match); clean the stem only.
	stem := strings.TrimSuffix(value, "/*")
	if stem == "" {
		stem = "/"
	}
	if cleaned := path.Clean(stem); cleaned != stem && stem != "/" {
		v.AddError(field, fmt.Sprintf("route path is not canonical: %q (want %q)", value, cleaned), value)
	}
}

// Secret validates a shared secret: non-empty and long enough for HMAC use.
// The value itself is never recorded in the error.
func (v *Validator) Secret(field, value string, minBytes int) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "secret cannot be empty", "")
		return
	}
	if len(value) < minBytes {
		v.AddError(field, fmt.Sprintf("secret must be at least %d bytes", minBytes), "")
	}
}
