// SPDX-License-Identifier: MIT

// Package devstack runs a development stand-in for the session backend and
// the profile store. It speaks the wire protocol the gate's clients expect
// and adds fault injection so failure handling can be rehearsed locally:
// per-endpoint latency, failure budgets and a rate-limit throttle.
package devstack

import (
	"errors"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ErrNotFound is returned by stores when no record matches.
var ErrNotFound = errors.New("devstack: not found")

// SessionRecord is one issued session. Token lookups resolve to the record;
// the user id keys it.
type SessionRecord struct {
	UserID        openapi_types.UUID `json:"user_id"`
	AccessToken   string             `json:"access_token"`
	RefreshToken  string             `json:"refresh_token"`
	EmailVerified bool               `json:"email_verified"`
	ExpiresAt     time.Time          `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time.
// A zero ExpiresAt never expires.
func (r SessionRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// ProfileRecord is one profile store row. The status endpoint serves a
// field-filtered projection of it.
type ProfileRecord struct {
	UserID             openapi_types.UUID  `json:"user_id"`
	Email              openapi_types.Email `json:"email"`
	Role               string              `json:"role"`
	OnboardingComplete bool                `json:"onboarding_complete"`
	OnboardingStep     string              `json:"onboarding_step"`
	InterestsCount     int                 `json:"interests_count"`
	SubcategoriesCount int                 `json:"subcategories_count"`
	DealBreakersCount  int                 `json:"deal_breakers_count"`
}

// statusFields enumerates every field the status endpoint can serve, in the
// order clients conventionally request them.
var statusFields = []string{
	"role", "onboarding_complete", "onboarding_step",
	"interests_count", "subcategories_count", "deal_breakers_count",
}

// fieldValue projects one named status field out of a row.
func fieldValue(rec ProfileRecord, field string) (any, bool) {
	switch field {
	case "role":
		return rec.Role, true
	case "onboarding_complete":
		return rec.OnboardingComplete, true
	case "onboarding_step":
		return rec.OnboardingStep, true
	case "interests_count":
		return rec.InterestsCount, true
	case "subcategories_count":
		return rec.SubcategoriesCount, true
	case "deal_breakers_count":
		return rec.DealBreakersCount, true
	default:
		return nil, false
	}
}
