// Package profile resolves the role and onboarding snapshot behind a resolved
// identity. Failures degrade to an unknown status; the package never returns
// an error to the decision layer.
package profile

import "strings"

type Role string

const (
	RoleUser          Role = "User"
	RoleBusinessOwner Role = "BusinessOwner"
	RoleAdmin         Role = "Admin"
)

type OnboardingStep string

const (
	StepInterests     OnboardingStep = "interests"
	StepSubcategories OnboardingStep = "subcategories"
	StepDealBreakers  OnboardingStep = "deal_breakers"
	StepComplete      OnboardingStep = "complete"
)

// Status is the per-request profile snapshot. Known false means the store
// failed or the row does not exist yet, which is distinct from an incomplete
// onboarding.
type Status struct {
	Known              bool
	Role               Role
	OnboardingComplete bool
	OnboardingStep     OnboardingStep
}

// stepOrder positions steps for at-or-before comparisons.
var stepOrder = map[OnboardingStep]int{
	StepInterests:     0,
	StepSubcategories: 1,
	StepDealBreakers:  2,
	StepComplete:      3,
}

// Index returns the step's position in the onboarding sequence, or -1 for an
// unknown step.
func (s OnboardingStep) Index() int {
	if i, ok := stepOrder[s]; ok {
		return i
	}
	return -1
}

// NormalizeRole maps free-form role strings from storage to exactly one role.
// Unrecognized input normalizes to RoleUser.
func NormalizeRole(raw string) Role {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	switch key {
	case "admin", "administrator", "superadmin":
		return RoleAdmin
	case "businessowner", "business", "owner", "merchant":
		return RoleBusinessOwner
	default:
		return RoleUser
	}
}

// NormalizeStep maps free-form step strings to the step enum. Unrecognized
// input normalizes to the empty step, which the decision engine treats as
// before the first step.
func NormalizeStep(raw string) OnboardingStep {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "interests":
		return StepInterests
	case "subcategories":
		return StepSubcategories
	case "deal_breakers", "dealbreakers":
		return StepDealBreakers
	case "complete", "completed", "done":
		return StepComplete
	default:
		return ""
	}
}
