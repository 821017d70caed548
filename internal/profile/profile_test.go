package profile

import "testing"

func TestNormalizeRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Role
	}{
		{"canonical user", "User", RoleUser},
		{"lowercase user", "user", RoleUser},
		{"canonical owner", "BusinessOwner", RoleBusinessOwner},
		{"snake case owner", "business_owner", RoleBusinessOwner},
		{"spaced owner", "Business Owner", RoleBusinessOwner},
		{"hyphenated owner", "business-owner", RoleBusinessOwner},
		{"owner synonym", "owner", RoleBusinessOwner},
		{"merchant synonym", "merchant", RoleBusinessOwner},
		{"canonical admin", "Admin", RoleAdmin},
		{"administrator synonym", "ADMINISTRATOR", RoleAdmin},
		{"super admin", "super_admin", RoleAdmin},
		{"empty defaults to user", "", RoleUser},
		{"garbage defaults to user", "??weird-role!!", RoleUser},
		{"unknown role defaults to user", "moderator", RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRole(tt.in); got != tt.want {
				t.Fatalf("role mismatch: got=%q want=%q", got, tt.want)
			}
		})
	}
}

func TestNormalizeStep(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want OnboardingStep
	}{
		{"interests", "interests", StepInterests},
		{"subcategories", "Subcategories", StepSubcategories},
		{"deal breakers snake", "deal_breakers", StepDealBreakers},
		{"deal breakers hyphen", "deal-breakers", StepDealBreakers},
		{"deal breakers joined", "dealbreakers", StepDealBreakers},
		{"complete", "complete", StepComplete},
		{"completed synonym", "Completed", StepComplete},
		{"unknown is empty", "warmup", ""},
		{"empty stays empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeStep(tt.in); got != tt.want {
				t.Fatalf("step mismatch: got=%q want=%q", got, tt.want)
			}
		})
	}
}

func TestStepIndexOrdering(t *testing.T) {
	t.Parallel()

	if StepInterests.Index() >= StepSubcategories.Index() {
		t.Fatal("interests must come before subcategories")
	}
	if StepSubcategories.Index() >= StepDealBreakers.Index() {
		t.Fatal("subcategories must come before deal breakers")
	}
	if StepDealBreakers.Index() >= StepComplete.Index() {
		t.Fatal("deal breakers must come before complete")
	}
	if OnboardingStep("").Index() != -1 {
		t.Fatal("unknown step must index below the first step")
	}
}
