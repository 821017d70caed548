// Package guard holds the decision engine and the redirect loop guard: pure
// functions from classified request state to a verdict. Nothing in this
// package performs I/O or touches the transport layer.
package guard

type Kind string

const (
	KindAllow    Kind = "allow"
	KindRedirect Kind = "redirect"
	KindRewrite  Kind = "rewrite"
)

type Reason string

const (
	ReasonPasswordReset            Reason = "password_reset"
	ReasonGuestPublic              Reason = "guest_public"
	ReasonGuestRootLanding         Reason = "guest_root_landing"
	ReasonGuestVerificationFlow    Reason = "guest_verification_flow"
	ReasonGuestProtected           Reason = "guest_protected"
	ReasonGuestLandingAlias        Reason = "guest_landing_alias"
	ReasonAuthPageGuest            Reason = "auth_page_guest"
	ReasonEmailUnverified          Reason = "email_unverified"
	ReasonAdminScope               Reason = "admin_scope"
	ReasonAdminRedirect            Reason = "admin_redirect"
	ReasonOwnerBusinessScope       Reason = "owner_business_scope"
	ReasonOwnerRedirect            Reason = "owner_redirect"
	ReasonProfileUnknownFailopen   Reason = "profile_unknown_failopen"
	ReasonProfileUnknownRestricted Reason = "profile_unknown_restricted"
	ReasonOnboardingStepAllowed    Reason = "onboarding_step_allowed"
	ReasonOnboardingStepGate       Reason = "onboarding_step_gate"
	ReasonOnboardingRequired       Reason = "onboarding_required"
	ReasonOnboardingDone           Reason = "onboarding_done"
	ReasonOnboardingCelebration    Reason = "onboarding_celebration"
	ReasonAuthPageAuthenticated    Reason = "auth_page_authenticated"
	ReasonRoleRestricted           Reason = "role_restricted"
	ReasonRootLanding              Reason = "root_landing"
	ReasonDefaultAllow             Reason = "default_allow"
	ReasonLoopBreak                Reason = "loop_break"
)

// Decision is the single verdict the gate produces per request.
type Decision struct {
	Kind   Kind
	Target string
	Reason Reason
}

func Allow(reason Reason) Decision {
	return Decision{Kind: KindAllow, Reason: reason}
}

func RedirectTo(target string, reason Reason) Decision {
	return Decision{Kind: KindRedirect, Target: target, Reason: reason}
}

func RewriteTo(target string, reason Reason) Decision {
	return Decision{Kind: KindRewrite, Target: target, Reason: reason}
}
