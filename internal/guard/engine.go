// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package guard

import (
	"net/url"
	"strings"

	"github.com/ManuGH/routegate/internal/identity"
	"github.com/ManuGH/routegate/internal/profile"
	"github.com/ManuGH/routegate/internal/routes"
)

// Params fixes the route targets the engine redirects to. Zero fields are
// filled from DefaultParams by NewEngine so callers only override what they
// configure.
type Params struct {
	LoginRoute       string
	VerifyEmailRoute string
	HomeRoute        string
	AdminHomeRoute   string
	OwnerHomeRoute   string
	ProfileRoute     string
	CompletionRoute  string

	// GuestLandingFrom is rewritten to GuestLandingTo for anonymous
	// visitors. This is the only rewrite the engine ever produces.
	GuestLandingFrom string
	GuestLandingTo   string

	// PersonalOnly lists pages that only make sense for personal accounts.
	// Business owners are sent to their dashboard instead.
	PersonalOnly []string

	StepRoutes map[profile.OnboardingStep]string
}

func DefaultParams() Params {
	return Params{
		LoginRoute:       "/login",
		VerifyEmailRoute: "/verify-email",
		HomeRoute:        "/home",
		AdminHomeRoute:   "/admin",
		OwnerHomeRoute:   "/my-businesses",
		ProfileRoute:     "/profile",
		CompletionRoute:  "/onboarding/complete",
		GuestLandingFrom: "/welcome",
		GuestLandingTo:   "/home",
		PersonalOnly: []string{
			"/home",
			"/recommendations",
			"/trending",
			"/explore",
			"/saved",
			"/write-review",
			"/profile",
		},
		StepRoutes: map[profile.OnboardingStep]string{
			profile.StepInterests:     "/interests",
			profile.StepSubcategories: "/subcategories",
			profile.StepDealBreakers:  "/deal-breakers",
			profile.StepComplete:      "/onboarding/complete",
		},
	}
}

// Input carries everything a single decision depends on. Decide never looks
// beyond it, which keeps the engine deterministic and trivially testable.
type Input struct {
	Category routes.Category
	Path     string
	IsRoot   bool
	Referrer string
	Identity identity.Identity
	Profile  profile.Status
}

type Engine struct {
	params       Params
	personalOnly map[string]struct{}
	stepByRoute  map[string]profile.OnboardingStep
}

func NewEngine(params Params) *Engine {
	def := DefaultParams()
	if params.LoginRoute == "" {
		params.LoginRoute = def.LoginRoute
	}
	if params.VerifyEmailRoute == "" {
		params.VerifyEmailRoute = def.VerifyEmailRoute
	}
	if params.HomeRoute == "" {
		params.HomeRoute = def.HomeRoute
	}
	if params.AdminHomeRoute == "" {
		params.AdminHomeRoute = def.AdminHomeRoute
	}
	if params.OwnerHomeRoute == "" {
		params.OwnerHomeRoute = def.OwnerHomeRoute
	}
	if params.ProfileRoute == "" {
		params.ProfileRoute = def.ProfileRoute
	}
	if params.CompletionRoute == "" {
		params.CompletionRoute = def.CompletionRoute
	}
	if params.GuestLandingFrom == "" {
		params.GuestLandingFrom = def.GuestLandingFrom
	}
	if params.GuestLandingTo == "" {
		params.GuestLandingTo = def.GuestLandingTo
	}
	if params.PersonalOnly == nil {
		params.PersonalOnly = def.PersonalOnly
	}
	if params.StepRoutes == nil {
		params.StepRoutes = def.StepRoutes
	}

	e := &Engine{
		params:       params,
		personalOnly: make(map[string]struct{}, len(params.PersonalOnly)),
		stepByRoute:  make(map[string]profile.OnboardingStep, len(params.StepRoutes)),
	}
	for _, p := range params.PersonalOnly {
		e.personalOnly[routes.NormalizePath(p)] = struct{}{}
	}
	for step, route := range params.StepRoutes {
		e.stepByRoute[routes.NormalizePath(route)] = step
	}
	return e
}

// Decide maps one classified request to a verdict. Rules are ordered and the
// first match wins; identical inputs always yield identical outputs.
func (e *Engine) Decide(in Input) Decision {
	if in.Category == routes.CategoryPasswordReset {
		return Allow(ReasonPasswordReset)
	}

	if !in.Identity.Present {
		if in.Category == routes.CategoryAuthPage {
			return Allow(ReasonAuthPageGuest)
		}
		return e.decideGuest(in)
	}

	if !in.Identity.EmailVerified {
		return e.decideUnverified(in)
	}

	if !in.Profile.Known {
		return e.decideUnknownProfile(in)
	}

	switch in.Profile.Role {
	case profile.RoleAdmin:
		return e.decideAdmin(in)
	case profile.RoleBusinessOwner:
		return e.decideOwner(in)
	default:
		return e.decideUser(in)
	}
}

func (e *Engine) decideGuest(in Input) Decision {
	if in.Path == e.params.GuestLandingFrom {
		return RewriteTo(e.params.GuestLandingTo, ReasonGuestLandingAlias)
	}
	if in.IsRoot {
		return RedirectTo(e.params.HomeRoute, ReasonGuestRootLanding)
	}
	if in.Category == routes.CategoryPublic {
		return Allow(ReasonGuestPublic)
	}
	// Protected, Onboarding, BusinessRestricted, AdminRestricted.
	if e.referrerFromVerification(in.Referrer) {
		return RedirectTo(e.params.VerifyEmailRoute, ReasonGuestVerificationFlow)
	}
	return RedirectTo(e.params.LoginRoute, ReasonGuestProtected)
}

func (e *Engine) decideUnverified(in Input) Decision {
	switch in.Category {
	case routes.CategoryProtected, routes.CategoryOnboarding,
		routes.CategoryBusinessRestricted, routes.CategoryAdminRestricted:
		return RedirectTo(e.params.VerifyEmailRoute, ReasonEmailUnverified)
	}
	// Public pages and the auth pages themselves stay reachable so the user
	// can read the site, re-send the mail, or sign out.
	return Allow(ReasonDefaultAllow)
}

func (e *Engine) decideUnknownProfile(in Input) Decision {
	switch in.Category {
	case routes.CategoryAdminRestricted, routes.CategoryBusinessRestricted:
		return RedirectTo(e.params.HomeRoute, ReasonProfileUnknownRestricted)
	}
	return Allow(ReasonProfileUnknownFailopen)
}

func (e *Engine) decideAdmin(in Input) Decision {
	if in.Category == routes.CategoryAdminRestricted {
		return Allow(ReasonAdminScope)
	}
	return RedirectTo(e.params.AdminHomeRoute, ReasonAdminRedirect)
}

func (e *Engine) decideOwner(in Input) Decision {
	if in.IsRoot || e.isPersonalOnly(in.Path) {
		return RedirectTo(e.params.OwnerHomeRoute, ReasonOwnerRedirect)
	}
	switch in.Category {
	case routes.CategoryBusinessRestricted:
		return Allow(ReasonOwnerBusinessScope)
	case routes.CategoryOnboarding, routes.CategoryProtected, routes.CategoryAdminRestricted:
		return RedirectTo(e.params.OwnerHomeRoute, ReasonOwnerRedirect)
	case routes.CategoryAuthPage:
		return RedirectTo(e.params.OwnerHomeRoute, ReasonAuthPageAuthenticated)
	}
	return Allow(ReasonDefaultAllow)
}

func (e *Engine) decideUser(in Input) Decision {
	if in.Profile.OnboardingComplete {
		return e.decideOnboardedUser(in)
	}
	return e.decideOnboardingUser(in)
}

func (e *Engine) decideOnboardingUser(in Input) Decision {
	current := in.Profile.OnboardingStep.Index()
	if current < 0 {
		// Unknown or missing step: treat the user as standing on the first
		// step so its page stays reachable.
		current = profile.StepInterests.Index()
	}
	switch in.Category {
	case routes.CategoryOnboarding:
		if step, ok := e.stepByRoute[in.Path]; ok && step.Index() <= current {
			return Allow(ReasonOnboardingStepAllowed)
		}
		return RedirectTo(e.stepRoute(current), ReasonOnboardingStepGate)
	case routes.CategoryProtected:
		return RedirectTo(e.stepRoute(profile.StepInterests.Index()), ReasonOnboardingRequired)
	case routes.CategoryAuthPage:
		return RedirectTo(e.stepRoute(current), ReasonAuthPageAuthenticated)
	case routes.CategoryAdminRestricted:
		return RedirectTo(e.params.HomeRoute, ReasonRoleRestricted)
	}
	if in.IsRoot {
		return RedirectTo(e.params.HomeRoute, ReasonRootLanding)
	}
	return Allow(ReasonDefaultAllow)
}

func (e *Engine) decideOnboardedUser(in Input) Decision {
	switch in.Category {
	case routes.CategoryOnboarding:
		if in.Path == e.params.CompletionRoute {
			return Allow(ReasonOnboardingCelebration)
		}
		return RedirectTo(e.params.ProfileRoute, ReasonOnboardingDone)
	case routes.CategoryAuthPage:
		return RedirectTo(e.params.ProfileRoute, ReasonAuthPageAuthenticated)
	case routes.CategoryAdminRestricted:
		return RedirectTo(e.params.HomeRoute, ReasonRoleRestricted)
	}
	if in.IsRoot {
		return RedirectTo(e.params.HomeRoute, ReasonRootLanding)
	}
	return Allow(ReasonDefaultAllow)
}

func (e *Engine) isPersonalOnly(path string) bool {
	_, ok := e.personalOnly[path]
	return ok
}

func (e *Engine) stepRoute(index int) string {
	for step, route := range e.params.StepRoutes {
		if step.Index() == index {
			return route
		}
	}
	return e.params.StepRoutes[profile.StepInterests]
}

func (e *Engine) referrerFromVerification(referrer string) bool {
	if referrer == "" {
		return false
	}
	if u, err := url.Parse(referrer); err == nil && u.Path != "" {
		return routes.NormalizePath(u.Path) == e.params.VerifyEmailRoute
	}
	return strings.Contains(referrer, e.params.VerifyEmailRoute)
}
