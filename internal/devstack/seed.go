package devstack

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Well-known access tokens. Each one lands a request in a distinct state of
// the gate's decision matrix, so every redirect path can be exercised with
// nothing but a Cookie or Authorization header.
const (
	TokenAdmin      = "dev-admin-token"      // admin, complete
	TokenUser       = "dev-user-token"       // regular user, complete
	TokenOwner      = "dev-owner-token"      // business owner, complete
	TokenOnboarding = "dev-onboarding-token" // regular user stuck at subcategories
	TokenUnverified = "dev-unverified-token" // session without verified email
	TokenExpired    = "dev-expired-token"    // session past its expiry
	TokenGhost      = "dev-ghost-token"      // verified session with no profile row
)

// Refresh tokens pair with the access tokens above.
const (
	RefreshAdmin      = "dev-admin-refresh"
	RefreshUser       = "dev-user-refresh"
	RefreshOwner      = "dev-owner-refresh"
	RefreshOnboarding = "dev-onboarding-refresh"
	RefreshUnverified = "dev-unverified-refresh"
	RefreshExpired    = "dev-expired-refresh"
	RefreshGhost      = "dev-ghost-refresh"
)

// Fixed user ids keep curl transcripts and test assertions stable across
// re-seeds.
var (
	UserAdmin      = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	UserComplete   = uuid.MustParse("22222222-2222-4222-8222-222222222222")
	UserOwner      = uuid.MustParse("33333333-3333-4333-8333-333333333333")
	UserOnboarding = uuid.MustParse("44444444-4444-4444-8444-444444444444")
	UserUnverified = uuid.MustParse("55555555-5555-4555-8555-555555555555")
	UserExpired    = uuid.MustParse("66666666-6666-4666-8666-666666666666")
	UserGhost      = uuid.MustParse("77777777-7777-4777-8777-777777777777")
)

// Seed writes the default fixture set. Sessions expire one hour after now,
// except the expired fixture, which is already an hour stale.
func Seed(ctx context.Context, st Store, now time.Time) error {
	expiry := now.Add(time.Hour)

	sessions := []SessionRecord{
		{UserID: UserAdmin, AccessToken: TokenAdmin, RefreshToken: RefreshAdmin, EmailVerified: true, ExpiresAt: expiry},
		{UserID: UserComplete, AccessToken: TokenUser, RefreshToken: RefreshUser, EmailVerified: true, ExpiresAt: expiry},
		{UserID: UserOwner, AccessToken: TokenOwner, RefreshToken: RefreshOwner, EmailVerified: true, ExpiresAt: expiry},
		{UserID: UserOnboarding, AccessToken: TokenOnboarding, RefreshToken: RefreshOnboarding, EmailVerified: true, ExpiresAt: expiry},
		{UserID: UserUnverified, AccessToken: TokenUnverified, RefreshToken: RefreshUnverified, EmailVerified: false, ExpiresAt: expiry},
		{UserID: UserExpired, AccessToken: TokenExpired, RefreshToken: RefreshExpired, EmailVerified: true, ExpiresAt: now.Add(-time.Hour)},
		{UserID: UserGhost, AccessToken: TokenGhost, RefreshToken: RefreshGhost, EmailVerified: true, ExpiresAt: expiry},
	}

	profiles := []ProfileRecord{
		{
			UserID: UserAdmin, Email: openapi_types.Email("admin@example.com"),
			Role: "admin", OnboardingComplete: true, OnboardingStep: "complete",
			InterestsCount: 5, SubcategoriesCount: 3, DealBreakersCount: 2,
		},
		{
			UserID: UserComplete, Email: openapi_types.Email("user@example.com"),
			Role: "user", OnboardingComplete: true, OnboardingStep: "complete",
			InterestsCount: 5, SubcategoriesCount: 3, DealBreakersCount: 2,
		},
		{
			UserID: UserOwner, Email: openapi_types.Email("owner@example.com"),
			Role: "business_owner", OnboardingComplete: true, OnboardingStep: "complete",
			InterestsCount: 0, SubcategoriesCount: 0, DealBreakersCount: 0,
		},
		{
			UserID: UserOnboarding, Email: openapi_types.Email("newcomer@example.com"),
			Role: "user", OnboardingComplete: false, OnboardingStep: "subcategories",
			InterestsCount: 5, SubcategoriesCount: 0, DealBreakersCount: 0,
		},
		{
			UserID: UserUnverified, Email: openapi_types.Email("unverified@example.com"),
			Role: "user", OnboardingComplete: false, OnboardingStep: "interests",
			InterestsCount: 0, SubcategoriesCount: 0, DealBreakersCount: 0,
		},
		{
			UserID: UserExpired, Email: openapi_types.Email("expired@example.com"),
			Role: "user", OnboardingComplete: true, OnboardingStep: "complete",
			InterestsCount: 5, SubcategoriesCount: 3, DealBreakersCount: 2,
		},
		// UserGhost deliberately has no profile row: its session resolves but
		// the status lookup answers 404.
	}

	for _, rec := range sessions {
		if err := st.PutSession(ctx, rec); err != nil {
			return fmt.Errorf("seed session %s: %w", rec.UserID, err)
		}
	}
	for _, rec := range profiles {
		if err := st.PutProfile(ctx, rec); err != nil {
			return fmt.Errorf("seed profile %s: %w", rec.UserID, err)
		}
	}
	return nil
}
