package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	usagedomain "github.com/cluo0901/roomgpt/internal/usage/domain"
	userdomain "github.com/cluo0901/roomgpt/internal/user/domain"
)

// Denial reasons surfaced to the UI.
const (
	ReasonNoActivePlan         = "No active plan. Purchase credits or subscribe to continue."
	ReasonSubscriptionInactive = "Subscription inactive. Update payment method to continue."
	ReasonOutOfCredits         = "You are out of credits. Purchase a new bundle to continue."
)

// CheckResult is the entitlement decision for one generation request.
type CheckResult struct {
	Allowed          bool   `json:"allowed"`
	Plan             string `json:"plan"`
	RemainingCredits *int64 `json:"remaining_credits,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// RecordUsageInput describes one successful generation to account for.
type RecordUsageInput struct {
	UserID   snowflake.ID
	Plan     string
	Approach string
	Provider string
	Seed     *int64
}

// Snapshot is the admin view of one user's billing state.
type Snapshot struct {
	User    *userdomain.User         `json:"user"`
	Billing *BillingProfile          `json:"billing"`
	Credits *CreditBalance           `json:"credits"`
	Usage   []usagedomain.UsageEvent `json:"usage"`
}

// Overview is the authenticated user's own billing state.
type Overview struct {
	Plan               string                   `json:"plan"`
	SubscriptionStatus *string                  `json:"subscription_status,omitempty"`
	RemainingCredits   *int64                   `json:"remaining_credits,omitempty"`
	Usage              []usagedomain.UsageEvent `json:"usage"`
}

// Service is the billing gatekeeper: the entitlement checker, the usage
// recorder, the admin mutation paths and the webhook reconciliation hooks
// all go through it.
type Service interface {
	// CanGenerate decides whether a generation request may proceed.
	// Read-only; a deny is expressed in the result, not as an error.
	CanGenerate(ctx context.Context, userID snowflake.ID) (CheckResult, error)

	// RecordUsage appends a usage event and, for metered plans, consumes
	// one credit. Call only after a generation attempt succeeded.
	RecordUsage(ctx context.Context, input RecordUsageInput) error

	// Lookup returns the full billing snapshot for an email, or
	// userdomain.ErrNotFound.
	Lookup(ctx context.Context, email string) (*Snapshot, error)

	// GrantCredits adjusts a user's balance by a nonzero delta, clamped
	// at zero, and returns the refreshed snapshot.
	GrantCredits(ctx context.Context, email string, delta int64, planType string) (*Snapshot, error)

	// SetPlan switches a user's plan type, handling the subscription
	// status and the user-row link, and returns the refreshed snapshot.
	SetPlan(ctx context.Context, email, plan, subscriptionStatus string) (*Snapshot, error)

	// Overview returns the caller's own plan and balance.
	Overview(ctx context.Context, userID snowflake.ID) (*Overview, error)

	// EnsureStripeCustomer returns the user's Stripe customer id,
	// persisting it (with a trial profile when none exists) on first use.
	EnsureStripeCustomer(ctx context.Context, userID snowflake.ID, create func() (string, error)) (string, error)

	// ActivateSubscription flips the profile to subscription/active with
	// the provider's customer and subscription ids.
	ActivateSubscription(ctx context.Context, userID snowflake.ID, customerID, subscriptionID string) error

	// AddPurchasedCredits applies a completed credit purchase.
	AddPurchasedCredits(ctx context.Context, userID snowflake.ID, credits int64, planType string) error

	// SetSubscriptionStatus mirrors the provider's status for the profile
	// holding the given subscription id.
	SetSubscriptionStatus(ctx context.Context, subscriptionID, status string) error
}
