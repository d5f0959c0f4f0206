// Package domain contains the billing profile and credit balance records
// that gate image generation.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan types. "dev" is virtual: it never reaches the database and only
// appears when billing enforcement is disabled.
const (
	PlanTrial        = "trial"
	PlanPayPerUse    = "pay_per_use"
	PlanBundle       = "bundle"
	PlanSubscription = "subscription"
	PlanDev          = "dev"
)

// SubscriptionStatusActive is the only status that grants unmetered access.
// Other values mirror the payment provider's status strings verbatim.
const SubscriptionStatusActive = "active"

// ValidPlan reports whether plan is a persistable plan type.
func ValidPlan(plan string) bool {
	switch plan {
	case PlanTrial, PlanPayPerUse, PlanBundle, PlanSubscription:
		return true
	default:
		return false
	}
}

// Metered reports whether generations under plan consume credits.
func Metered(plan string) bool {
	return plan == PlanBundle || plan == PlanPayPerUse
}

// BillingProfile classifies how a user's entitlement is computed.
// One row per user; mutated only by webhook reconciliation and admin action.
type BillingProfile struct {
	ID                   snowflake.ID `gorm:"primaryKey" json:"-"`
	UserID               snowflake.ID `gorm:"not null;uniqueIndex" json:"user_id"`
	PlanType             string       `gorm:"type:text;not null" json:"plan_type"`
	SubscriptionStatus   *string      `gorm:"type:text" json:"subscription_status"`
	StripeCustomerID     *string      `gorm:"type:text" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string      `gorm:"type:text;index" json:"stripe_subscription_id,omitempty"`
	CreatedAt            time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt            time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (BillingProfile) TableName() string { return "billing_profiles" }

// SubscriptionActive reports whether the profile grants unmetered access.
func (p *BillingProfile) SubscriptionActive() bool {
	return p != nil &&
		p.PlanType == PlanSubscription &&
		p.SubscriptionStatus != nil &&
		*p.SubscriptionStatus == SubscriptionStatusActive
}

// CreditBalance tracks remaining generation credits for metered plans.
// The remaining column is only ever changed by conditional updates so it
// cannot go negative.
type CreditBalance struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"-"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex" json:"user_id"`
	Remaining int64        `gorm:"not null;default:0" json:"remaining"`
	PlanType  string       `gorm:"type:text;not null" json:"plan_type"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (CreditBalance) TableName() string { return "credit_balances" }

var (
	ErrInvalidPlan    = errors.New("invalid_plan")
	ErrInvalidCredits = errors.New("invalid_credits")
	ErrInvalidUser    = errors.New("invalid_user")
	ErrProfileLink    = errors.New("billing_profile_link_failed")
)
