package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository accesses billing profiles and credit balances. Every balance
// mutation is a conditional update so concurrent writers cannot lose
// increments or drive the balance negative.
type Repository interface {
	FindProfile(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*BillingProfile, error)
	// UpsertProfile inserts the profile or, when one exists for the user,
	// updates only the named columns.
	UpsertProfile(ctx context.Context, db *gorm.DB, profile *BillingProfile, columns ...string) error
	// UpdateSubscriptionStatus sets the status on the profile holding the
	// provider subscription id and returns the number of rows touched.
	UpdateSubscriptionStatus(ctx context.Context, db *gorm.DB, subscriptionID, status string) (int64, error)

	FindBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*CreditBalance, error)
	// AddCredits adds delta to the balance, clamped at zero, creating the
	// row when absent.
	AddCredits(ctx context.Context, db *gorm.DB, id snowflake.ID, userID snowflake.ID, delta int64, planType string) error
	// ConsumeCredit atomically spends one credit; reports false when the
	// balance was already empty.
	ConsumeCredit(ctx context.Context, db *gorm.DB, userID snowflake.ID) (bool, error)
}
