package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/cluo0901/roomgpt/internal/billing/domain"
	"github.com/cluo0901/roomgpt/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

func (r *repo) FindProfile(ctx context.Context, conn *gorm.DB, userID snowflake.ID) (*billingdomain.BillingProfile, error) {
	var profile billingdomain.BillingProfile
	err := conn.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *repo) UpsertProfile(ctx context.Context, conn *gorm.DB, profile *billingdomain.BillingProfile, columns ...string) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	if len(columns) == 0 {
		columns = []string{"plan_type", "subscription_status"}
	}
	columns = append(columns, "updated_at")

	return conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(profile).Error
}

func (r *repo) UpdateSubscriptionStatus(ctx context.Context, conn *gorm.DB, subscriptionID, status string) (int64, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return 0, billingdomain.ErrInvalidUser
	}
	res := conn.WithContext(ctx).Exec(
		`UPDATE billing_profiles
		 SET subscription_status = ?, updated_at = ?
		 WHERE stripe_subscription_id = ?`,
		status,
		time.Now().UTC(),
		subscriptionID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) FindBalance(ctx context.Context, conn *gorm.DB, userID snowflake.ID) (*billingdomain.CreditBalance, error) {
	var balance billingdomain.CreditBalance
	err := conn.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &balance, nil
}

// AddCredits clamps with CASE instead of GREATEST so the same statement
// works on postgres, mysql and the sqlite test databases.
func (r *repo) AddCredits(ctx context.Context, conn *gorm.DB, id snowflake.ID, userID snowflake.ID, delta int64, planType string) error {
	now := time.Now().UTC()

	res := conn.WithContext(ctx).Exec(
		`UPDATE credit_balances
		 SET remaining = CASE WHEN remaining + ? < 0 THEN 0 ELSE remaining + ? END,
		     plan_type = CASE WHEN ? = '' THEN plan_type ELSE ? END,
		     updated_at = ?
		 WHERE user_id = ?`,
		delta, delta,
		planType, planType,
		now,
		userID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	remaining := delta
	if remaining < 0 {
		remaining = 0
	}
	if planType == "" {
		planType = billingdomain.PlanBundle
	}
	err := conn.WithContext(ctx).Create(&billingdomain.CreditBalance{
		ID:        id,
		UserID:    userID,
		Remaining: remaining,
		PlanType:  planType,
		UpdatedAt: now,
	}).Error
	if err == nil {
		return nil
	}
	if !db.IsDuplicateKeyErr(err) {
		return err
	}

	// Lost the insert race; the row exists now, so the update applies.
	res = conn.WithContext(ctx).Exec(
		`UPDATE credit_balances
		 SET remaining = CASE WHEN remaining + ? < 0 THEN 0 ELSE remaining + ? END,
		     updated_at = ?
		 WHERE user_id = ?`,
		delta, delta,
		now,
		userID,
	)
	return res.Error
}

// ConsumeCredit is the conditional decrement that keeps the balance
// non-negative under concurrent generations.
func (r *repo) ConsumeCredit(ctx context.Context, conn *gorm.DB, userID snowflake.ID) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE credit_balances
		 SET remaining = remaining - 1, updated_at = ?
		 WHERE user_id = ? AND remaining >= 1`,
		time.Now().UTC(),
		userID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
