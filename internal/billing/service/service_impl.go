package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/cluo0901/roomgpt/internal/billing/domain"
	"github.com/cluo0901/roomgpt/internal/config"
	"github.com/cluo0901/roomgpt/internal/observability/metrics"
	usagedomain "github.com/cluo0901/roomgpt/internal/usage/domain"
	userdomain "github.com/cluo0901/roomgpt/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentUsageLimit = 10

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config

	Repo      billingdomain.Repository
	UserRepo  userdomain.Repository
	UsageRepo usagedomain.Repository

	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	cfg config.Config

	genID     *snowflake.Node
	repo      billingdomain.Repository
	userRepo  userdomain.Repository
	usageRepo usagedomain.Repository
	metrics   *metrics.Metrics
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billing.service"),
		cfg:   p.Cfg,
		genID: p.GenID,

		repo:      p.Repo,
		userRepo:  p.UserRepo,
		usageRepo: p.UsageRepo,
		metrics:   p.Metrics,
	}
}

// CanGenerate implements the entitlement decision table. It never mutates
// state; credit consumption happens in RecordUsage after the generation
// succeeded.
func (s *Service) CanGenerate(ctx context.Context, userID snowflake.ID) (billingdomain.CheckResult, error) {
	if !s.cfg.BillingEnforce {
		return billingdomain.CheckResult{Allowed: true, Plan: billingdomain.PlanDev}, nil
	}

	profile, err := s.repo.FindProfile(ctx, s.db, userID)
	if err != nil {
		return billingdomain.CheckResult{}, err
	}
	if profile == nil {
		s.metrics.RecordEntitlementDenied("no_plan")
		return billingdomain.CheckResult{
			Allowed: false,
			Plan:    billingdomain.PlanTrial,
			Reason:  billingdomain.ReasonNoActivePlan,
		}, nil
	}

	if profile.PlanType == billingdomain.PlanSubscription {
		if profile.SubscriptionActive() {
			return billingdomain.CheckResult{Allowed: true, Plan: profile.PlanType}, nil
		}
		s.metrics.RecordEntitlementDenied("subscription_inactive")
		return billingdomain.CheckResult{
			Allowed: false,
			Plan:    profile.PlanType,
			Reason:  billingdomain.ReasonSubscriptionInactive,
		}, nil
	}

	// Every other plan type, trial included, is decided by the credit
	// balance. The reported plan prefers the balance row's classification
	// when it diverges from the profile.
	balance, err := s.repo.FindBalance(ctx, s.db, userID)
	if err != nil {
		return billingdomain.CheckResult{}, err
	}
	plan := profile.PlanType
	var remaining int64
	if balance != nil {
		remaining = balance.Remaining
		if balance.PlanType != "" {
			plan = balance.PlanType
		}
	}
	if remaining < 1 {
		s.metrics.RecordEntitlementDenied("out_of_credits")
		return billingdomain.CheckResult{
			Allowed:          false,
			Plan:             plan,
			RemainingCredits: &remaining,
			Reason:           billingdomain.ReasonOutOfCredits,
		}, nil
	}
	return billingdomain.CheckResult{
		Allowed:          true,
		Plan:             plan,
		RemainingCredits: &remaining,
	}, nil
}

// RecordUsage appends the usage event and, for metered plans, spends one
// credit in the same transaction so the log and the balance cannot drift.
func (s *Service) RecordUsage(ctx context.Context, input billingdomain.RecordUsageInput) error {
	if input.UserID == 0 {
		return billingdomain.ErrInvalidUser
	}
	if input.Plan == billingdomain.PlanDev || !s.cfg.BillingEnforce {
		return nil
	}

	plan := input.Plan
	event := &usagedomain.UsageEvent{
		ID:              s.genID.Generate(),
		UserID:          input.UserID,
		PlanType:        &plan,
		Provider:        input.Provider,
		Approach:        input.Approach,
		CreditsConsumed: 1,
		Seed:            input.Seed,
		CreatedAt:       time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.usageRepo.Insert(ctx, tx, event); err != nil {
			return err
		}
		if !billingdomain.Metered(input.Plan) {
			return nil
		}
		consumed, err := s.repo.ConsumeCredit(ctx, tx, input.UserID)
		if err != nil {
			return err
		}
		if consumed {
			s.metrics.RecordCreditConsumed()
		} else {
			// The entitlement check passed earlier, so a missing credit
			// here means a concurrent spend won. Keep the event, log it.
			s.log.Warn("usage recorded without available credit",
				zap.Int64("user_id", int64(input.UserID)),
				zap.String("plan", input.Plan),
			)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

func (s *Service) Lookup(ctx context.Context, email string) (*billingdomain.Snapshot, error) {
	user, err := s.userRepo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}
	return s.snapshot(ctx, user)
}

func (s *Service) GrantCredits(ctx context.Context, email string, delta int64, planType string) (*billingdomain.Snapshot, error) {
	if delta == 0 {
		return nil, billingdomain.ErrInvalidCredits
	}
	if planType == "" {
		planType = billingdomain.PlanBundle
	}
	if !billingdomain.ValidPlan(planType) {
		return nil, billingdomain.ErrInvalidPlan
	}

	user, err := s.userRepo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddCredits(ctx, tx, s.genID.Generate(), user.ID, delta, planType); err != nil {
			return err
		}
		return s.ensureProfile(ctx, tx, user.ID, planType)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("credits granted",
		zap.Int64("user_id", int64(user.ID)),
		zap.Int64("delta", delta),
		zap.String("plan", planType),
	)
	return s.snapshot(ctx, user)
}

func (s *Service) SetPlan(ctx context.Context, email, plan, subscriptionStatus string) (*billingdomain.Snapshot, error) {
	if !billingdomain.ValidPlan(plan) {
		return nil, billingdomain.ErrInvalidPlan
	}

	user, err := s.userRepo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrNotFound
	}

	var status *string
	if plan == billingdomain.PlanSubscription {
		if subscriptionStatus == "" {
			subscriptionStatus = billingdomain.SubscriptionStatusActive
		}
		status = &subscriptionStatus
	}

	profile := &billingdomain.BillingProfile{
		ID:                 s.genID.Generate(),
		UserID:             user.ID,
		PlanType:           plan,
		SubscriptionStatus: status,
	}
	if err := s.repo.UpsertProfile(ctx, s.db, profile); err != nil {
		return nil, err
	}

	s.log.Info("plan changed",
		zap.Int64("user_id", int64(user.ID)),
		zap.String("plan", plan),
	)
	return s.snapshot(ctx, user)
}

func (s *Service) Overview(ctx context.Context, userID snowflake.ID) (*billingdomain.Overview, error) {
	profile, err := s.repo.FindProfile(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	balance, err := s.repo.FindBalance(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	usage, err := s.usageRepo.ListRecent(ctx, s.db, userID, recentUsageLimit)
	if err != nil {
		return nil, err
	}

	overview := &billingdomain.Overview{
		Plan:  billingdomain.PlanTrial,
		Usage: usage,
	}
	if profile != nil {
		overview.Plan = profile.PlanType
		overview.SubscriptionStatus = profile.SubscriptionStatus
	}
	if balance != nil {
		remaining := balance.Remaining
		overview.RemainingCredits = &remaining
	}
	return overview, nil
}

// EnsureStripeCustomer returns the stored customer id, calling create to
// mint one on first use. New users get a trial profile carrying the id.
func (s *Service) EnsureStripeCustomer(ctx context.Context, userID snowflake.ID, create func() (string, error)) (string, error) {
	profile, err := s.repo.FindProfile(ctx, s.db, userID)
	if err != nil {
		return "", err
	}
	if profile != nil && profile.StripeCustomerID != nil && *profile.StripeCustomerID != "" {
		return *profile.StripeCustomerID, nil
	}

	customerID, err := create()
	if err != nil {
		return "", err
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", billingdomain.ErrProfileLink
	}

	plan := billingdomain.PlanTrial
	if profile != nil {
		plan = profile.PlanType
	}
	next := &billingdomain.BillingProfile{
		ID:               s.genID.Generate(),
		UserID:           userID,
		PlanType:         plan,
		StripeCustomerID: &customerID,
	}
	if err := s.repo.UpsertProfile(ctx, s.db, next, "stripe_customer_id"); err != nil {
		return "", err
	}
	return customerID, nil
}

func (s *Service) ActivateSubscription(ctx context.Context, userID snowflake.ID, customerID, subscriptionID string) error {
	status := billingdomain.SubscriptionStatusActive
	profile := &billingdomain.BillingProfile{
		ID:                 s.genID.Generate(),
		UserID:             userID,
		PlanType:           billingdomain.PlanSubscription,
		SubscriptionStatus: &status,
	}
	if customerID != "" {
		profile.StripeCustomerID = &customerID
	}
	if subscriptionID != "" {
		profile.StripeSubscriptionID = &subscriptionID
	}

	columns := []string{"plan_type", "subscription_status"}
	if profile.StripeCustomerID != nil {
		columns = append(columns, "stripe_customer_id")
	}
	if profile.StripeSubscriptionID != nil {
		columns = append(columns, "stripe_subscription_id")
	}
	if err := s.repo.UpsertProfile(ctx, s.db, profile, columns...); err != nil {
		return err
	}

	s.log.Info("subscription activated",
		zap.Int64("user_id", int64(userID)),
		zap.String("subscription_id", subscriptionID),
	)
	return nil
}

func (s *Service) AddPurchasedCredits(ctx context.Context, userID snowflake.ID, credits int64, planType string) error {
	if credits <= 0 {
		return billingdomain.ErrInvalidCredits
	}
	if planType == "" {
		planType = billingdomain.PlanBundle
	}
	if !billingdomain.ValidPlan(planType) {
		return billingdomain.ErrInvalidPlan
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddCredits(ctx, tx, s.genID.Generate(), userID, credits, planType); err != nil {
			return err
		}
		return s.ensureProfile(ctx, tx, userID, planType)
	})
	if err != nil {
		return err
	}

	s.log.Info("purchased credits applied",
		zap.Int64("user_id", int64(userID)),
		zap.Int64("credits", credits),
		zap.String("plan", planType),
	)
	return nil
}

func (s *Service) SetSubscriptionStatus(ctx context.Context, subscriptionID, status string) error {
	affected, err := s.repo.UpdateSubscriptionStatus(ctx, s.db, subscriptionID, status)
	if err != nil {
		return err
	}
	if affected == 0 {
		// Nothing to reconcile; the subscription was never linked here.
		s.log.Warn("subscription status for unknown subscription",
			zap.String("subscription_id", subscriptionID),
			zap.String("status", status),
		)
		return nil
	}
	s.log.Info("subscription status updated",
		zap.String("subscription_id", subscriptionID),
		zap.String("status", status),
	)
	return nil
}

// ensureProfile keeps the plan classification in step with a credit
// mutation without touching provider columns.
func (s *Service) ensureProfile(ctx context.Context, tx *gorm.DB, userID snowflake.ID, planType string) error {
	profile := &billingdomain.BillingProfile{
		ID:       s.genID.Generate(),
		UserID:   userID,
		PlanType: planType,
	}
	return s.repo.UpsertProfile(ctx, tx, profile, "plan_type")
}

func (s *Service) snapshot(ctx context.Context, user *userdomain.User) (*billingdomain.Snapshot, error) {
	profile, err := s.repo.FindProfile(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	balance, err := s.repo.FindBalance(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	usage, err := s.usageRepo.ListRecent(ctx, s.db, user.ID, recentUsageLimit)
	if err != nil {
		return nil, err
	}
	return &billingdomain.Snapshot{
		User:    user,
		Billing: profile,
		Credits: balance,
		Usage:   usage,
	}, nil
}
