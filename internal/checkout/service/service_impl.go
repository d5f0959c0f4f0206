package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/cluo0901/roomgpt/internal/billing/domain"
	checkoutdomain "github.com/cluo0901/roomgpt/internal/checkout/domain"
	"github.com/cluo0901/roomgpt/internal/config"
	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Cfg        config.Config
	Plans      *config.PlanCatalogHolder
	BillingSvc billingdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	cfg        config.Config
	plans      *config.PlanCatalogHolder
	billingSvc billingdomain.Service

	// Overridable in tests; default to the Stripe SDK.
	newCustomer func(params *stripe.CustomerParams) (*stripe.Customer, error)
	newSession  func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewService(p Params) checkoutdomain.Service {
	stripe.Key = p.Cfg.Stripe.SecretKey

	return &Service{
		db:         p.DB,
		log:        p.Log.Named("checkout.service"),
		genID:      p.GenID,
		cfg:        p.Cfg,
		plans:      p.Plans,
		billingSvc: p.BillingSvc,

		newCustomer: customer.New,
		newSession:  checkoutsession.New,
	}
}

// CreateSession validates the plan, ensures a provider customer exists for
// the user and creates the checkout session. The session metadata carries
// the user id and plan key so the completion webhook can reconcile the
// purchase without any extra lookup.
func (s *Service) CreateSession(ctx context.Context, input checkoutdomain.CreateSessionInput) (*checkoutdomain.CreateSessionResult, error) {
	plan, ok := s.plans.Get().Lookup(input.Plan)
	if !ok {
		return nil, checkoutdomain.ErrUnknownPlan
	}
	if !strings.HasPrefix(plan.PriceID, "price_") {
		return nil, checkoutdomain.ErrPlanNotConfigured
	}

	customerID, err := s.billingSvc.EnsureStripeCustomer(ctx, input.UserID, func() (string, error) {
		params := &stripe.CustomerParams{
			Email: stripe.String(input.Email),
			Metadata: map[string]string{
				"userId": input.UserID.String(),
			},
		}
		cust, err := s.newCustomer(params)
		if err != nil {
			return "", err
		}
		return cust.ID, nil
	})
	if err != nil {
		return nil, err
	}

	mode := stripe.CheckoutSessionModePayment
	if plan.Mode == config.CheckoutModeSubscription {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.cfg.Stripe.SuccessURL),
		CancelURL:  stripe.String(s.cfg.Stripe.CancelURL),
		Metadata: map[string]string{
			"userId": input.UserID.String(),
			"plan":   plan.Key,
		},
	}

	sess, err := s.newSession(params)
	if err != nil {
		s.log.Error("checkout session creation failed",
			zap.Int64("user_id", int64(input.UserID)),
			zap.String("plan", plan.Key),
			zap.Error(err),
		)
		return nil, checkoutdomain.ErrProviderFailure
	}

	audit := checkoutdomain.Session{
		ID:        s.genID.Generate(),
		UserID:    input.UserID,
		SessionID: sess.ID,
		PlanKey:   plan.Key,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&audit).Error; err != nil {
		// The provider session already exists, so losing the audit row is
		// not worth failing the purchase over.
		s.log.Warn("checkout audit row insert failed",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}

	s.log.Info("checkout session created",
		zap.Int64("user_id", int64(input.UserID)),
		zap.String("plan", plan.Key),
		zap.String("session_id", sess.ID),
	)
	return &checkoutdomain.CreateSessionResult{
		SessionID: sess.ID,
		URL:       sess.URL,
	}, nil
}
