package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/cluo0901/roomgpt/internal/billing/domain"
	"github.com/cluo0901/roomgpt/internal/config"
	"github.com/cluo0901/roomgpt/internal/observability/metrics"
	paymentdomain "github.com/cluo0901/roomgpt/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Adapter    paymentdomain.Adapter
	Plans      *config.PlanCatalogHolder
	BillingSvc billingdomain.Service
	Repo       paymentdomain.Repository

	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	adapter    paymentdomain.Adapter
	plans      *config.PlanCatalogHolder
	billingSvc billingdomain.Service
	repo       paymentdomain.Repository
	metrics    *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		adapter:    p.Adapter,
		plans:      p.Plans,
		billingSvc: p.BillingSvc,
		repo:       p.Repo,
		metrics:    p.Metrics,
	}
}

// IngestWebhook runs the full delivery pipeline: verify the signature,
// normalize the event, record it, apply it to billing state and mark it
// processed. The record insert happens before any billing mutation so a
// redelivered event can never be applied twice.
func (s *Service) IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if err := s.adapter.Verify(ctx, payload, headers); err != nil {
		return err
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	event, err := s.adapter.Parse(ctx, payload)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	record := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		UserID:          event.UserID,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &record)
	if err != nil {
		return err
	}
	stored := &record
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
		// An unprocessed duplicate means a previous attempt failed after
		// the insert; fall through and retry the apply.
	}

	if err := s.apply(ctx, event); err != nil {
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, stored.ID, now); err != nil {
		return err
	}

	s.metrics.RecordPaymentEvent(event.Provider, event.Type)
	s.log.Info("payment event processed",
		zap.String("provider", event.Provider),
		zap.String("event_id", event.ProviderEventID),
		zap.String("event_type", event.Type),
	)
	return nil
}

func (s *Service) apply(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	switch event.Type {
	case paymentdomain.EventTypeCheckoutCompleted:
		return s.applyCheckout(ctx, event)

	case paymentdomain.EventTypeInvoicePaid,
		paymentdomain.EventTypeSubscriptionUpdated,
		paymentdomain.EventTypeSubscriptionDeleted:
		if event.SubscriptionID == "" || event.SubscriptionStatus == "" {
			return paymentdomain.ErrInvalidEvent
		}
		return s.billingSvc.SetSubscriptionStatus(ctx, event.SubscriptionID, event.SubscriptionStatus)

	default:
		return paymentdomain.ErrInvalidEvent
	}
}

func (s *Service) applyCheckout(ctx context.Context, event *paymentdomain.PaymentEvent) error {
	plan, ok := s.plans.Get().Lookup(event.PlanKey)
	if !ok {
		s.log.Warn("checkout completed for unknown plan",
			zap.String("plan", event.PlanKey),
			zap.String("event_id", event.ProviderEventID),
		)
		return paymentdomain.ErrUnknownPlan
	}

	switch plan.Mode {
	case config.CheckoutModeSubscription:
		return s.billingSvc.ActivateSubscription(ctx, event.UserID, event.CustomerID, event.SubscriptionID)
	case config.CheckoutModePayment:
		return s.billingSvc.AddPurchasedCredits(ctx, event.UserID, plan.Credits, plan.PlanType)
	default:
		return paymentdomain.ErrInvalidEvent
	}
}
