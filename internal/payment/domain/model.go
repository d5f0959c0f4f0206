// Package domain holds the normalized payment provider events that drive
// billing reconciliation.
package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventRecord is the durable copy of one provider webhook delivery. The
// unique (provider, provider_event_id) pair makes redelivery harmless.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	UserID          snowflake.ID   `json:"user_id" gorm:"index"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// Normalized event types emitted by adapters.
const (
	EventTypeCheckoutCompleted   = "checkout_completed"
	EventTypeInvoicePaid         = "invoice_paid"
	EventTypeSubscriptionUpdated = "subscription_updated"
	EventTypeSubscriptionDeleted = "subscription_deleted"
)

// PaymentEvent is the canonical provider event parsed by adapters.
type PaymentEvent struct {
	Provider        string
	ProviderEventID string
	Type            string

	// UserID and PlanKey come from the checkout session metadata and are
	// only present on checkout events.
	UserID  snowflake.ID
	PlanKey string
	Mode    string

	CustomerID         string
	SubscriptionID     string
	SubscriptionStatus string

	OccurredAt time.Time
	RawPayload []byte
}

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrUnknownPlan           = errors.New("unknown_plan")
)

// Adapter verifies and parses one provider's webhook deliveries.
type Adapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	// Parse normalizes the delivery; ErrEventIgnored marks event types the
	// billing model does not care about.
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

// Repository persists webhook deliveries.
type Repository interface {
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	// InsertEvent stores the record, reporting false when the provider
	// event id was seen before.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}

// Service ingests raw webhook deliveries and applies them to billing state.
type Service interface {
	// IngestWebhook verifies, records and applies one delivery.
	// Redeliveries of an already processed event return
	// ErrEventAlreadyProcessed so the transport can acknowledge them.
	IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error
}
