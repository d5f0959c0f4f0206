// Package stripe parses Stripe webhook deliveries into normalized payment
// events.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/cluo0901/roomgpt/internal/payment/domain"
)

const providerName = "stripe"

type Adapter struct {
	webhookSecret string
}

func NewAdapter(webhookSecret string) (*Adapter, error) {
	webhookSecret = strings.TrimSpace(webhookSecret)
	if webhookSecret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}
	return &Adapter{webhookSecret: webhookSecret}, nil
}

func (a *Adapter) Provider() string { return providerName }

// Verify checks the Stripe-Signature header against the shared secret.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		return a.parseCheckoutSession(event, payload)
	case "invoice.paid":
		return a.parseInvoice(event, payload)
	case "customer.subscription.updated":
		return a.parseSubscription(event, payload, paymentdomain.EventTypeSubscriptionUpdated)
	case "customer.subscription.deleted":
		return a.parseSubscription(event, payload, paymentdomain.EventTypeSubscriptionDeleted)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Created      int64             `json:"created"`
	Metadata     map[string]string `json:"metadata"`
}

type stripeInvoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Created      int64  `json:"created"`
}

type stripeSubscription struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Customer string `json:"customer"`
	Created  int64  `json:"created"`
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	// The checkout session was created with userId and plan in metadata;
	// a session without them did not come from this application.
	userID, err := parseUserID(session.Metadata)
	if err != nil {
		return nil, err
	}
	planKey := strings.TrimSpace(session.Metadata["plan"])
	if planKey == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	return &paymentdomain.PaymentEvent{
		Provider:        providerName,
		ProviderEventID: event.ID,
		Type:            paymentdomain.EventTypeCheckoutCompleted,
		UserID:          userID,
		PlanKey:         planKey,
		Mode:            strings.TrimSpace(session.Mode),
		CustomerID:      strings.TrimSpace(session.Customer),
		SubscriptionID:  strings.TrimSpace(session.Subscription),
		OccurredAt:      timestamp(session.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

func (a *Adapter) parseInvoice(event stripeEvent, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var invoice stripeInvoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(invoice.Subscription) == "" {
		// One-off invoices have nothing to reconcile.
		return nil, paymentdomain.ErrEventIgnored
	}

	return &paymentdomain.PaymentEvent{
		Provider:           providerName,
		ProviderEventID:    event.ID,
		Type:               paymentdomain.EventTypeInvoicePaid,
		CustomerID:         strings.TrimSpace(invoice.Customer),
		SubscriptionID:     strings.TrimSpace(invoice.Subscription),
		SubscriptionStatus: "active",
		OccurredAt:         timestamp(invoice.Created, event.Created),
		RawPayload:         payload,
	}, nil
}

func (a *Adapter) parseSubscription(event stripeEvent, payload []byte, eventType string) (*paymentdomain.PaymentEvent, error) {
	var subscription stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &subscription); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(subscription.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	status := strings.TrimSpace(subscription.Status)
	if eventType == paymentdomain.EventTypeSubscriptionDeleted {
		status = "canceled"
	}

	return &paymentdomain.PaymentEvent{
		Provider:           providerName,
		ProviderEventID:    event.ID,
		Type:               eventType,
		CustomerID:         strings.TrimSpace(subscription.Customer),
		SubscriptionID:     strings.TrimSpace(subscription.ID),
		SubscriptionStatus: status,
		OccurredAt:         timestamp(subscription.Created, event.Created),
		RawPayload:         payload,
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func parseUserID(metadata map[string]string) (snowflake.ID, error) {
	raw := strings.TrimSpace(metadata["userId"])
	if raw == "" {
		return 0, paymentdomain.ErrInvalidEvent
	}
	userID, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, paymentdomain.ErrInvalidEvent
	}
	return userID, nil
}

func timestamp(primary, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
