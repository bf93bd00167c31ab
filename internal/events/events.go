package events

import (
	"context"
	"time"

	"billing-checkout/internal/domain"
	"github.com/google/uuid"
)

// Checkout lifecycle event types.
const (
	TypeCheckoutCreated   = "checkout.created"
	TypeCheckoutUpdated   = "checkout.updated"
	TypeCheckoutConfirmed = "checkout.confirmed"
	TypeCheckoutSucceeded = "checkout.succeeded"
	TypeCheckoutFailed    = "checkout.failed"
)

// CheckoutEvent is published after a checkout change has been persisted.
type CheckoutEvent struct {
	ID             string                `json:"id"`
	Type           string                `json:"type"`
	CheckoutID     string                `json:"checkoutId"`
	OrganizationID string                `json:"organizationId"`
	Status         domain.CheckoutStatus `json:"status"`
	Amount         *int64                `json:"amount"`
	Currency       *string               `json:"currency"`
	OccurredAt     time.Time             `json:"occurredAt"`
}

// NewCheckoutEvent snapshots c into an event of the given type.
func NewCheckoutEvent(eventType string, c domain.Checkout) CheckoutEvent {
	return CheckoutEvent{
		ID:             uuid.NewString(),
		Type:           eventType,
		CheckoutID:     c.ID,
		OrganizationID: c.OrganizationID,
		Status:         c.Status,
		Amount:         c.Amount,
		Currency:       c.Currency,
		OccurredAt:     time.Now().UTC(),
	}
}

// Publisher delivers checkout events.
type Publisher interface {
	Publish(ctx context.Context, evt CheckoutEvent) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, CheckoutEvent) error { return nil }
