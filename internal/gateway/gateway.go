// Package gateway talks to the payment processor. RealGateway is backed by
// the Stripe SDK; gatewaytest.Recorder is a scripted stand-in for tests.
package gateway

import (
	"context"

	"billing-checkout/internal/domain"
)

// SetupIntentStatusSucceeded is the only setup intent status that settles a checkout.
const SetupIntentStatusSucceeded = "succeeded"

// CustomerParams describes the customer created when a checkout is confirmed.
type CustomerParams struct {
	Name    string
	Email   string
	Address domain.Address
}

// SetupIntentParams captures the payment method of a customer before charging.
type SetupIntentParams struct {
	CustomerID          string
	ConfirmationTokenID string
	Metadata            map[string]string
	IdempotencyKey      string
}

// SetupIntent is what the processor returns for a newly created setup intent.
type SetupIntent struct {
	ID           string
	ClientSecret string
	Status       string
}

// SetupIntentResult is the settled state of a setup intent as reported by the
// processor. Customer and PaymentMethod are empty when absent.
type SetupIntentResult struct {
	ID            string
	Status        string
	Customer      string
	PaymentMethod string
	CheckoutID    string
}

// ChargeParams carries everything needed to bill a confirmed checkout.
type ChargeParams struct {
	Checkout        domain.Checkout
	Price           domain.Price
	CustomerID      string
	PaymentMethodID string
	IdempotencyKey  string
}

// Gateway is the set of processor calls the checkout lifecycle needs.
type Gateway interface {
	CreateCustomer(ctx context.Context, p CustomerParams) (string, error)
	CreateSetupIntent(ctx context.Context, p SetupIntentParams) (*SetupIntent, error)
	CreateInvoice(ctx context.Context, p ChargeParams) (string, error)
	CreateSubscription(ctx context.Context, p ChargeParams) (string, error)
}
