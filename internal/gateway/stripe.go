package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/logging"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/customer"
	"github.com/stripe/stripe-go/v80/invoice"
	"github.com/stripe/stripe-go/v80/invoiceitem"
	"github.com/stripe/stripe-go/v80/setupintent"
	"github.com/stripe/stripe-go/v80/subscription"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

// Stripe webhook event types the service reacts to.
const (
	EventSetupIntentSucceeded = "setup_intent.succeeded"
	EventSetupIntentCanceled  = "setup_intent.canceled"
)

// ErrMissingPrice is returned when a charge cannot be expressed with the
// processor identifiers stored in the catalog.
var ErrMissingPrice = errors.New("price has no processor identifier")

// RealGateway implements Gateway on top of the Stripe API.
type RealGateway struct {
	webhookSecret string
	logger        *zap.Logger
}

// NewStripe configures the Stripe SDK with the secret key and a bounded HTTP
// client timeout.
func NewStripe(secretKey, webhookSecret string, timeout time.Duration, logger *zap.Logger) *RealGateway {
	stripe.Key = secretKey
	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	}))
	return &RealGateway{
		webhookSecret: webhookSecret,
		logger:        logging.OrNop(logger).Named("stripe"),
	}
}

func (g *RealGateway) CreateCustomer(ctx context.Context, p CustomerParams) (string, error) {
	params := &stripe.CustomerParams{
		Name:    stripe.String(p.Name),
		Email:   stripe.String(p.Email),
		Address: addressParams(p.Address),
	}
	params.Context = ctx
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	g.logger.Debug("customer created", zap.String("customer_id", c.ID))
	return c.ID, nil
}

func (g *RealGateway) CreateSetupIntent(ctx context.Context, p SetupIntentParams) (*SetupIntent, error) {
	params := &stripe.SetupIntentParams{
		Customer:          stripe.String(p.CustomerID),
		ConfirmationToken: stripe.String(p.ConfirmationTokenID),
		Confirm:           stripe.Bool(true),
		Usage:             stripe.String(string(stripe.SetupIntentUsageOffSession)),
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	params.Context = ctx
	si, err := setupintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create setup intent: %w", err)
	}
	g.logger.Debug("setup intent created", zap.String("setup_intent_id", si.ID), zap.String("status", string(si.Status)))
	return &SetupIntent{ID: si.ID, ClientSecret: si.ClientSecret, Status: string(si.Status)}, nil
}

// CreateInvoice bills a one-time price: a draft invoice, one line for the
// checkout amount, then finalize and pay with the saved payment method.
//
// A retry with the same idempotency key replays the original draft, so the
// invoice is re-read and only the steps it has not passed yet are run.
func (g *RealGateway) CreateInvoice(ctx context.Context, p ChargeParams) (string, error) {
	currency := chargeCurrency(p)
	free := p.Price.AmountType == domain.AmountTypeFree
	if currency == "" && !free {
		return "", fmt.Errorf("create invoice: %w", ErrMissingPrice)
	}

	invParams := &stripe.InvoiceParams{
		Customer:             stripe.String(p.CustomerID),
		DefaultPaymentMethod: stripe.String(p.PaymentMethodID),
		AutoAdvance:          stripe.Bool(false),
	}
	if currency != "" {
		invParams.Currency = stripe.String(currency)
	}
	invParams.AddMetadata("checkout_id", p.Checkout.ID)
	if p.IdempotencyKey != "" {
		invParams.SetIdempotencyKey(p.IdempotencyKey)
	}
	invParams.Context = ctx
	inv, err := invoice.New(invParams)
	if err != nil {
		return "", fmt.Errorf("create invoice: %w", err)
	}

	getParams := &stripe.InvoiceParams{}
	getParams.Context = ctx
	inv, err = invoice.Get(inv.ID, getParams)
	if err != nil {
		return "", fmt.Errorf("get invoice: %w", err)
	}

	if inv.Status == stripe.InvoiceStatusDraft {
		// Free prices produce an empty invoice that is settled on finalize.
		if !free {
			var amount int64
			if p.Checkout.Amount != nil {
				amount = *p.Checkout.Amount
			}
			itemParams := &stripe.InvoiceItemParams{
				Customer:    stripe.String(p.CustomerID),
				Invoice:     stripe.String(inv.ID),
				Amount:      stripe.Int64(amount),
				Currency:    stripe.String(currency),
				Description: stripe.String(p.Price.Product.Name),
			}
			if p.IdempotencyKey != "" {
				itemParams.SetIdempotencyKey(p.IdempotencyKey + "-item")
			}
			itemParams.Context = ctx
			if _, err := invoiceitem.New(itemParams); err != nil {
				return "", fmt.Errorf("create invoice item: %w", err)
			}
		}

		finalizeParams := &stripe.InvoiceFinalizeInvoiceParams{}
		finalizeParams.Context = ctx
		inv, err = invoice.FinalizeInvoice(inv.ID, finalizeParams)
		if err != nil {
			return "", fmt.Errorf("finalize invoice: %w", err)
		}
	} else {
		g.logger.Info("resuming invoice", zap.String("invoice_id", inv.ID), zap.String("status", string(inv.Status)))
	}

	if inv.Status != stripe.InvoiceStatusPaid {
		payParams := &stripe.InvoicePayParams{PaymentMethod: stripe.String(p.PaymentMethodID)}
		payParams.Context = ctx
		if _, err := invoice.Pay(inv.ID, payParams); err != nil {
			return "", fmt.Errorf("pay invoice: %w", err)
		}
	}
	g.logger.Info("invoice created", zap.String("invoice_id", inv.ID), zap.String("checkout_id", p.Checkout.ID))
	return inv.ID, nil
}

// CreateSubscription starts a subscription on the catalog's Stripe price, or
// on inline price data when the customer picked the amount.
func (g *RealGateway) CreateSubscription(ctx context.Context, p ChargeParams) (string, error) {
	item := &stripe.SubscriptionItemsParams{}
	switch {
	case p.Price.AmountType == domain.AmountTypeCustom:
		if p.Price.Product.ProcessorProductID == "" {
			return "", fmt.Errorf("create subscription: %w", ErrMissingPrice)
		}
		var amount int64
		if p.Checkout.Amount != nil {
			amount = *p.Checkout.Amount
		}
		item.PriceData = &stripe.SubscriptionItemPriceDataParams{
			Currency:   stripe.String(chargeCurrency(p)),
			Product:    stripe.String(p.Price.Product.ProcessorProductID),
			UnitAmount: stripe.Int64(amount),
			Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
				Interval: stripe.String(p.Price.RecurringInterval),
			},
		}
	case p.Price.ProcessorPriceID != "":
		item.Price = stripe.String(p.Price.ProcessorPriceID)
	default:
		return "", fmt.Errorf("create subscription: %w", ErrMissingPrice)
	}

	params := &stripe.SubscriptionParams{
		Customer:             stripe.String(p.CustomerID),
		DefaultPaymentMethod: stripe.String(p.PaymentMethodID),
		Items:                []*stripe.SubscriptionItemsParams{item},
	}
	params.AddMetadata("checkout_id", p.Checkout.ID)
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}
	params.Context = ctx
	sub, err := subscription.New(params)
	if err != nil {
		return "", fmt.Errorf("create subscription: %w", err)
	}
	g.logger.Info("subscription created", zap.String("subscription_id", sub.ID), zap.String("checkout_id", p.Checkout.ID))
	return sub.ID, nil
}

// WebhookEvent is a verified Stripe event reduced to what the service needs.
type WebhookEvent struct {
	ID          string
	Type        string
	SetupIntent *SetupIntentResult
}

// ParseEvent verifies the Stripe-Signature header and decodes setup intent
// payloads. Other event types come back with a nil SetupIntent.
func (g *RealGateway) ParseEvent(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}
	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "setup_intent.") || event.Data == nil {
		return out, nil
	}

	var si stripe.SetupIntent
	if err := json.Unmarshal(event.Data.Raw, &si); err != nil {
		return nil, fmt.Errorf("decode setup intent: %w", err)
	}
	out.SetupIntent = setupIntentResult(&si)
	return out, nil
}

func setupIntentResult(si *stripe.SetupIntent) *SetupIntentResult {
	res := &SetupIntentResult{
		ID:         si.ID,
		Status:     string(si.Status),
		CheckoutID: si.Metadata["checkout_id"],
	}
	if si.Customer != nil {
		res.Customer = si.Customer.ID
	}
	if si.PaymentMethod != nil {
		res.PaymentMethod = si.PaymentMethod.ID
	}
	return res
}

func chargeCurrency(p ChargeParams) string {
	if p.Checkout.Currency != nil {
		return *p.Checkout.Currency
	}
	if p.Price.Currency != nil {
		return *p.Price.Currency
	}
	return ""
}

func addressParams(a domain.Address) *stripe.AddressParams {
	params := &stripe.AddressParams{Country: stripe.String(a.Country)}
	if a.Line1 != "" {
		params.Line1 = stripe.String(a.Line1)
	}
	if a.Line2 != "" {
		params.Line2 = stripe.String(a.Line2)
	}
	if a.PostalCode != "" {
		params.PostalCode = stripe.String(a.PostalCode)
	}
	if a.City != "" {
		params.City = stripe.String(a.City)
	}
	if a.State != "" {
		params.State = stripe.String(a.State)
	}
	return params
}
