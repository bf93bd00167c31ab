// Package checkout drives a checkout from open to a settled payment: price
// resolution and amount rules while open, customer and setup intent creation
// on confirm, and the invoice or subscription once the processor reports the
// setup intent as succeeded.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/events"
	"billing-checkout/internal/gateway"
	"billing-checkout/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists checkouts. Save must reject a stale version with
// domain.ErrConflict.
type Store interface {
	Create(ctx context.Context, c *domain.Checkout) error
	GetByID(ctx context.Context, id string) (*domain.Checkout, error)
	Save(ctx context.Context, c *domain.Checkout) error
}

// Catalog resolves prices and tells whether an organization may sell them.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*domain.Price, error)
	IsWritable(ctx context.Context, id, organizationID string) (bool, error)
}

// Recorder observes committed transitions and gateway latencies.
type Recorder interface {
	Transition(from, to domain.CheckoutStatus)
	GatewayCall(operation string, started time.Time, err error)
}

type nopRecorder struct{}

func (nopRecorder) Transition(domain.CheckoutStatus, domain.CheckoutStatus) {}
func (nopRecorder) GatewayCall(string, time.Time, error) {}

// Deps are the collaborators of Service. Publisher, Recorder and Logger are
// optional.
type Deps struct {
	Store     Store
	Catalog   Catalog
	Gateway   gateway.Gateway
	Publisher events.Publisher
	Recorder  Recorder
	Logger    *zap.Logger
}

type Service struct {
	store     Store
	catalog   Catalog
	gateway   gateway.Gateway
	publisher events.Publisher
	recorder  Recorder
	logger    *zap.Logger
}

func New(d Deps) *Service {
	s := &Service{
		store:     d.Store,
		catalog:   d.Catalog,
		gateway:   d.Gateway,
		publisher: d.Publisher,
		recorder:  d.Recorder,
		logger:    logging.OrNop(d.Logger).Named("checkout"),
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s
}

type CreateInput struct {
	PriceID                string          `json:"priceId"`
	Amount                 *int64          `json:"amount"`
	CustomerName           *string         `json:"customerName"`
	CustomerEmail          *string         `json:"customerEmail"`
	CustomerBillingAddress *domain.Address `json:"customerBillingAddress"`
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	PriceID                *string         `json:"priceId"`
	Amount                 *int64          `json:"amount"`
	CustomerName           *string         `json:"customerName"`
	CustomerEmail          *string         `json:"customerEmail"`
	CustomerBillingAddress *domain.Address `json:"customerBillingAddress"`
}

// ConfirmInput carries the confirmation token collected by the payment form.
// Customer fields override what the checkout already holds.
type ConfirmInput struct {
	ConfirmationTokenID    string          `json:"confirmationTokenId"`
	Amount                 *int64          `json:"amount"`
	CustomerName           *string         `json:"customerName"`
	CustomerEmail          *string         `json:"customerEmail"`
	CustomerBillingAddress *domain.Address `json:"customerBillingAddress"`
}

// Create opens a checkout for priceID on behalf of organizationID.
func (s *Service) Create(ctx context.Context, organizationID string, in CreateInput) (*domain.Checkout, error) {
	price, err := s.purchasablePrice(ctx, in.PriceID)
	if err != nil {
		return nil, err
	}
	writable, err := s.catalog.IsWritable(ctx, price.ID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("check price access: %w", err)
	}
	if !writable {
		return nil, fieldErr("priceId", ErrInvalidPrice)
	}
	amount, currency, err := resolveAmount(*price, in.Amount)
	if err != nil {
		return nil, err
	}

	c := &domain.Checkout{
		ID:               uuid.NewString(),
		OrganizationID:   price.Product.OrganizationID,
		Status:           domain.CheckoutStatusOpen,
		PaymentProcessor: domain.PaymentProcessorStripe,
		ProductID:        price.ProductID,
		PriceID:          price.ID,
		Amount:           amount,
		Currency:         currency,
	}
	applyCustomer(c, in.CustomerName, in.CustomerEmail, in.CustomerBillingAddress)

	if err := s.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create checkout: %w", err)
	}
	s.recorder.Transition("", c.Status)
	s.publish(ctx, events.TypeCheckoutCreated, *c)
	s.logger.Info("checkout created",
		zap.String("checkout_id", c.ID),
		zap.String("price_id", c.PriceID),
		zap.String("amount_type", string(price.AmountType)),
	)
	return c, nil
}

// Get returns a checkout owned by organizationID.
func (s *Service) Get(ctx context.Context, organizationID, id string) (*domain.Checkout, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OrganizationID != organizationID {
		return nil, ErrCheckoutDoesNotExist
	}
	return c, nil
}

// Update patches an open checkout. A price change must stay on the same
// product and re-derives the amount with the creation rules.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*domain.Checkout, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CheckoutStatusOpen {
		return nil, ErrNotOpen
	}

	next := c.Clone()
	if err := s.applyPricing(ctx, &next, in.PriceID, in.Amount); err != nil {
		return nil, err
	}
	applyCustomer(&next, in.CustomerName, in.CustomerEmail, in.CustomerBillingAddress)

	if err := s.store.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("save checkout: %w", err)
	}
	s.publish(ctx, events.TypeCheckoutUpdated, next)
	return &next, nil
}

// Confirm validates the checkout for payment, creates the processor customer
// and setup intent, then moves the checkout to confirmed. Nothing is saved
// when a gateway call fails.
func (s *Service) Confirm(ctx context.Context, id string, in ConfirmInput) (*domain.Checkout, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CheckoutStatusOpen {
		return nil, ErrNotOpen
	}

	next := c.Clone()
	if err := s.applyPricing(ctx, &next, nil, in.Amount); err != nil {
		return nil, err
	}
	price, err := s.purchasablePrice(ctx, next.PriceID)
	if err != nil {
		return nil, err
	}
	if price.AmountType == domain.AmountTypeCustom && next.Amount == nil {
		return nil, fieldErr("amount", ErrMissingAmount)
	}
	applyCustomer(&next, in.CustomerName, in.CustomerEmail, in.CustomerBillingAddress)
	if err := requireConfirmFields(next, in.ConfirmationTokenID); err != nil {
		return nil, err
	}

	started := time.Now()
	customerID, err := s.gateway.CreateCustomer(ctx, gateway.CustomerParams{
		Name:    *next.CustomerName,
		Email:   *next.CustomerEmail,
		Address: *next.CustomerBillingAddress,
	})
	s.recorder.GatewayCall("create_customer", started, err)
	if err != nil {
		return nil, fmt.Errorf("confirm checkout %s: %w", id, err)
	}

	started = time.Now()
	intent, err := s.gateway.CreateSetupIntent(ctx, gateway.SetupIntentParams{
		CustomerID:          customerID,
		ConfirmationTokenID: in.ConfirmationTokenID,
		Metadata:            map[string]string{"checkout_id": next.ID},
	})
	s.recorder.GatewayCall("create_setup_intent", started, err)
	if err != nil {
		return nil, fmt.Errorf("confirm checkout %s: %w", id, err)
	}

	next.SetMetadata(domain.MetadataSetupIntentClientSecret, intent.ClientSecret)
	next.SetMetadata(domain.MetadataSetupIntentStatus, intent.Status)
	next.Status = domain.CheckoutStatusConfirmed
	if err := s.store.Save(ctx, &next); err != nil {
		s.logger.Warn("confirmed checkout not saved after gateway calls",
			zap.String("checkout_id", id),
			zap.String("customer_id", customerID),
			zap.String("setup_intent_id", intent.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("save checkout: %w", err)
	}
	s.recorder.Transition(c.Status, next.Status)
	s.publish(ctx, events.TypeCheckoutConfirmed, next)
	s.logger.Info("checkout confirmed", zap.String("checkout_id", id), zap.String("setup_intent_status", intent.Status))
	return &next, nil
}

// HandlePaymentResult settles a confirmed checkout once its setup intent
// succeeded: one-time prices are invoiced, recurring prices subscribed.
// Every rejection leaves the checkout confirmed so the caller can retry.
func (s *Service) HandlePaymentResult(ctx context.Context, id string, res gateway.SetupIntentResult) (*domain.Checkout, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, ErrAlreadyProcessed
	}
	if c.Status != domain.CheckoutStatusConfirmed {
		return nil, ErrNotConfirmed
	}
	if res.Status != gateway.SetupIntentStatusSucceeded {
		return nil, ErrSetupIntentNotSucceeded
	}
	if res.Customer == "" {
		return nil, ErrNoCustomer
	}
	if res.PaymentMethod == "" {
		return nil, ErrNoPaymentMethod
	}

	price, err := s.price(ctx, c.PriceID)
	if err != nil {
		return nil, err
	}
	charge := gateway.ChargeParams{
		Checkout:        c.Clone(),
		Price:           *price,
		CustomerID:      res.Customer,
		PaymentMethodID: res.PaymentMethod,
	}

	next := c.Clone()
	started := time.Now()
	if price.IsRecurring() {
		charge.IdempotencyKey = idempotencyKey(c.ID, "subscription")
		subscriptionID, err := s.gateway.CreateSubscription(ctx, charge)
		s.recorder.GatewayCall("create_subscription", started, err)
		if err != nil {
			return nil, fmt.Errorf("settle checkout %s: %w", id, err)
		}
		next.SetMetadata(domain.MetadataSubscriptionID, subscriptionID)
	} else {
		charge.IdempotencyKey = idempotencyKey(c.ID, "invoice")
		invoiceID, err := s.gateway.CreateInvoice(ctx, charge)
		s.recorder.GatewayCall("create_invoice", started, err)
		if err != nil {
			return nil, fmt.Errorf("settle checkout %s: %w", id, err)
		}
		next.SetMetadata(domain.MetadataInvoiceID, invoiceID)
	}

	next.SetMetadata(domain.MetadataSetupIntentStatus, res.Status)
	next.Status = domain.CheckoutStatusSucceeded
	if err := s.store.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("save checkout: %w", err)
	}
	s.recorder.Transition(c.Status, next.Status)
	s.publish(ctx, events.TypeCheckoutSucceeded, next)
	s.logger.Info("checkout succeeded", zap.String("checkout_id", id), zap.Bool("recurring", price.IsRecurring()))
	return &next, nil
}

// HandlePaymentFailure marks a confirmed checkout failed after the processor
// reported its setup intent as canceled.
func (s *Service) HandlePaymentFailure(ctx context.Context, id string, res gateway.SetupIntentResult) (*domain.Checkout, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, ErrAlreadyProcessed
	}
	if c.Status != domain.CheckoutStatusConfirmed {
		return nil, ErrNotConfirmed
	}

	next := c.Clone()
	if res.Status != "" {
		next.SetMetadata(domain.MetadataSetupIntentStatus, res.Status)
	}
	next.Status = domain.CheckoutStatusFailed
	if err := s.store.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("save checkout: %w", err)
	}
	s.recorder.Transition(c.Status, next.Status)
	s.publish(ctx, events.TypeCheckoutFailed, next)
	s.logger.Info("checkout failed", zap.String("checkout_id", id), zap.String("setup_intent_status", res.Status))
	return &next, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Checkout, error) {
	c, err := s.store.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrCheckoutDoesNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("load checkout %s: %w", id, err)
	}
	return c, nil
}

func (s *Service) price(ctx context.Context, id string) (*domain.Price, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fieldErr("priceId", ErrInvalidPrice)
	}
	p, err := s.catalog.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fieldErr("priceId", ErrInvalidPrice)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve price %s: %w", id, err)
	}
	return p, nil
}

func (s *Service) purchasablePrice(ctx context.Context, id string) (*domain.Price, error) {
	p, err := s.price(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Purchasable() {
		return nil, fieldErr("priceId", ErrInvalidPrice)
	}
	return p, nil
}

// applyPricing switches c to priceID when it differs from the current price,
// or applies a chosen amount to the current price.
func (s *Service) applyPricing(ctx context.Context, c *domain.Checkout, priceID *string, amount *int64) error {
	if priceID != nil && *priceID != c.PriceID {
		price, err := s.purchasablePrice(ctx, *priceID)
		if err != nil {
			return err
		}
		if price.ProductID != c.ProductID {
			return fieldErr("priceId", ErrPriceMismatch)
		}
		resolved, currency, err := resolveAmount(*price, amount)
		if err != nil {
			return err
		}
		c.PriceID = price.ID
		c.Amount = resolved
		c.Currency = currency
		return nil
	}
	if amount == nil {
		return nil
	}

	price, err := s.price(ctx, c.PriceID)
	if err != nil {
		return err
	}
	if !price.AmountAllowed(*amount) {
		return fieldErr("amount", ErrInvalidField)
	}
	v := *amount
	c.Amount = &v
	return nil
}

// resolveAmount derives amount and currency from a price and an optional
// customer-chosen amount.
func resolveAmount(price domain.Price, requested *int64) (*int64, *string, error) {
	switch price.AmountType {
	case domain.AmountTypeFixed:
		if requested != nil {
			return nil, nil, fieldErr("amount", ErrInvalidField)
		}
		return copyInt(price.Amount), copyString(price.Currency), nil
	case domain.AmountTypeFree:
		if requested != nil {
			return nil, nil, fieldErr("amount", ErrInvalidField)
		}
		return nil, nil, nil
	case domain.AmountTypeCustom:
		amount := price.PresetAmount
		if requested != nil {
			if !price.AmountAllowed(*requested) {
				return nil, nil, fieldErr("amount", ErrInvalidField)
			}
			amount = requested
		}
		return copyInt(amount), copyString(price.Currency), nil
	default:
		return nil, nil, fieldErr("priceId", ErrInvalidPrice)
	}
}

func applyCustomer(c *domain.Checkout, name, email *string, address *domain.Address) {
	if name != nil {
		c.CustomerName = copyString(name)
	}
	if email != nil {
		c.CustomerEmail = copyString(email)
	}
	if address != nil {
		a := *address
		c.CustomerBillingAddress = &a
	}
}

func requireConfirmFields(c domain.Checkout, confirmationToken string) error {
	switch {
	case strings.TrimSpace(confirmationToken) == "":
		return fieldErr("confirmationTokenId", ErrMissingRequiredField)
	case c.CustomerName == nil || strings.TrimSpace(*c.CustomerName) == "":
		return fieldErr("customerName", ErrMissingRequiredField)
	case c.CustomerEmail == nil || strings.TrimSpace(*c.CustomerEmail) == "":
		return fieldErr("customerEmail", ErrMissingRequiredField)
	case c.CustomerBillingAddress == nil || strings.TrimSpace(c.CustomerBillingAddress.Country) == "":
		return fieldErr("customerBillingAddress", ErrMissingRequiredField)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, c domain.Checkout) {
	if err := s.publisher.Publish(ctx, events.NewCheckoutEvent(eventType, c)); err != nil {
		s.logger.Warn("publish checkout event", zap.String("type", eventType), zap.String("checkout_id", c.ID), zap.Error(err))
	}
}

func idempotencyKey(checkoutID, operation string) string {
	return "checkout-" + checkoutID + "-" + operation
}

func copyInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
