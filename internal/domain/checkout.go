package domain

import "time"

// CheckoutStatus is the lifecycle state of a checkout.
type CheckoutStatus string

const (
	CheckoutStatusOpen      CheckoutStatus = "open"
	CheckoutStatusConfirmed CheckoutStatus = "confirmed"
	CheckoutStatusSucceeded CheckoutStatus = "succeeded"
	CheckoutStatusFailed    CheckoutStatus = "failed"
)

var validNext = map[CheckoutStatus]map[CheckoutStatus]bool{
	CheckoutStatusOpen:      {CheckoutStatusConfirmed: true},
	CheckoutStatusConfirmed: {CheckoutStatusSucceeded: true, CheckoutStatusFailed: true},
	CheckoutStatusSucceeded: {},
	CheckoutStatusFailed:    {},
}

// CanTransition reports whether a checkout may move from one status to another.
// Status never regresses.
func CanTransition(from, to CheckoutStatus) bool {
	return validNext[from][to]
}

// IsTerminal reports whether no further transition is possible.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusSucceeded || s == CheckoutStatusFailed
}

func (s CheckoutStatus) String() string {
	return string(s)
}

// PaymentProcessorStripe is the only processor checkouts are opened against.
const PaymentProcessorStripe = "stripe"

// Payment-processor metadata keys written during the lifecycle.
const (
	MetadataSetupIntentClientSecret = "setup_intent_client_secret"
	MetadataSetupIntentStatus       = "setup_intent_status"
	MetadataInvoiceID               = "invoice_id"
	MetadataSubscriptionID          = "subscription_id"
)

// Address is a customer billing address.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country"`
}

// Checkout is a single purchase session.
type Checkout struct {
	ID                       string            `json:"id"`
	OrganizationID           string            `json:"organizationId"`
	Status                   CheckoutStatus    `json:"status"`
	PaymentProcessor         string            `json:"paymentProcessor"`
	ProductID                string            `json:"productId"`
	PriceID                  string            `json:"priceId"`
	Amount                   *int64            `json:"amount"`
	Currency                 *string           `json:"currency"`
	PaymentProcessorMetadata map[string]string `json:"paymentProcessorMetadata"`
	CustomerName             *string           `json:"customerName"`
	CustomerEmail            *string           `json:"customerEmail"`
	CustomerBillingAddress   *Address          `json:"customerBillingAddress"`
	Version                  int               `json:"-"`
	CreatedAt                time.Time         `json:"createdAt"`
	ModifiedAt               time.Time         `json:"modifiedAt"`
}

// SetMetadata records a payment-processor metadata entry.
func (c *Checkout) SetMetadata(key, value string) {
	if c.PaymentProcessorMetadata == nil {
		c.PaymentProcessorMetadata = make(map[string]string)
	}
	c.PaymentProcessorMetadata[key] = value
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (c Checkout) Clone() Checkout {
	out := c
	if c.Amount != nil {
		v := *c.Amount
		out.Amount = &v
	}
	if c.Currency != nil {
		v := *c.Currency
		out.Currency = &v
	}
	if c.CustomerName != nil {
		v := *c.CustomerName
		out.CustomerName = &v
	}
	if c.CustomerEmail != nil {
		v := *c.CustomerEmail
		out.CustomerEmail = &v
	}
	if c.CustomerBillingAddress != nil {
		v := *c.CustomerBillingAddress
		out.CustomerBillingAddress = &v
	}
	if c.PaymentProcessorMetadata != nil {
		out.PaymentProcessorMetadata = make(map[string]string, len(c.PaymentProcessorMetadata))
		for k, v := range c.PaymentProcessorMetadata {
			out.PaymentProcessorMetadata[k] = v
		}
	}
	return out
}
