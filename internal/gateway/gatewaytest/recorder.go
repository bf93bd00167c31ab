// Package gatewaytest provides a recording, scriptable gateway for tests.
package gatewaytest

import (
	"context"
	"sync"

	"billing-checkout/internal/gateway"
)

// Recorder implements gateway.Gateway. It returns the scripted results and
// records every call so tests can assert call counts and arguments.
type Recorder struct {
	mu sync.Mutex

	CustomerID     string
	SetupIntent    gateway.SetupIntent
	InvoiceID      string
	SubscriptionID string

	CustomerErr     error
	SetupIntentErr  error
	InvoiceErr      error
	SubscriptionErr error

	CustomerCalls     []gateway.CustomerParams
	SetupIntentCalls  []gateway.SetupIntentParams
	InvoiceCalls      []gateway.ChargeParams
	SubscriptionCalls []gateway.ChargeParams
}

// New returns a Recorder with plausible defaults.
func New() *Recorder {
	return &Recorder{
		CustomerID:     "cus_test",
		SetupIntent:    gateway.SetupIntent{ID: "seti_test", ClientSecret: "seti_test_secret", Status: "succeeded"},
		InvoiceID:      "in_test",
		SubscriptionID: "sub_test",
	}
}

func (r *Recorder) CreateCustomer(_ context.Context, p gateway.CustomerParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CustomerCalls = append(r.CustomerCalls, p)
	if r.CustomerErr != nil {
		return "", r.CustomerErr
	}
	return r.CustomerID, nil
}

func (r *Recorder) CreateSetupIntent(_ context.Context, p gateway.SetupIntentParams) (*gateway.SetupIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SetupIntentCalls = append(r.SetupIntentCalls, p)
	if r.SetupIntentErr != nil {
		return nil, r.SetupIntentErr
	}
	si := r.SetupIntent
	return &si, nil
}

func (r *Recorder) CreateInvoice(_ context.Context, p gateway.ChargeParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.InvoiceCalls = append(r.InvoiceCalls, p)
	if r.InvoiceErr != nil {
		return "", r.InvoiceErr
	}
	return r.InvoiceID, nil
}

func (r *Recorder) CreateSubscription(_ context.Context, p gateway.ChargeParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SubscriptionCalls = append(r.SubscriptionCalls, p)
	if r.SubscriptionErr != nil {
		return "", r.SubscriptionErr
	}
	return r.SubscriptionID, nil
}

// Calls returns the number of calls made to each operation.
func (r *Recorder) Calls() (customers, setupIntents, invoices, subscriptions int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.CustomerCalls), len(r.SetupIntentCalls), len(r.InvoiceCalls), len(r.SubscriptionCalls)
}

var _ gateway.Gateway = (*Recorder)(nil)
