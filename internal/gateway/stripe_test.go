package gateway

import (
	"testing"
	"time"

	"billing-checkout/internal/domain"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

func signedPayload(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestParseEventSetupIntent(t *testing.T) {
	g := &RealGateway{webhookSecret: testWebhookSecret, logger: zap.NewNop()}
	body, header := signedPayload(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "setup_intent.succeeded",
		"data": {"object": {
			"id": "seti_1",
			"object": "setup_intent",
			"status": "succeeded",
			"customer": "cus_1",
			"payment_method": "pm_1",
			"metadata": {"checkout_id": "chk_1"}
		}}
	}`)

	evt, err := g.ParseEvent(body, header)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if evt.ID != "evt_1" || evt.Type != EventSetupIntentSucceeded {
		t.Fatalf("unexpected event %+v", evt)
	}
	si := evt.SetupIntent
	if si == nil {
		t.Fatalf("expected setup intent")
	}
	if si.ID != "seti_1" || si.Status != "succeeded" || si.Customer != "cus_1" || si.PaymentMethod != "pm_1" || si.CheckoutID != "chk_1" {
		t.Fatalf("unexpected setup intent %+v", si)
	}
}

func TestParseEventMissingRefs(t *testing.T) {
	g := &RealGateway{webhookSecret: testWebhookSecret, logger: zap.NewNop()}
	body, header := signedPayload(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "setup_intent.canceled",
		"data": {"object": {"id": "seti_2", "object": "setup_intent", "status": "canceled", "customer": null, "payment_method": null}}
	}`)

	evt, err := g.ParseEvent(body, header)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if evt.SetupIntent == nil || evt.SetupIntent.Customer != "" || evt.SetupIntent.PaymentMethod != "" {
		t.Fatalf("expected empty refs, got %+v", evt.SetupIntent)
	}
}

func TestParseEventOtherType(t *testing.T) {
	g := &RealGateway{webhookSecret: testWebhookSecret, logger: zap.NewNop()}
	body, header := signedPayload(t, `{"id": "evt_3", "object": "event", "type": "invoice.paid", "data": {"object": {"id": "in_1"}}}`)

	evt, err := g.ParseEvent(body, header)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if evt.SetupIntent != nil {
		t.Fatalf("expected no setup intent for %s", evt.Type)
	}
}

func TestParseEventBadSignature(t *testing.T) {
	g := &RealGateway{webhookSecret: testWebhookSecret, logger: zap.NewNop()}
	body, _ := signedPayload(t, `{"id": "evt_4", "object": "event", "type": "setup_intent.succeeded"}`)

	if _, err := g.ParseEvent(body, "t=1,v1=deadbeef"); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestChargeCurrency(t *testing.T) {
	usd := "usd"
	eur := "eur"
	if got := chargeCurrency(ChargeParams{Checkout: domain.Checkout{Currency: &usd}, Price: domain.Price{Currency: &eur}}); got != "usd" {
		t.Fatalf("checkout currency should win, got %q", got)
	}
	if got := chargeCurrency(ChargeParams{Price: domain.Price{Currency: &eur}}); got != "eur" {
		t.Fatalf("expected price currency, got %q", got)
	}
	if got := chargeCurrency(ChargeParams{}); got != "" {
		t.Fatalf("expected empty currency, got %q", got)
	}
}

func TestAddressParams(t *testing.T) {
	p := addressParams(domain.Address{Country: "FR", City: "Paris"})
	if p.Country == nil || *p.Country != "FR" || p.City == nil || *p.City != "Paris" {
		t.Fatalf("unexpected params %+v", p)
	}
	if p.Line1 != nil || p.PostalCode != nil {
		t.Fatalf("empty fields must stay unset")
	}
}
