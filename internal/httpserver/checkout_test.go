package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/gateway"
	"billing-checkout/internal/metrics"
	checkoutsvc "billing-checkout/internal/service/checkout"
)

type stubCheckoutService struct {
	checkout *domain.Checkout
	err      error
	getErr   error

	lastOrgID   string
	lastCreate  checkoutsvc.CreateInput
	lastUpdate  checkoutsvc.UpdateInput
	lastConfirm checkoutsvc.ConfirmInput
	results     []gateway.SetupIntentResult
	failures    []gateway.SetupIntentResult
}

func (s *stubCheckoutService) Create(_ context.Context, organizationID string, in checkoutsvc.CreateInput) (*domain.Checkout, error) {
	s.lastOrgID = organizationID
	s.lastCreate = in
	return s.checkout, s.err
}

func (s *stubCheckoutService) Get(_ context.Context, organizationID, _ string) (*domain.Checkout, error) {
	s.lastOrgID = organizationID
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.checkout, nil
}

func (s *stubCheckoutService) Update(_ context.Context, _ string, in checkoutsvc.UpdateInput) (*domain.Checkout, error) {
	s.lastUpdate = in
	return s.checkout, s.err
}

func (s *stubCheckoutService) Confirm(_ context.Context, _ string, in checkoutsvc.ConfirmInput) (*domain.Checkout, error) {
	s.lastConfirm = in
	return s.checkout, s.err
}

func (s *stubCheckoutService) HandlePaymentResult(_ context.Context, _ string, res gateway.SetupIntentResult) (*domain.Checkout, error) {
	s.results = append(s.results, res)
	return s.checkout, s.err
}

func (s *stubCheckoutService) HandlePaymentFailure(_ context.Context, _ string, res gateway.SetupIntentResult) (*domain.Checkout, error) {
	s.failures = append(s.failures, res)
	return s.checkout, s.err
}

type stubMetricsService struct {
	resp   *metrics.Response
	err    error
	params metrics.Params
}

func (s *stubMetricsService) Query(_ context.Context, p metrics.Params) (*metrics.Response, error) {
	s.params = p
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.resp, s.err
}

func doJSON(t *testing.T, deps Deps, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := newTestRouter(t, nil, deps)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(organizationHeader, testOrgID)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func openCheckout() *domain.Checkout {
	amount := int64(1000)
	currency := "usd"
	return &domain.Checkout{
		ID:             "chk-1",
		OrganizationID: testOrgID,
		Status:         domain.CheckoutStatusOpen,
		PriceID:        "price-1",
		Amount:         &amount,
		Currency:       &currency,
	}
}

func TestCreateCheckoutHandler(t *testing.T) {
	svc := &stubCheckoutService{checkout: openCheckout()}
	deps := testDeps()
	deps.Checkouts = svc

	rec := doJSON(t, deps, http.MethodPost, "/v1/checkouts", `{"priceId":"price-1","customerEmail":"ada@example.com"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastOrgID != testOrgID || svc.lastCreate.PriceID != "price-1" || *svc.lastCreate.CustomerEmail != "ada@example.com" {
		t.Fatalf("unexpected create call %q %+v", svc.lastOrgID, svc.lastCreate)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["id"] != "chk-1" || body["status"] != "open" || body["amount"].(float64) != 1000 {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["Version"]; ok {
		t.Fatalf("version must not be exposed")
	}
}

func TestCreateCheckoutBadBody(t *testing.T) {
	rec := doJSON(t, testDeps(), http.MethodPost, "/v1/checkouts", `{"priceId":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckoutErrorMapping(t *testing.T) {
	cases := []struct {
		err       error
		want      int
		wantField string
	}{
		{&checkoutsvc.FieldError{Field: "amount", Err: checkoutsvc.ErrInvalidField}, http.StatusUnprocessableEntity, "amount"},
		{&checkoutsvc.FieldError{Field: "priceId", Err: checkoutsvc.ErrPriceMismatch}, http.StatusUnprocessableEntity, "priceId"},
		{fmt.Errorf("wrapped: %w", &checkoutsvc.FieldError{Field: "customerEmail", Err: checkoutsvc.ErrMissingRequiredField}), http.StatusUnprocessableEntity, "customerEmail"},
		{checkoutsvc.ErrMissingAmount, http.StatusUnprocessableEntity, ""},
		{checkoutsvc.ErrNotOpen, http.StatusConflict, ""},
		{checkoutsvc.ErrNotConfirmed, http.StatusConflict, ""},
		{fmt.Errorf("save checkout: %w", domain.ErrConflict), http.StatusConflict, ""},
		{checkoutsvc.ErrCheckoutDoesNotExist, http.StatusNotFound, ""},
		{errors.New("stripe unavailable"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		deps := testDeps()
		deps.Checkouts = &stubCheckoutService{checkout: openCheckout(), err: tc.err}

		rec := doJSON(t, deps, http.MethodPost, "/v1/checkouts/chk-1/confirm", `{"confirmationTokenId":"ctoken"}`)

		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
		var body map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if tc.wantField != "" && body["field"] != tc.wantField {
			t.Fatalf("%v: expected field %q, got %v", tc.err, tc.wantField, body)
		}
		if tc.want == http.StatusInternalServerError && body["error"] != "internal error" {
			t.Fatalf("internal errors must not leak, got %v", body)
		}
	}
}

func TestUpdateCheckoutScopedToOrganization(t *testing.T) {
	svc := &stubCheckoutService{checkout: openCheckout(), getErr: checkoutsvc.ErrCheckoutDoesNotExist}
	deps := testDeps()
	deps.Checkouts = svc

	rec := doJSON(t, deps, http.MethodPatch, "/v1/checkouts/chk-1", `{"amount":4242}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if svc.lastUpdate.Amount != nil {
		t.Fatalf("update must not run for a foreign checkout")
	}
}

func TestUpdateCheckoutHandler(t *testing.T) {
	svc := &stubCheckoutService{checkout: openCheckout()}
	deps := testDeps()
	deps.Checkouts = svc

	rec := doJSON(t, deps, http.MethodPatch, "/v1/checkouts/chk-1", `{"amount":4242,"customerBillingAddress":{"country":"FR"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.lastUpdate.Amount == nil || *svc.lastUpdate.Amount != 4242 || svc.lastUpdate.PriceID != nil {
		t.Fatalf("unexpected patch %+v", svc.lastUpdate)
	}
	if svc.lastUpdate.CustomerBillingAddress == nil || svc.lastUpdate.CustomerBillingAddress.Country != "FR" {
		t.Fatalf("address not decoded: %+v", svc.lastUpdate)
	}
}

func TestGetCheckoutHandler(t *testing.T) {
	deps := testDeps()
	deps.Checkouts = &stubCheckoutService{checkout: openCheckout()}

	rec := doJSON(t, deps, http.MethodGet, "/v1/checkouts/chk-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCheckoutMetricsHandler(t *testing.T) {
	svc := &stubMetricsService{resp: &metrics.Response{}}
	deps := testDeps()
	deps.Metrics = svc

	rec := doJSON(t, deps, http.MethodGet, "/v1/metrics/checkouts?start_date=2024-01-01&end_date=2024-01-31&interval=week&currency=USD", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.params.OrganizationID != testOrgID || svc.params.Interval != metrics.IntervalWeek || svc.params.Currency != "usd" {
		t.Fatalf("unexpected params %+v", svc.params)
	}

	rec = doJSON(t, deps, http.MethodGet, "/v1/metrics/checkouts?start_date=jan&end_date=2024-01-31", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rec.Code)
	}

	rec = doJSON(t, deps, http.MethodGet, "/v1/metrics/checkouts?start_date=2024-01-01&end_date=2024-01-31&interval=hour", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad interval, got %d", rec.Code)
	}

	rec = doJSON(t, deps, http.MethodGet, "/v1/metrics/checkouts?start_date=2024-01-01&end_date=2024-01-31", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without currency, got %d", rec.Code)
	}
}
