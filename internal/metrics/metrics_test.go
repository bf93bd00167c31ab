package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/testutil/pgtest"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistrySlugsAreUnique(t *testing.T) {
	seen := map[Slug]bool{}
	for _, m := range Registry {
		if seen[m.Slug] {
			t.Fatalf("duplicate slug %s", m.Slug)
		}
		seen[m.Slug] = true
		if got, ok := Lookup(m.Slug); !ok || got != m {
			t.Fatalf("lookup mismatch for %s", m.Slug)
		}
	}
	if _, ok := Lookup("unknown"); ok {
		t.Fatalf("unexpected lookup hit")
	}
}

func TestParamsValidate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		p    Params
		want error
	}{
		{"ok", Params{Start: start, End: start.AddDate(0, 1, 0), Interval: IntervalDay, Currency: "usd"}, nil},
		{"bad interval", Params{Start: start, End: start, Interval: "hour"}, ErrInvalidInterval},
		{"reversed", Params{Start: start, End: start.AddDate(0, 0, -1), Interval: IntervalDay}, ErrInvalidRange},
		{"too long for days", Params{Start: start, End: start.AddDate(2, 0, 0), Interval: IntervalDay}, ErrInvalidRange},
		{"long months ok", Params{Start: start, End: start.AddDate(2, 0, 0), Interval: IntervalMonth, Currency: "usd"}, nil},
		{"no currency", Params{Start: start, End: start.AddDate(0, 1, 0), Interval: IntervalDay}, ErrCurrencyRequired},
	}
	for _, tc := range cases {
		err := tc.p.Validate()
		if tc.want == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestPeriodMarshalJSON(t *testing.T) {
	p := Period{
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Values:    map[Slug]int64{SlugCheckouts: 3, SlugRevenue: 4200},
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["checkouts"].(float64) != 3 || out["revenue"].(float64) != 4200 {
		t.Fatalf("unexpected values %v", out)
	}
	if _, ok := out["failed_checkouts"]; !ok {
		t.Fatalf("every registered slug must be present, got %v", out)
	}
	if out["timestamp"] != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected timestamp %v", out["timestamp"])
	}
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.Transition(domain.CheckoutStatusOpen, domain.CheckoutStatusConfirmed)
	c.Transition(domain.CheckoutStatusOpen, domain.CheckoutStatusConfirmed)
	c.GatewayCall("create_invoice", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(c.transitions.WithLabelValues("open", "confirmed")); got != 2 {
		t.Fatalf("expected 2 transitions, got %v", got)
	}
	if n := testutil.CollectAndCount(c.gatewayCall); n != 1 {
		t.Fatalf("expected one gateway series, got %d", n)
	}
}

func TestServiceQueryRejectsInvalidParams(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Query(context.Background(), Params{Interval: "hour"})
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected invalid interval, got %v", err)
	}
}

func TestServiceQuery_Postgres(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	orgID := pgtest.Organization(ctx, t, pool, "acme")
	productID := pgtest.Product(ctx, t, pool, orgID, "pro")
	priceID := pgtest.FixedPrice(ctx, t, pool, productID, 1000, "usd")

	insert := func(status string, amount int64, currency string, created time.Time) {
		t.Helper()
		_, err := pool.Exec(ctx, `
INSERT INTO checkouts (id, organization_id, status, product_id, price_id, amount, currency, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, uuid.NewString(), orgID, status, productID, priceID, amount, currency, created)
		if err != nil {
			t.Fatalf("insert checkout: %v", err)
		}
	}
	day1 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	insert("succeeded", 1000, "usd", day1)
	insert("succeeded", 3000, "usd", day1)
	insert("failed", 1000, "usd", day1)
	insert("succeeded", 90000, "eur", day1)
	insert("open", 1000, "usd", day2)

	svc := NewService(pool)
	resp, err := svc.Query(ctx, Params{
		OrganizationID: orgID,
		Start:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		Interval:       IntervalDay,
		Currency:       "usd",
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(resp.Periods) != 3 {
		t.Fatalf("expected 3 periods, got %d", len(resp.Periods))
	}
	first := resp.Periods[0].Values
	if first[SlugCheckouts] != 3 || first[SlugSucceededCheckouts] != 2 || first[SlugFailedCheckouts] != 1 {
		t.Fatalf("unexpected counts %v", first)
	}
	if first[SlugRevenue] != 4000 || first[SlugAverageRevenue] != 2000 {
		t.Fatalf("unexpected revenue %v", first)
	}
	if resp.Periods[1].Values[SlugCheckouts] != 1 || resp.Periods[2].Values[SlugCheckouts] != 0 {
		t.Fatalf("unexpected later periods %+v", resp.Periods)
	}
}
