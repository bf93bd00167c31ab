package seed

import (
	"context"
	"testing"

	"billing-checkout/internal/repository/organization"
	"billing-checkout/internal/repository/price"
	"billing-checkout/internal/repository/product"
	"billing-checkout/internal/testutil/pgtest"
)

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	if _, err := Apply(ctx, pool, nil); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	sum, err := Apply(ctx, pool, nil)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if sum.Prices != 0 || sum.Unchanged != 6 {
		t.Fatalf("expected rerun to be a no-op, got %+v", sum)
	}

	org, err := organization.NewPostgres(pool).GetBySlug(ctx, "demo")
	if err != nil {
		t.Fatalf("get demo org: %v", err)
	}
	products, err := product.NewPostgres(pool, nil).ListByOrganization(ctx, org.ID)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
	var total int
	prices := price.NewPostgres(pool, nil)
	for _, p := range products {
		list, err := prices.ListByProduct(ctx, p.ID)
		if err != nil {
			t.Fatalf("list prices: %v", err)
		}
		total += len(list)
	}
	if total != 6 {
		t.Fatalf("expected 6 prices, got %d", total)
	}
}
