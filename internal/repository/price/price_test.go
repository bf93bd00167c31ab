package price

import (
	"context"
	"errors"
	"testing"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/testutil/pgtest"
)

func TestPostgres_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	orgID := pgtest.Organization(ctx, t, pool, "acme")
	productID := pgtest.Product(ctx, t, pool, orgID, "donation")

	repo := NewPostgres(pool, nil)
	min := int64(500)
	currency := "usd"
	created, err := repo.Create(ctx, domain.Price{
		ProductID:     productID,
		Type:          domain.PriceTypeOneTime,
		AmountType:    domain.AmountTypeCustom,
		Currency:      &currency,
		MinimumAmount: &min,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.AmountType != domain.AmountTypeCustom || created.Amount != nil {
		t.Fatalf("unexpected price %+v", created)
	}
	if created.MinimumAmount == nil || *created.MinimumAmount != 500 {
		t.Fatalf("expected minimum amount, got %+v", created.MinimumAmount)
	}
	if created.Product.ID != productID || created.Product.OrganizationID != orgID {
		t.Fatalf("product not joined: %+v", created.Product)
	}

	list, err := repo.ListByProduct(ctx, productID)
	if err != nil {
		t.Fatalf("ListByProduct: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestPostgres_IsWritable(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	orgID := pgtest.Organization(ctx, t, pool, "acme")
	otherID := pgtest.Organization(ctx, t, pool, "other")
	productID := pgtest.Product(ctx, t, pool, orgID, "pro")
	priceID := pgtest.FixedPrice(ctx, t, pool, productID, 1000, "usd")

	repo := NewPostgres(pool, nil)
	ok, err := repo.IsWritable(ctx, priceID, orgID)
	if err != nil || !ok {
		t.Fatalf("expected owner to write, got %v %v", ok, err)
	}
	ok, err = repo.IsWritable(ctx, priceID, otherID)
	if err != nil || ok {
		t.Fatalf("expected other organization to be rejected, got %v %v", ok, err)
	}
}

func TestPostgres_GetByIDNotFound(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	repo := NewPostgres(pool, nil)
	_, err := repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgres_MalformedIDIsNotFound(t *testing.T) {
	// Malformed ids never reach the pool.
	repo := NewPostgres(nil, nil)

	if _, err := repo.GetByID(context.Background(), "abc"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	ok, err := repo.IsWritable(context.Background(), "abc", "00000000-0000-0000-0000-000000000001")
	if err != nil || ok {
		t.Fatalf("expected not writable without error, got %v, %v", ok, err)
	}
}
