package product

import (
	"context"
	"errors"
	"testing"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/testutil/pgtest"
)

func TestPostgres_ListAndGet(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	orgID := pgtest.Organization(ctx, t, pool, "acme")
	pid := pgtest.Product(ctx, t, pool, orgID, "pro-plan")

	repo := NewPostgres(pool, nil)

	list, err := repo.ListByOrganization(ctx, orgID)
	if err != nil {
		t.Fatalf("ListByOrganization: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 product, got %d", len(list))
	}

	got, err := repo.GetByID(ctx, pid)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ID != pid || got.OrganizationID != orgID {
		t.Fatalf("unexpected product %+v", got)
	}
}

func TestPostgres_Upsert(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	orgID := pgtest.Organization(ctx, t, pool, "acme")
	repo := NewPostgres(pool, nil)

	p, err := repo.Upsert(ctx, domain.Product{
		OrganizationID:     orgID,
		Key:                "pro-plan",
		Name:               "Pro",
		ProcessorProductID: "prod_123",
	})
	if err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected ID set")
	}

	updated, err := repo.Upsert(ctx, domain.Product{
		OrganizationID: orgID,
		Key:            "pro-plan",
		Name:           "Pro (2024)",
		IsArchived:     true,
	})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if updated.ID != p.ID {
		t.Fatalf("expected same ID after update")
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Pro (2024)" || !got.IsArchived || got.ProcessorProductID != "prod_123" {
		t.Fatalf("unexpected updated product %+v", got)
	}
}

func TestPostgres_GetByIDNotFound(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)

	repo := NewPostgres(pool, nil)
	if _, err := repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000"); err != domain.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgres_GetMalformedID(t *testing.T) {
	if _, err := NewPostgres(nil, nil).GetByID(context.Background(), "pro-plan"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
