package organization

import (
	"context"
	"errors"
	"testing"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/testutil/pgtest"
)

func TestPostgres_CreateAndFetch(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Pool(ctx, t)
	repo := NewPostgres(pool)

	created, err := repo.Create(ctx, &domain.Organization{Slug: "acme", Name: "Acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", created)
	}

	bySlug, err := repo.GetBySlug(ctx, "acme")
	if err != nil || bySlug.ID != created.ID {
		t.Fatalf("GetBySlug: %+v, %v", bySlug, err)
	}
	byID, err := repo.GetByID(ctx, created.ID)
	if err != nil || byID.Name != "Acme" {
		t.Fatalf("GetByID: %+v, %v", byID, err)
	}

	if _, err := repo.Create(ctx, &domain.Organization{Slug: "acme", Name: "Again"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := repo.GetBySlug(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
