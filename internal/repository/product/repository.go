package product

import (
	"context"

	"billing-checkout/internal/domain"
)

type Repository interface {
	ListByOrganization(ctx context.Context, organizationID string) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}
