package price

import (
	"context"

	"billing-checkout/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Price, error)
	IsWritable(ctx context.Context, id, organizationID string) (bool, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Price, error)
	Create(ctx context.Context, price domain.Price) (*domain.Price, error)
}
