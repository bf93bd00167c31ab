package checkout

import (
	"context"

	"billing-checkout/internal/domain"
)

// Repository persists checkouts. Save is an optimistic write: it fails with
// domain.ErrConflict when the stored version no longer matches.
type Repository interface {
	Create(ctx context.Context, c *domain.Checkout) error
	GetByID(ctx context.Context, id string) (*domain.Checkout, error)
	Save(ctx context.Context, c *domain.Checkout) error
}
