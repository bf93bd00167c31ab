// Package product serves the read side of the catalog: an organization's
// products with the prices a checkout can be opened against.
package product

import (
	"context"
	"fmt"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/logging"
	"go.uber.org/zap"
)

type ProductReader interface {
	ListByOrganization(ctx context.Context, organizationID string) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type PriceLister interface {
	ListByProduct(ctx context.Context, productID string) ([]domain.Price, error)
}

// Listing is a product together with its prices.
type Listing struct {
	domain.Product
	Prices []domain.Price `json:"prices"`
}

type Service struct {
	products ProductReader
	prices   PriceLister
	logger   *zap.Logger
}

func New(products ProductReader, prices PriceLister, logger *zap.Logger) *Service {
	return &Service{products: products, prices: prices, logger: logging.OrNop(logger).Named("catalog")}
}

// List returns the organization's products. Archived products are skipped
// unless includeArchived is set.
func (s *Service) List(ctx context.Context, organizationID string, includeArchived bool) ([]Listing, error) {
	products, err := s.products.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]Listing, 0, len(products))
	for _, p := range products {
		if p.IsArchived && !includeArchived {
			continue
		}
		l, err := s.listing(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// Get returns one product of the organization. Products of other
// organizations are reported as not found.
func (s *Service) Get(ctx context.Context, organizationID, id string) (*Listing, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OrganizationID != organizationID {
		s.logger.Debug("product outside organization", zap.String("product_id", id), zap.String("organization_id", organizationID))
		return nil, domain.ErrNotFound
	}
	l, err := s.listing(ctx, *p)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Service) listing(ctx context.Context, p domain.Product) (Listing, error) {
	prices, err := s.prices.ListByProduct(ctx, p.ID)
	if err != nil {
		return Listing{}, fmt.Errorf("list prices of %s: %w", p.ID, err)
	}
	if prices == nil {
		prices = []domain.Price{}
	}
	return Listing{Product: p, Prices: prices}, nil
}
