package product

import (
	"context"
	"errors"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/logging"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("product_repo")}
}

func (r *postgresRepo) ListByOrganization(ctx context.Context, organizationID string) ([]domain.Product, error) {
	const q = `
SELECT id::text, organization_id::text, key, name, is_archived, COALESCE(processor_product_id, ''), created_at
FROM products
WHERE organization_id = $1
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q, organizationID)
	if err != nil {
		r.logger.Error("list failed", zap.String("organization_id", organizationID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Key, &p.Name, &p.IsArchived, &p.ProcessorProductID, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("listed", zap.String("organization_id", organizationID), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	const q = `
SELECT id::text, organization_id::text, key, name, is_archived, COALESCE(processor_product_id, ''), created_at
FROM products
WHERE id = $1
`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.OrganizationID, &p.Key, &p.Name, &p.IsArchived, &p.ProcessorProductID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (organization_id, key, name, is_archived, processor_product_id)
VALUES ($1, $2, $3, $4, NULLIF($5, ''))
ON CONFLICT (organization_id, key) DO UPDATE SET
    name = EXCLUDED.name,
    is_archived = EXCLUDED.is_archived,
    processor_product_id = COALESCE(EXCLUDED.processor_product_id, products.processor_product_id)
RETURNING id::text, created_at
`
	res := product
	err := r.pool.QueryRow(ctx, q,
		product.OrganizationID,
		product.Key,
		product.Name,
		product.IsArchived,
		product.ProcessorProductID,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error("upsert failed", zap.String("key", product.Key), zap.String("organization_id", product.OrganizationID), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("upserted", zap.String("key", res.Key), zap.String("id", res.ID))
	return &res, nil
}
