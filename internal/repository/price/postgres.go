package price

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
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("price_repo")}
}

const selectPrice = `
SELECT pr.id::text, pr.product_id::text, pr.type, COALESCE(pr.recurring_interval, ''), pr.amount_type,
       pr.price_amount, pr.price_currency, pr.minimum_amount, pr.maximum_amount, pr.preset_amount,
       pr.is_archived, COALESCE(pr.processor_price_id, ''), pr.created_at,
       p.id::text, p.organization_id::text, p.key, p.name, p.is_archived, COALESCE(p.processor_product_id, ''), p.created_at
FROM prices pr
JOIN products p ON p.id = pr.product_id
`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Price, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, selectPrice+`WHERE pr.id = $1`, id)
	p, err := scanPrice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("price not found", zap.String("id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

// IsWritable reports whether the organization owns the price's product.
func (r *postgresRepo) IsWritable(ctx context.Context, id, organizationID string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	const q = `
SELECT EXISTS (
    SELECT 1
    FROM prices pr
    JOIN products p ON p.id = pr.product_id
    WHERE pr.id = $1 AND p.organization_id = $2
)
`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, id, organizationID).Scan(&ok); err != nil {
		r.logger.Error("writable check failed", zap.String("id", id), zap.Error(err))
		return false, err
	}
	return ok, nil
}

func (r *postgresRepo) ListByProduct(ctx context.Context, productID string) ([]domain.Price, error) {
	rows, err := r.pool.Query(ctx, selectPrice+`WHERE pr.product_id = $1 ORDER BY pr.created_at ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Price
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Create(ctx context.Context, price domain.Price) (*domain.Price, error) {
	const q = `
INSERT INTO prices (product_id, type, recurring_interval, amount_type, price_amount, price_currency,
                    minimum_amount, maximum_amount, preset_amount, is_archived, processor_price_id)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
RETURNING id::text
`
	var id string
	err := r.pool.QueryRow(ctx, q,
		price.ProductID,
		price.Type,
		price.RecurringInterval,
		price.AmountType,
		price.Amount,
		price.Currency,
		price.MinimumAmount,
		price.MaximumAmount,
		price.PresetAmount,
		price.IsArchived,
		price.ProcessorPriceID,
	).Scan(&id)
	if err != nil {
		r.logger.Error("create failed", zap.String("product_id", price.ProductID), zap.Error(err))
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func scanPrice(row pgx.Row) (*domain.Price, error) {
	var p domain.Price
	var priceType, amountType string
	err := row.Scan(
		&p.ID,
		&p.ProductID,
		&priceType,
		&p.RecurringInterval,
		&amountType,
		&p.Amount,
		&p.Currency,
		&p.MinimumAmount,
		&p.MaximumAmount,
		&p.PresetAmount,
		&p.IsArchived,
		&p.ProcessorPriceID,
		&p.CreatedAt,
		&p.Product.ID,
		&p.Product.OrganizationID,
		&p.Product.Key,
		&p.Product.Name,
		&p.Product.IsArchived,
		&p.Product.ProcessorProductID,
		&p.Product.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Type = domain.PriceType(priceType)
	p.AmountType = domain.AmountType(amountType)
	return &p, nil
}
