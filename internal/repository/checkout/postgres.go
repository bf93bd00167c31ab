package checkout

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
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("checkout_repo")}
}

func (r *postgresRepo) Create(ctx context.Context, c *domain.Checkout) error {
	const q = `
INSERT INTO checkouts (id, organization_id, status, payment_processor, product_id, price_id, amount, currency,
                       payment_processor_metadata, customer_name, customer_email, customer_billing_address, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
RETURNING version, created_at, modified_at
`
	metadata := c.PaymentProcessorMetadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	err := r.pool.QueryRow(ctx, q,
		c.ID,
		c.OrganizationID,
		string(c.Status),
		c.PaymentProcessor,
		c.ProductID,
		c.PriceID,
		c.Amount,
		c.Currency,
		metadata,
		c.CustomerName,
		c.CustomerEmail,
		c.CustomerBillingAddress,
	).Scan(&c.Version, &c.CreatedAt, &c.ModifiedAt)
	if err != nil {
		r.logger.Error("create failed", zap.String("id", c.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Checkout, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	const q = `
SELECT id::text, organization_id::text, status, payment_processor, product_id::text, price_id::text, amount, currency,
       payment_processor_metadata, customer_name, customer_email, customer_billing_address, version, created_at, modified_at
FROM checkouts
WHERE id = $1
`
	var c domain.Checkout
	var status string
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&c.ID,
		&c.OrganizationID,
		&status,
		&c.PaymentProcessor,
		&c.ProductID,
		&c.PriceID,
		&c.Amount,
		&c.Currency,
		&c.PaymentProcessorMetadata,
		&c.CustomerName,
		&c.CustomerEmail,
		&c.CustomerBillingAddress,
		&c.Version,
		&c.CreatedAt,
		&c.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	c.Status = domain.CheckoutStatus(status)
	return &c, nil
}

func (r *postgresRepo) Save(ctx context.Context, c *domain.Checkout) error {
	const q = `
UPDATE checkouts
SET status = $3,
    product_id = $4,
    price_id = $5,
    amount = $6,
    currency = $7,
    payment_processor_metadata = $8,
    customer_name = $9,
    customer_email = $10,
    customer_billing_address = $11,
    version = version + 1,
    modified_at = now()
WHERE id = $1 AND version = $2
RETURNING version, modified_at
`
	metadata := c.PaymentProcessorMetadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	err := r.pool.QueryRow(ctx, q,
		c.ID,
		c.Version,
		string(c.Status),
		c.ProductID,
		c.PriceID,
		c.Amount,
		c.Currency,
		metadata,
		c.CustomerName,
		c.CustomerEmail,
		c.CustomerBillingAddress,
	).Scan(&c.Version, &c.ModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("stale write rejected", zap.String("id", c.ID), zap.Int("version", c.Version))
			return domain.ErrConflict
		}
		r.logger.Error("save failed", zap.String("id", c.ID), zap.Error(err))
		return err
	}
	return nil
}
