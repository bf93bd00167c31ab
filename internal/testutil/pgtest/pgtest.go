// Package pgtest prepares a migrated Postgres database for integration tests.
package pgtest

import (
	"context"
	"os"
	"testing"

	"billing-checkout/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool connects to TEST_DB_DSN, applies migrations and truncates all tables.
// The test is skipped when TEST_DB_DSN is not set.
func Pool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE checkouts, prices, products, organizations RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}

// Organization inserts an organization and returns its id.
func Organization(ctx context.Context, t *testing.T, pool *pgxpool.Pool, slug string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `INSERT INTO organizations (slug, name) VALUES ($1, $1) RETURNING id::text`, slug).Scan(&id)
	if err != nil {
		t.Fatalf("insert organization: %v", err)
	}
	return id
}

// Product inserts a product for the organization and returns its id.
func Product(ctx context.Context, t *testing.T, pool *pgxpool.Pool, organizationID, key string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `INSERT INTO products (organization_id, key, name) VALUES ($1, $2, $2) RETURNING id::text`, organizationID, key).Scan(&id)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}

// FixedPrice inserts a one-time fixed price and returns its id.
func FixedPrice(ctx context.Context, t *testing.T, pool *pgxpool.Pool, productID string, amount int64, currency string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
INSERT INTO prices (product_id, type, amount_type, price_amount, price_currency)
VALUES ($1, 'one_time', 'fixed', $2, $3)
RETURNING id::text`, productID, amount, currency).Scan(&id)
	if err != nil {
		t.Fatalf("insert price: %v", err)
	}
	return id
}
