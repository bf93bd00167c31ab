// Package seed loads a small demo catalog for manual testing.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"billing-checkout/internal/importer"
	"billing-checkout/internal/repository/organization"
	"billing-checkout/internal/repository/price"
	"billing-checkout/internal/repository/product"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed catalog.csv
var catalog []byte

// Apply imports the demo organization with free, fixed and custom prices.
// It is idempotent: rerunning leaves existing prices untouched.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (importer.Summary, error) {
	imp := importer.NewCSVImporter(
		bytes.NewReader(catalog),
		organization.NewPostgres(pool),
		product.NewPostgres(pool, logger),
		price.NewPostgres(pool, logger),
		logger,
	)
	sum, err := imp.Run(ctx)
	if err != nil {
		return sum, fmt.Errorf("seed catalog: %w", err)
	}
	return sum, nil
}
