package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"billing-checkout/internal/config"
	"billing-checkout/internal/db"
	"billing-checkout/internal/importer"
	"billing-checkout/internal/logging"
	"billing-checkout/internal/repository/organization"
	"billing-checkout/internal/repository/price"
	"billing-checkout/internal/repository/product"
	"go.uber.org/zap"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to catalog CSV (columns: "+fmt.Sprint(importer.Header)+")")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.String("path", filePath), zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f,
		organization.NewPostgres(pool),
		product.NewPostgres(pool, logger),
		price.NewPostgres(pool, logger),
		logger,
	)

	start := time.Now()
	sum, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}

	fmt.Printf("Imported %d organizations, %d products, %d prices (%d unchanged) in %s\n",
		sum.Organizations, sum.Products, sum.Prices, sum.Unchanged, time.Since(start).Truncate(time.Millisecond))
}
