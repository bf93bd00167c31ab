package main

import (
	"context"
	"log"

	"billing-checkout/internal/config"
	"billing-checkout/internal/db"
	"billing-checkout/internal/logging"
	"billing-checkout/internal/seed"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	sum, err := seed.Apply(ctx, pool, logger)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
	logger.Info("seed applied", zap.Int("prices", sum.Prices), zap.Int("unchanged", sum.Unchanged))
}
