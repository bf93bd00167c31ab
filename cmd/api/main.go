package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"billing-checkout/internal/config"
	"billing-checkout/internal/db"
	"billing-checkout/internal/dedup"
	"billing-checkout/internal/events"
	"billing-checkout/internal/gateway"
	"billing-checkout/internal/httpserver"
	"billing-checkout/internal/logging"
	"billing-checkout/internal/metrics"
	checkoutrepo "billing-checkout/internal/repository/checkout"
	organizationrepo "billing-checkout/internal/repository/organization"
	pricerepo "billing-checkout/internal/repository/price"
	productrepo "billing-checkout/internal/repository/product"
	checkoutsvc "billing-checkout/internal/service/checkout"
	productsvc "billing-checkout/internal/service/product"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.CheckoutTopic, 256, logger)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Warn("close kafka publisher", zap.Error(err))
			}
		}()
		publisher = kafkaPublisher
	} else {
		logger.Info("no kafka brokers configured, checkout events are dropped")
	}

	rdb := dedup.NewRedisClient(cfg.RedisAddr)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, webhook claims will fail until it is", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	stripeGateway := gateway.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripeTimeout, logger)
	prices := pricerepo.NewPostgres(dbpool, logger)
	checkoutService := checkoutsvc.New(checkoutsvc.Deps{
		Store:     checkoutrepo.NewPostgres(dbpool, logger),
		Catalog:   prices,
		Gateway:   stripeGateway,
		Publisher: publisher,
		Recorder:  collector,
		Logger:    logger,
	})

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Organizations:  organizationrepo.NewPostgres(dbpool),
		Checkouts:      checkoutService,
		Catalog:        productsvc.New(productrepo.NewPostgres(dbpool, logger), prices, logger),
		Metrics:        metrics.NewService(dbpool),
		Webhooks:       stripeGateway,
		Dedup:          dedup.New(rdb, "stripe"),
		Exposition:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}
