package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/gateway"
	"billing-checkout/internal/logging"
	"billing-checkout/internal/metrics"
	checkoutsvc "billing-checkout/internal/service/checkout"
	productsvc "billing-checkout/internal/service/product"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type organizationRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
}

type checkoutService interface {
	Create(ctx context.Context, organizationID string, in checkoutsvc.CreateInput) (*domain.Checkout, error)
	Get(ctx context.Context, organizationID, id string) (*domain.Checkout, error)
	Update(ctx context.Context, id string, in checkoutsvc.UpdateInput) (*domain.Checkout, error)
	Confirm(ctx context.Context, id string, in checkoutsvc.ConfirmInput) (*domain.Checkout, error)
	HandlePaymentResult(ctx context.Context, id string, res gateway.SetupIntentResult) (*domain.Checkout, error)
	HandlePaymentFailure(ctx context.Context, id string, res gateway.SetupIntentResult) (*domain.Checkout, error)
}

type catalogService interface {
	List(ctx context.Context, organizationID string, includeArchived bool) ([]productsvc.Listing, error)
	Get(ctx context.Context, organizationID, id string) (*productsvc.Listing, error)
}

type metricsService interface {
	Query(ctx context.Context, p metrics.Params) (*metrics.Response, error)
}

type webhookParser interface {
	ParseEvent(payload []byte, signature string) (*gateway.WebhookEvent, error)
}

type eventClaimer interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Deps are the services the router dispatches to. Dedup and Exposition are
// optional.
type Deps struct {
	Organizations  organizationRepo
	Checkouts      checkoutService
	Catalog        catalogService
	Metrics        metricsService
	Webhooks       webhookParser
	Dedup          eventClaimer
	Exposition     http.Handler
	AllowedOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.Organizations == nil:
		return errors.New("organization repository required")
	case d.Checkouts == nil:
		return errors.New("checkout service required")
	case d.Catalog == nil:
		return errors.New("catalog service required")
	case d.Metrics == nil:
		return errors.New("metrics service required")
	case d.Webhooks == nil:
		return errors.New("webhook parser required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db pinger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(logging.RequestLogger(logger), gin.Recovery())
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", organizationHeader},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	if deps.Exposition != nil {
		router.GET("/metrics", gin.WrapH(deps.Exposition))
	}

	h := &handlers{deps: deps, logger: logger}
	router.POST("/v1/integrations/stripe/webhook", h.stripeWebhook)

	v1 := router.Group("/v1", organizationMiddleware(deps.Organizations, logger))
	v1.GET("/products", h.listProducts)
	v1.GET("/products/:id", h.getProduct)
	v1.POST("/checkouts", h.createCheckout)
	v1.GET("/checkouts/:id", h.getCheckout)
	v1.PATCH("/checkouts/:id", h.updateCheckout)
	v1.POST("/checkouts/:id/confirm", h.confirmCheckout)
	v1.GET("/metrics/checkouts", h.checkoutMetrics)

	return router, nil
}

type handlers struct {
	deps   Deps
	logger *zap.Logger
}
