package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"

	"billing-checkout/internal/gateway"
	"billing-checkout/internal/logging"
	checkoutsvc "billing-checkout/internal/service/checkout"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stripe documents 64KiB as a generous upper bound for event payloads.
const maxWebhookBody = 65536

// stripeWebhook verifies a Stripe event and routes setup intent outcomes to
// the checkout lifecycle. A non-2xx response makes Stripe redeliver, so only
// failures a retry can fix return 500.
func (h *handlers) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "read body"})
		return
	}
	event, err := h.deps.Webhooks.ParseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logging.FromContext(c, h.logger).Warn("rejected webhook", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}
	logger := logging.FromContext(c, h.logger).With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	if event.Type != gateway.EventSetupIntentSucceeded && event.Type != gateway.EventSetupIntentCanceled {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if event.SetupIntent == nil || event.SetupIntent.CheckoutID == "" {
		logger.Info("setup intent not linked to a checkout")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()
	if h.deps.Dedup != nil {
		first, err := h.deps.Dedup.Claim(ctx, event.ID)
		if err != nil {
			logger.Error("claim webhook event", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !first {
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
	}

	err = h.dispatch(ctx, event)
	switch {
	case err == nil, errors.Is(err, checkoutsvc.ErrAlreadyProcessed):
		c.JSON(http.StatusOK, gin.H{"status": "processed"})
	case errors.Is(err, checkoutsvc.ErrCheckoutDoesNotExist):
		logger.Warn("webhook for unknown checkout", zap.String("checkout_id", event.SetupIntent.CheckoutID))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	case errors.Is(err, checkoutsvc.ErrSetupIntentNotSucceeded),
		errors.Is(err, checkoutsvc.ErrNoCustomer),
		errors.Is(err, checkoutsvc.ErrNoPaymentMethod):
		// Redelivery carries the same payload.
		logger.Warn("setup intent cannot settle checkout", zap.String("checkout_id", event.SetupIntent.CheckoutID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "rejected"})
	default:
		logger.Error("process webhook", zap.String("checkout_id", event.SetupIntent.CheckoutID), zap.Error(err))
		if h.deps.Dedup != nil {
			// Let the redelivery through.
			if relErr := h.deps.Dedup.Release(context.WithoutCancel(ctx), event.ID); relErr != nil {
				logger.Error("release webhook event", zap.Error(relErr))
			}
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
	}
}

func (h *handlers) dispatch(ctx context.Context, event *gateway.WebhookEvent) error {
	si := *event.SetupIntent
	var err error
	if event.Type == gateway.EventSetupIntentCanceled {
		_, err = h.deps.Checkouts.HandlePaymentFailure(ctx, si.CheckoutID, si)
	} else {
		_, err = h.deps.Checkouts.HandlePaymentResult(ctx, si.CheckoutID, si)
	}
	return err
}
