package httpserver

import (
	"errors"
	"net/http"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/logging"
	checkoutsvc "billing-checkout/internal/service/checkout"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *handlers) createCheckout(c *gin.Context) {
	var in checkoutsvc.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	checkout, err := h.deps.Checkouts.Create(c.Request.Context(), organizationFrom(c).ID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

func (h *handlers) getCheckout(c *gin.Context) {
	checkout, err := h.deps.Checkouts.Get(c.Request.Context(), organizationFrom(c).ID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

func (h *handlers) updateCheckout(c *gin.Context) {
	var in checkoutsvc.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id := c.Param("id")
	if _, err := h.deps.Checkouts.Get(c.Request.Context(), organizationFrom(c).ID, id); err != nil {
		h.writeError(c, err)
		return
	}
	checkout, err := h.deps.Checkouts.Update(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

func (h *handlers) confirmCheckout(c *gin.Context) {
	var in checkoutsvc.ConfirmInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id := c.Param("id")
	if _, err := h.deps.Checkouts.Get(c.Request.Context(), organizationFrom(c).ID, id); err != nil {
		h.writeError(c, err)
		return
	}
	checkout, err := h.deps.Checkouts.Confirm(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

// writeError maps lifecycle errors onto HTTP statuses.
func (h *handlers) writeError(c *gin.Context, err error) {
	var fieldErr *checkoutsvc.FieldError
	switch {
	case errors.As(err, &fieldErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fieldErr.Err.Error(), "field": fieldErr.Field})
	case checkoutsvc.IsValidation(err),
		errors.Is(err, checkoutsvc.ErrSetupIntentNotSucceeded),
		errors.Is(err, checkoutsvc.ErrNoCustomer),
		errors.Is(err, checkoutsvc.ErrNoPaymentMethod):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, checkoutsvc.ErrCheckoutDoesNotExist), errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "checkout not found"})
	case errors.Is(err, checkoutsvc.ErrNotOpen),
		errors.Is(err, checkoutsvc.ErrNotConfirmed),
		errors.Is(err, checkoutsvc.ErrAlreadyProcessed),
		errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		logging.FromContext(c, h.logger).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
