package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// listProducts serves GET /v1/products?include_archived=true.
func (h *handlers) listProducts(c *gin.Context) {
	includeArchived, _ := strconv.ParseBool(c.Query("include_archived"))
	listings, err := h.deps.Catalog.List(c.Request.Context(), organizationFrom(c).ID, includeArchived)
	if err != nil {
		logging.FromContext(c, h.logger).Error("list products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": listings})
}

func (h *handlers) getProduct(c *gin.Context) {
	listing, err := h.deps.Catalog.Get(c.Request.Context(), organizationFrom(c).ID, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		logging.FromContext(c, h.logger).Error("get product", zap.String("product_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, listing)
}
