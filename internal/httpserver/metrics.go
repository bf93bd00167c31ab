package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"billing-checkout/internal/logging"
	"billing-checkout/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// checkoutMetrics serves GET /v1/metrics/checkouts?start_date=&end_date=&interval=&currency=.
func (h *handlers) checkoutMetrics(c *gin.Context) {
	start, err := time.Parse(dateLayout, c.Query("start_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dateLayout, c.Query("end_date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
		return
	}

	params := metrics.Params{
		OrganizationID: organizationFrom(c).ID,
		Start:          start,
		End:            end,
		Interval:       metrics.Interval(c.DefaultQuery("interval", string(metrics.IntervalDay))),
		Currency:       strings.ToLower(c.Query("currency")),
	}
	resp, err := h.deps.Metrics.Query(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, metrics.ErrInvalidInterval) || errors.Is(err, metrics.ErrInvalidRange) || errors.Is(err, metrics.ErrCurrencyRequired) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		logging.FromContext(c, h.logger).Error("query checkout metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
