package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"billing-checkout/internal/domain"
	"billing-checkout/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const organizationHeader = "X-Organization-ID"

type ctxKey string

const organizationCtxKey ctxKey = "organization"

// organizationMiddleware resolves the acting organization from the
// X-Organization-ID header and stores it on the request context.
func organizationMiddleware(repo organizationRepo, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(organizationHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + organizationHeader})
			return
		}
		if _, err := uuid.Parse(id); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + organizationHeader})
			return
		}

		org, err := repo.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "organization not found"})
				return
			}
			logging.FromContext(c, logger).Error("resolve organization", zap.String("organization_id", id), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve organization"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), organizationCtxKey, org)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func organizationFrom(c *gin.Context) *domain.Organization {
	org, _ := c.Request.Context().Value(organizationCtxKey).(*domain.Organization)
	return org
}
