package gateway

import (
	"errors"
	"net/http"

	"github.com/example/storefront/pkg/apperr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrPaymentMismatch),
		errors.Is(err, apperr.ErrNotPaid):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {message}. Unclassified errors are logged and
// reported opaquely.
func (g *Gateway) respondError(c *gin.Context, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		g.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", code),
			zap.Error(err))
	}

	msg := "Internal Server Error"
	if code != http.StatusInternalServerError {
		msg = apperr.Message(err, http.StatusText(code))
	}
	c.AbortWithStatusJSON(code, gin.H{"message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msg})
}
