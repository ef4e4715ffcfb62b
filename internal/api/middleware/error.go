package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omip-benchmark/internal/api/models"
	"omip-benchmark/internal/apperr"
)

// ErrorHandler recovers from panics and answers with the standard error
// envelope.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			ErrorKind: apperr.KindInternal,
			Code:      "INTERNAL_ERROR",
			Message:   "An unexpected error occurred",
		})
	})
}
