package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"omip-benchmark/internal/api/models"
	"omip-benchmark/internal/apperr"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// Ready handles GET /ready and reports 503 while the database is unreachable.
func Ready(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			respondError(c, apperr.Unavailable("DB_UNREACHABLE", err))
			return
		}
		c.JSON(http.StatusOK, models.StatusResponse{Status: "ready"})
	}
}
