package server

import (
	"context"
	"net/http"
	"time"

	"planpass/internal/api"
	"planpass/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Subscription Service API",
		"version": Version,
	})
}

// Health reports ok when the database answers a ping.
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := db.PingContext(ctx); err != nil {
				logger.Error("health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, api.HealthResponse{Status: "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
	}
}

func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
