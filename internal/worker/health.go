package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness and readiness for the worker process.
// Ready means the sweep loop is running and the store answers a ping.
func (s *Sweeper) HealthHandler(ping func(ctx context.Context) error) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/readyz", func(ctx *gin.Context) {
		if !s.Ready() {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		if ping != nil {
			c, cancel := context.WithTimeout(ctx.Request.Context(), 500*time.Millisecond)
			defer cancel()

			if err := ping(c); err != nil {
				ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": "store unavailable"})
				return
			}
		}

		ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	return r
}
