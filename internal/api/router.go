package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"actiontag/internal/config"
	"actiontag/internal/constants"
	"actiontag/internal/logger"
	"actiontag/pkg/health"
	"actiontag/pkg/middleware"
	"actiontag/pkg/ratelimit"
	"actiontag/pkg/tracing"
)

// NewRouter assembles the gin engine. ctx bounds background work started by
// middleware such as limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, handler *Handler, checks *health.CheckerRegistry, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))

	if cfg.RateLimit.Enabled {
		router.Use(ratelimit.RateLimitMiddleware(ctx, ratelimit.FromSettings(cfg.RateLimit)))
	}

	handler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		h := checks.Check(c.Request.Context())
		status := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, h)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
