package http

import (
	"net/http"
	"time"

	"rillcast/internal/app"
	"rillcast/internal/infrastructure/middleware"
	"rillcast/internal/infrastructure/monitoring"
	"rillcast/pkg/config"
	"rillcast/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	App    *app.App
	Config *config.Config
	Logger *zap.Logger
	Health *monitoring.HealthChecker
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter builds the local control API.
func NewRouter(rc RouterConfig) *gin.Engine {
	startTime := time.Now()
	sugar := rc.Logger.Sugar()

	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(sugar),
		middleware.TracingMiddleware(),
		middleware.RequestLogMiddleware(logger.NewContextLogger(rc.Logger)),
		middleware.NewHTTPRateLimitMiddleware(rc.Config),
		middleware.ErrorHandlerMiddleware(sugar),
	)

	api := router.Group("/api/v1")
	NewAuthHandler(rc.App.Auth).SetupRoutes(api)
	NewStreamHandler(rc.App).SetupRoutes(api)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		if rc.Health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		status := rc.Health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if rc.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(rc.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
