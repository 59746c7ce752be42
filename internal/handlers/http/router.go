package http

import (
	"net/http"

	"streamhub/internal/core/ports"
	"streamhub/internal/infrastructure/middleware"
	"streamhub/pkg/config"
	"streamhub/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	_ ports.AuthHTTPHandler   = (*AuthHandler)(nil)
	_ ports.StreamHTTPHandler = (*StreamHandler)(nil)
)

// RouterDeps carries everything the HTTP surface needs. Metrics and
// MetricsHandler are optional.
type RouterDeps struct {
	Config         *config.Config
	Logger         *zap.Logger
	AuthService    ports.AuthService
	StreamService  ports.StreamService
	Health         *HealthHandler
	Metrics        middleware.HTTPMetrics
	MetricsHandler http.Handler
}

// NewRouter builds the gin engine with the middleware chain and all routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Logger.Sugar()

	router := gin.New()
	if err := router.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil {
		log.Warnw("invalid trusted proxies, forwarding headers ignored", "error", err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLoggingMiddleware(logger.NewContextLogger(deps.Logger)))
	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
	}
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(deps.Config))

	NewAuthHandler(deps.AuthService).SetupRoutes(router)
	NewStreamHandler(deps.StreamService).SetupRoutes(router, middleware.AuthMiddleware(deps.AuthService))
	deps.Health.SetupRoutes(router)

	if deps.MetricsHandler != nil {
		router.GET(deps.Config.Monitoring.MetricsPath, gin.WrapH(deps.MetricsHandler))
	}

	return router
}
