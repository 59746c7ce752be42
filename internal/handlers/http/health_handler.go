package http

import (
	"context"
	"net/http"
	"time"

	"streamhub/internal/infrastructure/monitoring"
	"streamhub/pkg/errors"

	"github.com/gin-gonic/gin"
)

// StoreProbe reports which store is in use and whether it answers.
// repositories.RepositoryFactory satisfies it.
type StoreProbe interface {
	Backend() string
	DatabaseName() string
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	store   StoreProbe
	checker *monitoring.HealthChecker
	timeout time.Duration
}

func NewHealthHandler(store StoreProbe, checker *monitoring.HealthChecker, timeout time.Duration) *HealthHandler {
	return &HealthHandler{
		store:   store,
		checker: checker,
		timeout: timeout,
	}
}

func (h *HealthHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/health")
	{
		api.GET("", h.Liveness)
		api.GET("/ready", h.Readiness)
		api.GET("/db", h.Database)
	}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness runs every registered dependency check.
func (h *HealthHandler) Readiness(c *gin.Context) {
	status := h.checker.GetReadinessStatus(c.Request.Context())
	if !status.Healthy() {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Database pings the active store.
func (h *HealthHandler) Database(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.store.HealthCheck(ctx); err != nil {
		appErr := errors.WrapError(err, errors.ErrCodeServiceUnavailable, h.store.Backend()+" unreachable", http.StatusServiceUnavailable)
		_ = c.Error(appErr.WithContext("database", h.store.DatabaseName()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"store":    h.store.Backend(),
		"database": h.store.DatabaseName(),
	})
}
