package http

import (
	"context"
	"net/http"
	"time"

	"roomchat/internal/core/ports"
	"roomchat/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	checker  *monitoring.HealthChecker
	registry ports.RoomRegistry
	accounts ports.AccountRepository
}

func NewHealthHandler(checker *monitoring.HealthChecker, registry ports.RoomRegistry, accounts ports.AccountRepository) *HealthHandler {
	return &HealthHandler{checker: checker, registry: registry, accounts: accounts}
}

func (h *HealthHandler) SetupRoutes(router gin.IRouter) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}

// Health reports liveness and registry size. The account count is best effort.
func (h *HealthHandler) Health(c *gin.Context) {
	stats := h.registry.Stats()
	body := gin.H{
		"status":      "healthy",
		"timestamp":   time.Now(),
		"uptime":      h.checker.Uptime().String(),
		"rooms":       stats.Rooms,
		"connections": stats.Connections,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()
	if n, err := h.accounts.Count(ctx); err == nil {
		body["accounts"] = n
	}
	c.JSON(http.StatusOK, body)
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := h.checker.CheckAll(ctx)
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
