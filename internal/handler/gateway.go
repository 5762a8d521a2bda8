package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"pallapay-bridge/internal/config"
)

const GatewayID = "pallapay"

var gatewaySupports = []string{"pre-orders", "products"}

// GatewayDescriptor is what a checkout front end needs to list the payment method.
type GatewayDescriptor struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Supports    []string `json:"supports"`
	Active      bool     `json:"active"`
}

type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

type GatewayHandler struct {
	gateway config.Gateway
	health  HealthChecker
}

func NewGatewayHandler(gateway config.Gateway, health HealthChecker) *GatewayHandler {
	return &GatewayHandler{gateway: gateway, health: health}
}

func (h *GatewayHandler) Describe(c *gin.Context) {
	c.JSON(http.StatusOK, GatewayDescriptor{
		ID:          GatewayID,
		Title:       h.gateway.Title,
		Description: h.gateway.Description,
		Supports:    gatewaySupports,
		Active:      h.gateway.Enabled,
	})
}

// HealthCheck handles health check requests
func (h *GatewayHandler) HealthCheck(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		return
	}

	stats := h.health.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
