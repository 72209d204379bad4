package handler

import (
	"context"
	"net/http"
	"time"

	"dob-oracle/internal/api/dto"
	"dob-oracle/internal/infrastructure/backend"

	"github.com/gin-gonic/gin"
)

type BackendHealth interface {
	Health(ctx context.Context) (*backend.Health, error)
}

type HealthHandler struct {
	backend BackendHealth
	service string
	timeout time.Duration
}

func NewHealthHandler(b BackendHealth, serviceName string) *HealthHandler {
	return &HealthHandler{backend: b, service: serviceName, timeout: 2 * time.Second}
}

// Check reports this service healthy only while the analysis backend answers.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Service:   h.service,
		Backend:   "healthy",
	}

	health, err := h.backend.Health(ctx)
	if err != nil {
		resp.Status = "degraded"
		resp.Backend = "unreachable"
		resp.Error = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	resp.Backend = health.Status
	c.JSON(http.StatusOK, resp)
}
