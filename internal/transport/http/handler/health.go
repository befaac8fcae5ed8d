package handler

import (
	"context"
	"net/http"

	"github.com/ErlanBelekov/snapdocs/internal/health"
	"github.com/gin-gonic/gin"
)

type healthChecker interface {
	Liveness(ctx context.Context) health.HealthResult
	Readiness(ctx context.Context) health.HealthResult
}

type HealthHandler struct {
	checker healthChecker
}

func NewHealthHandler(checker healthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, h.checker.Liveness(c.Request.Context()))
}

// GET /health/detailed
// Answers 503 when any dependency is down.
func (h *HealthHandler) Detailed(c *gin.Context) {
	res := h.checker.Readiness(c.Request.Context())
	status := http.StatusOK
	if res.Status != health.StatusUp {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, res)
}
