package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/issueops/backend/internal/analytics"
	"github.com/issueops/backend/pkg/logger"
)

// HealthChecker reports whether the generation backend is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

type StatsHandler struct {
	analytics *analytics.Service
	backend   HealthChecker
}

func NewStatsHandler(analyticsService *analytics.Service, backend HealthChecker) *StatsHandler {
	return &StatsHandler{
		analytics: analyticsService,
		backend:   backend,
	}
}

func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.analytics.DashboardStats(c.Context())
	if err != nil {
		logger.Error("Failed to compute stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
		})
	}

	return c.JSON(stats)
}

// Health reports overall service health. A dead generation backend degrades
// the status but never fails it, since template fallback keeps every
// operation available.
func (h *StatsHandler) Health(c *fiber.Ctx) error {
	backendStatus := "up"
	if !h.backend.Healthy(c.Context()) {
		backendStatus = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":      "healthy",
		"llm_backend": backendStatus,
		"time":        time.Now().Unix(),
	})
}
