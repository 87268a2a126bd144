package handlers

import (
	"context"
	"time"

	"salesforge-api/internal/adapters/persistence/repositories"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	mode   string
	checks map[string]repositories.HealthChecker
}

// NewHealthHandler creates a new health handler; checks maps a component name to its health check
func NewHealthHandler(mode string, checks map[string]repositories.HealthChecker) *HealthHandler {
	return &HealthHandler{mode: mode, checks: checks}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "Salesforge API v1 is running",
		"mode":    h.mode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API, store and revocation backend health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := fiber.StatusOK
	checks := fiber.Map{"api": "healthy"}
	for name, checker := range h.checks {
		if err := checker.Ping(ctx); err != nil {
			checks[name] = "unhealthy"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "healthy"
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}
