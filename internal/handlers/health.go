package handlers

import (
	"context"
	"time"

	"casamento/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

type HealthHandler struct {
	store *repositories.Store
	cache repositories.Cache
}

func NewHealthHandler(store *repositories.Store, cache repositories.Cache) *HealthHandler {
	return &HealthHandler{store: store, cache: cache}
}

// Root is the plain-text liveness check.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.SendString("casamento api ok")
}

// Health reports store and cache connectivity.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := fiber.StatusOK
	services := fiber.Map{}

	if err := h.store.HealthCheck(ctx); err != nil {
		status = fiber.StatusServiceUnavailable
		services["store"] = fiber.Map{"driver": h.store.Driver, "status": "down", "error": err.Error()}
	} else {
		services["store"] = fiber.Map{"driver": h.store.Driver, "status": "up"}
	}

	if err := h.cache.HealthCheck(ctx); err != nil {
		// the cache is optional, so a failure degrades without failing the check
		services["cache"] = fiber.Map{"status": "down", "error": err.Error()}
	} else {
		services["cache"] = fiber.Map{"status": "up"}
	}

	overall := "ok"
	if status != fiber.StatusOK {
		overall = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   overall,
		"services": services,
	})
}
