package utils

import (
	"errors"

	"casamento/internal/models"

	"github.com/gofiber/fiber/v2"
)

const ClaimsKey = "claims"

// GetAdminClaims extracts the admin claims stored by the auth middleware.
func GetAdminClaims(c *fiber.Ctx) (*models.AdminClaims, error) {
	v := c.Locals(ClaimsKey)
	if v == nil {
		return nil, errors.New("claims not found in context")
	}

	claims, ok := v.(*models.AdminClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
