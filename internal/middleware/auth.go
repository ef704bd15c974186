// Package middleware provides HTTP middleware for the fiber application:
// admin authentication, notification signatures and CORS.
package middleware

import (
	"strings"

	"casamento/internal/utils"
	"casamento/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthMiddleware validates admin JWTs and stores the claims in the request
// context.
type AuthMiddleware struct {
	secret string
	logger *zap.Logger
}

func NewAuthMiddleware(secret string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: secret,
		logger: logger,
	}
}

// Handler checks for a Bearer token with a valid signature, issuer and
// expiry, and for the admin role.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}

	claims, err := utils.ParseAdminToken(m.secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		m.logger.Debug("admin token rejected",
			zap.String("request_id", requestID(c)),
			zap.Error(err),
		)
		return response.Error(c, fiber.StatusUnauthorized, "invalid token")
	}
	if !claims.IsAdmin() {
		return response.Error(c, fiber.StatusForbidden, "insufficient permissions")
	}

	c.Locals(utils.ClaimsKey, claims)
	return c.Next()
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}
