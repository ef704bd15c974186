package middleware

import (
	"encoding/json"
	"time"

	"casamento/internal/services/webhook"
	"casamento/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WebhookSignature verifies the gateway's x-signature header and its
// timestamp. With an empty secret every notification is accepted; the
// server refuses to start that way in production.
func WebhookSignature(secret string, tolerance time.Duration, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		dataID := c.Query("data.id")
		if dataID == "" {
			var body struct {
				Data struct {
					ID json.Number `json:"id"`
				} `json:"data"`
			}
			if err := json.Unmarshal(c.Body(), &body); err == nil {
				dataID = body.Data.ID.String()
			}
		}

		err := webhook.VerifySignature(secret, c.Get("x-signature"), c.Get("x-request-id"), dataID, time.Now(), tolerance)
		if err != nil {
			logger.Warn("notification signature rejected",
				zap.String("data_id", dataID),
				zap.String("ip", c.IP()),
				zap.Error(err),
			)
			return response.FromError(c, err)
		}
		return c.Next()
	}
}
