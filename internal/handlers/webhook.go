package handlers

import (
	"casamento/internal/services/webhook"
	"casamento/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	reconciler webhook.Service
}

func NewWebhookHandler(reconciler webhook.Service) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// Handle acknowledges gateway notifications. Only a body that cannot be read
// at all is answered with an error so the gateway retries it.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	n := webhook.Notification{
		Body: append([]byte(nil), c.Body()...),
		Query: map[string]string{
			"id":      c.Query("id"),
			"data.id": c.Query("data.id"),
			"type":    c.Query("type"),
			"topic":   c.Query("topic"),
		},
	}

	if _, err := h.reconciler.HandleNotification(c.UserContext(), n); err != nil {
		return response.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
