package handlers

import (
	"casamento/internal/models"
	"casamento/internal/services/payment"
	"casamento/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	payments payment.Service
}

func NewPaymentHandler(payments payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreatePayment reserves a present and returns its PIX QR code.
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var req models.CreatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	resp, err := h.payments.CreatePayment(c.UserContext(), &req)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(resp)
}

// GetPayment is polled by the client while the guest pays.
func (h *PaymentHandler) GetPayment(c *fiber.Ctx) error {
	p, err := h.payments.GetPayment(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{
		"id":        p.ID,
		"presentId": p.PresentID,
		"status":    p.Status,
		"expiresAt": p.ExpiresAt,
		"updatedAt": p.UpdatedAt,
	})
}
