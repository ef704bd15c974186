package handlers

import (
	"casamento/internal/models"
	"casamento/internal/services/guestbook"
	"casamento/internal/utils/pagination"
	"casamento/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type MessageHandler struct {
	guestbook guestbook.Service
}

func NewMessageHandler(guestbook guestbook.Service) *MessageHandler {
	return &MessageHandler{guestbook: guestbook}
}

func (h *MessageHandler) Create(c *fiber.Ctx) error {
	var req models.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	msg, err := h.guestbook.Post(c.UserContext(), &req)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *MessageHandler) List(c *fiber.Ctx) error {
	p := pagination.ParseFromRequest(c)

	msgs, total, err := h.guestbook.List(c.UserContext(), p.Offset, p.Limit)
	if err != nil {
		return response.FromError(c, err)
	}
	p.Total = total
	return c.JSON(pagination.Response(p, msgs))
}
