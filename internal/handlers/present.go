package handlers

import (
	"casamento/internal/services/catalog"
	"casamento/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type PresentHandler struct {
	catalog catalog.Service
}

func NewPresentHandler(catalog catalog.Service) *PresentHandler {
	return &PresentHandler{catalog: catalog}
}

func (h *PresentHandler) List(c *fiber.Ctx) error {
	presents, err := h.catalog.ListPresents(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(presents)
}

func (h *PresentHandler) Get(c *fiber.Ctx) error {
	present, err := h.catalog.GetPresent(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(present)
}
