package handlers

import (
	"errors"

	appErrors "casamento/internal/errors"
	"casamento/internal/models"
	"casamento/internal/services/rsvp"
	"casamento/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type InviteHandler struct {
	rsvp rsvp.Service
}

func NewInviteHandler(rsvp rsvp.Service) *InviteHandler {
	return &InviteHandler{rsvp: rsvp}
}

func (h *InviteHandler) Lookup(c *fiber.Ctx) error {
	var req models.InviteLookupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	invite, err := h.rsvp.Lookup(c.UserContext(), &req)
	if err != nil {
		var domainErr *appErrors.DomainError
		if invite != nil && errors.As(err, &domainErr) {
			return c.Status(domainErr.HTTPStatus()).JSON(fiber.Map{
				"error":  domainErr.Message,
				"code":   domainErr.Code,
				"status": invite.Status,
				"name":   invite.Name,
			})
		}
		return response.FromError(c, err)
	}
	return c.JSON(invite)
}

func (h *InviteHandler) Confirm(c *fiber.Ctx) error {
	var req models.InviteConfirmRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "invalid request body")
		}
	}

	invite, err := h.rsvp.Confirm(c.UserContext(), c.Params("id"), &req)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(invite)
}

func (h *InviteHandler) Decline(c *fiber.Ctx) error {
	invite, err := h.rsvp.Decline(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(invite)
}
