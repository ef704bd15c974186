package handlers

import (
	"casamento/internal/models"
	"casamento/internal/services/auth"
	"casamento/internal/services/catalog"
	"casamento/internal/services/expiry"
	"casamento/internal/services/payment"
	"casamento/internal/services/rsvp"
	"casamento/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AdminHandler struct {
	auth     auth.Service
	catalog  catalog.Service
	payments payment.Service
	rsvp     rsvp.Service
	sweeper  expiry.Sweeper
	logger   *zap.Logger
}

func NewAdminHandler(
	auth auth.Service,
	catalog catalog.Service,
	payments payment.Service,
	rsvp rsvp.Service,
	sweeper expiry.Sweeper,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		auth:     auth,
		catalog:  catalog,
		payments: payments,
		rsvp:     rsvp,
		sweeper:  sweeper,
		logger:   logger,
	}
}

func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req models.AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	token, expiresAt, err := h.auth.Login(c.UserContext(), req.Password)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{
		"token":     token,
		"expiresAt": expiresAt,
	})
}

// CreatePresent accepts a multipart form with name, price, an optional
// imageUrl and an optional image file.
func (h *AdminHandler) CreatePresent(c *fiber.Ctx) error {
	req := models.NewPresentRequest{
		Name:     c.FormValue("name"),
		Price:    c.FormValue("price"),
		ImageURL: c.FormValue("imageUrl"),
	}

	var image *catalog.Image
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return response.BadRequest(c, "unreadable image")
		}
		defer f.Close()
		image = &catalog.Image{Filename: fh.Filename, Content: f}
	}

	present, err := h.catalog.CreatePresent(c.UserContext(), &req, image)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(present)
}

func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	payments, err := h.payments.ListPayments(c.UserContext(), c.Query("status"))
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(payments)
}

func (h *AdminHandler) ListInvites(c *fiber.Ctx) error {
	invites, err := h.rsvp.List(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(invites)
}

// Sweep runs the expiry sweeper now.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	report, err := h.sweeper.RunOnce(c.UserContext())
	if err != nil {
		h.logger.Warn("manual sweep finished with errors", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "sweep finished with errors",
			"detail": err.Error(),
			"report": report,
		})
	}
	return c.JSON(report)
}
