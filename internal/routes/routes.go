// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"net/http"
	"time"

	"casamento/internal/handlers"
	"casamento/internal/middleware"
	"casamento/internal/repositories"
	"casamento/internal/services/auth"
	"casamento/internal/services/catalog"
	"casamento/internal/services/expiry"
	"casamento/internal/services/guestbook"
	"casamento/internal/services/payment"
	"casamento/internal/services/rsvp"
	"casamento/internal/services/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

// Dependencies is everything the routes need, built once in main.
type Dependencies struct {
	Store     *repositories.Store
	Cache     repositories.Cache
	Payments  payment.Service
	Webhooks  webhook.Service
	Catalog   catalog.Service
	RSVP      rsvp.Service
	Guestbook guestbook.Service
	Auth      auth.Service
	Sweeper   expiry.Sweeper

	// Metrics serves /metrics when set.
	Metrics http.Handler

	JWTSecret        string
	WebhookSecret    string
	WebhookTolerance time.Duration

	// RateLimit disables the per-IP limiters when false.
	RateLimit bool
	Logger    *zap.Logger
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Cache)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	webhookHandler := handlers.NewWebhookHandler(deps.Webhooks)
	presentHandler := handlers.NewPresentHandler(deps.Catalog)
	inviteHandler := handlers.NewInviteHandler(deps.RSVP)
	messageHandler := handlers.NewMessageHandler(deps.Guestbook)
	adminHandler := handlers.NewAdminHandler(deps.Auth, deps.Catalog, deps.Payments, deps.RSVP, deps.Sweeper, deps.Logger)

	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.Health)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	// Paths kept from the first version of the site.
	app.Post("/create_payment", deps.limit(10, time.Minute), paymentHandler.CreatePayment)
	app.Post("/webhook", middleware.WebhookSignature(deps.WebhookSecret, deps.WebhookTolerance, deps.Logger), webhookHandler.Handle)

	api := app.Group("/api")
	api.Get("/presents", presentHandler.List)
	api.Get("/presents/:id", presentHandler.Get)
	api.Get("/payments/:id", paymentHandler.GetPayment)

	invites := api.Group("/invites", deps.limit(20, time.Minute))
	invites.Post("/lookup", inviteHandler.Lookup)
	invites.Post("/:id/confirm", inviteHandler.Confirm)
	invites.Post("/:id/decline", inviteHandler.Decline)

	api.Get("/messages", messageHandler.List)
	api.Post("/messages", deps.limit(5, time.Minute), messageHandler.Create)

	setupAdminRoutes(api, deps, adminHandler)
}

func setupAdminRoutes(api fiber.Router, deps Dependencies, h *handlers.AdminHandler) {
	api.Post("/admin/login", deps.limit(5, time.Minute), h.Login)

	authMiddleware := middleware.NewAuthMiddleware(deps.JWTSecret, deps.Logger)
	admin := api.Group("/admin", authMiddleware.Handler)
	admin.Post("/presents", h.CreatePresent)
	admin.Get("/payments", h.ListPayments)
	admin.Get("/invites", h.ListInvites)
	admin.Post("/sweep", h.Sweep)
}

// limit builds a per-IP rate limiter.
func (deps Dependencies) limit(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			return !deps.RateLimit
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})
}
