package response

import (
	"errors"

	appErrors "casamento/internal/errors"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "Unauthorized")
}

// ValidationError reports every invalid field at once.
func ValidationError(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  appErrors.ErrValidation.Message,
		"code":   appErrors.ErrValidation.Code,
		"fields": fields,
	})
}

// FromError maps an error to its HTTP response. Anything that is not a
// DomainError is reported as an internal error without leaking details.
func FromError(c *fiber.Ctx, err error) error {
	var validationErr *appErrors.ValidationError
	if errors.As(err, &validationErr) {
		return ValidationError(c, validationErr.Fields)
	}

	var domainErr *appErrors.DomainError
	if !errors.As(err, &domainErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
			"code":  "INTERNAL_ERROR",
		})
	}

	body := fiber.Map{
		"error": domainErr.Message,
		"code":  domainErr.Code,
	}
	if domainErr.Detail != "" {
		body["detail"] = domainErr.Detail
	}
	return c.Status(domainErr.HTTPStatus()).JSON(body)
}
