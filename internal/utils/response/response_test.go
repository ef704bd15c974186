package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	appErrors "casamento/internal/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantDetail string
	}{
		{"conflict", appErrors.ErrAlreadyReserved, 409, "ALREADY_RESERVED", ""},
		{"wrapped", fmt.Errorf("claim: %w", appErrors.ErrPresentNotFound), 404, "PRESENT_NOT_FOUND", ""},
		{"gateway detail", appErrors.ErrGateway.WithDetail("invalid token"), 500, "GATEWAY_ERROR", "invalid token"},
		{"plain error", errors.New("boom"), 500, "INTERNAL_ERROR", ""},
		{"validation", fmt.Errorf("create: %w", appErrors.NewValidationError(map[string]string{"amount": "is required"})), 400, "VALIDATION_FAILED", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return FromError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			raw, _ := io.ReadAll(resp.Body)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.wantCode, body["code"])
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, body["detail"])
			} else {
				assert.NotContains(t, body, "detail")
			}
		})
	}
}
