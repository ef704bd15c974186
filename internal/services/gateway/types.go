package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentMethodPix = "pix"
	DefaultBaseURL   = "https://api.mercadopago.com"
)

// ID is a gateway payment identifier in its decimal string form.
type ID string

func (id ID) String() string { return string(id) }

// CreatePixRequest describes a PIX charge.
type CreatePixRequest struct {
	Amount            decimal.Decimal
	Description       string
	PayerEmail        string
	Metadata          map[string]string
	ExternalReference string
	ExpiresAt         time.Time
	NotificationURL   string
	IdempotencyKey    string
}

type TransactionData struct {
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
}

type PointOfInteraction struct {
	TransactionData *TransactionData `json:"transaction_data"`
}

// Payment is the subset of the gateway payment resource the service uses.
type Payment struct {
	ID                 ID                     `json:"id"`
	Status             string                 `json:"status"`
	StatusDetail       string                 `json:"status_detail"`
	TransactionAmount  float64                `json:"transaction_amount"`
	ExternalReference  string                 `json:"external_reference"`
	Metadata           map[string]interface{} `json:"metadata"`
	PointOfInteraction *PointOfInteraction    `json:"point_of_interaction"`

	// Raw is the full decoded response body.
	Raw map[string]interface{} `json:"-"`
}

// QRData returns the PIX payload, or nil when the response carries none.
func (p *Payment) QRData() *TransactionData {
	if p.PointOfInteraction == nil || p.PointOfInteraction.TransactionData == nil {
		return nil
	}
	td := p.PointOfInteraction.TransactionData
	if td.QRCode == "" && td.QRCodeBase64 == "" {
		return nil
	}
	return td
}

// MetadataString reads a metadata value under any of the given keys. The
// gateway lower-cases and snake-cases metadata keys, so callers pass every
// spelling they accept.
func (p *Payment) MetadataString(keys ...string) string {
	for _, k := range keys {
		v, ok := p.Metadata[k]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case float64:
			return decimal.NewFromFloat(val).String()
		default:
			return fmt.Sprint(val)
		}
	}
	return ""
}

// Error is a non-2xx gateway response.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

func (e *Error) HTTPStatusCode() int { return e.StatusCode }

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Cause   []struct {
		Code        interface{} `json:"code"`
		Description string      `json:"description"`
	} `json:"cause"`
}

func (b errorBody) text() string {
	parts := []string{}
	if b.Message != "" {
		parts = append(parts, b.Message)
	} else if b.Error != "" {
		parts = append(parts, b.Error)
	}
	for _, c := range b.Cause {
		if c.Description != "" {
			parts = append(parts, c.Description)
		}
	}
	return strings.Join(parts, "; ")
}
