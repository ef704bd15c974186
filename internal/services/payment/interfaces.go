package payment

import (
	"context"
	"time"

	"casamento/internal/models"

	"github.com/shopspring/decimal"
)

// Service reserves presents and opens PIX charges for them.
type Service interface {
	CreatePayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.CreatePaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPayments(ctx context.Context, status string) ([]models.Payment, error)

	// DrainLinkageQueue retries store writes that failed after the gateway
	// created a charge. It returns the number of charges linked.
	DrainLinkageQueue(ctx context.Context) (int, error)
}

// CatalogCache is invalidated after every present mutation.
type CatalogCache interface {
	Invalidate(ctx context.Context)
}

type Config struct {
	TTL                  time.Duration
	PayerFallbackEmail   string
	NotificationURL      string
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
}

// Linkage is everything needed to link a created charge to its present.
// It is what gets queued when the store is unavailable.
type Linkage struct {
	PaymentID   string          `json:"payment_id"`
	PresentID   string          `json:"present_id"`
	ClaimToken  string          `json:"claim_token"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	PayerEmail  string          `json:"payer_email"`
	QRCode      string          `json:"qr_code"`
	QRCodeImage string          `json:"qr_code_image"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Attempts    int             `json:"attempts"`
}
