package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the audit record of one gateway charge, keyed by the gateway's
// payment id.
type Payment struct {
	ID            string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	PresentID     string          `gorm:"index;type:varchar(64)" json:"presentId"`
	ClaimToken    string          `gorm:"index" json:"-"`
	Title         string          `json:"title"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	Status        string          `gorm:"index;not null" json:"status"`
	GatewayStatus string          `json:"gatewayStatus,omitempty"`
	PayerEmail    string          `json:"payerEmail,omitempty"`
	QRCode        string          `json:"qrCode,omitempty"`
	RawResponse   JSON            `gorm:"type:jsonb" json:"-"`
	ExpiresAt     time.Time       `gorm:"index" json:"expiresAt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (Payment) TableName() string { return "payments" }

// EffectiveStatus is the stored status with lazy expiry applied.
func (p *Payment) EffectiveStatus(now time.Time) string {
	if p.Status != "" && !IsTerminal(p.Status) && !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) {
		return PaymentStatusExpired
	}
	return p.Status
}

// ApplyStatus moves the record to status when the transition is allowed.
// The gateway status and raw response are refreshed either way.
func (p *Payment) ApplyStatus(status, gatewayStatus string, raw JSON, now time.Time) bool {
	if gatewayStatus != "" {
		p.GatewayStatus = gatewayStatus
	}
	if raw != nil {
		p.RawResponse = raw
	}
	if !CanTransition(p.Status, status) {
		return false
	}
	p.Status = status
	p.UpdatedAt = now
	return true
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	Status        string
	NonTerminal   bool // drops every status IsTerminal accepts
	ExpiresBefore time.Time
	CreatedBefore time.Time
	Limit         int
}
