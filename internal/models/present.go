package models

import (
	"time"

	appErrors "casamento/internal/errors"

	"github.com/shopspring/decimal"
)

// PaymentSummary is the payment state embedded in a present for fast reads.
type PaymentSummary struct {
	PaymentID   string    `gorm:"index" json:"paymentId,omitempty"`
	ClaimToken  string    `gorm:"index" json:"-"`
	Status      string    `gorm:"index" json:"status,omitempty"`
	QRCode      string    `json:"qrCode,omitempty"`
	QRCodeImage string    `json:"qrCodeImage,omitempty"`
	ClaimedAt   time.Time `json:"createdAt,omitempty"`
	StatusAt    time.Time `json:"updatedAt,omitempty"`
	ExpiresAt   time.Time `gorm:"index" json:"expiresAt,omitempty"`
}

// Present is one reservable item of the gift registry.
type Present struct {
	ID        string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string          `gorm:"not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Reserved  bool            `gorm:"not null;default:false" json:"reserved"`
	Payment   PaymentSummary  `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ChargeLink is what the initiator attaches to a claim once the gateway
// created the charge.
type ChargeLink struct {
	PaymentID   string
	QRCode      string
	QRCodeImage string
}

// PaymentUpdate is an authoritative status for a gateway payment.
type PaymentUpdate struct {
	PaymentID  string
	ClaimToken string
	Status     string
	At         time.Time
}

// LegacyClaimTTL bounds claims stored without an expiry.
const LegacyClaimTTL = time.Hour

// ClaimDeadline is when the current claim lapses. Claims stored without an
// expiry lapse LegacyClaimTTL after they were taken, or at once when that is
// unknown too.
func (s PaymentSummary) ClaimDeadline() time.Time {
	switch {
	case !s.ExpiresAt.IsZero():
		return s.ExpiresAt
	case !s.ClaimedAt.IsZero():
		return s.ClaimedAt.Add(LegacyClaimTTL)
	default:
		return time.Time{}
	}
}

// HasActiveClaim reports whether a non-terminal, unexpired payment holds the present.
func (p *Present) HasActiveClaim(now time.Time) bool {
	if p.Payment.Status == "" || IsTerminal(p.Payment.Status) {
		return false
	}
	deadline := p.Payment.ClaimDeadline()
	return !deadline.IsZero() && !now.After(deadline)
}

// Available reports whether the present can be claimed.
func (p *Present) Available(now time.Time) bool {
	return !p.Reserved && !p.HasActiveClaim(now)
}

// EffectivePaymentStatus is the stored status with lazy expiry applied.
func (p *Present) EffectivePaymentStatus(now time.Time) string {
	s := p.Payment.Status
	if s == "" || IsTerminal(s) {
		return s
	}
	if deadline := p.Payment.ClaimDeadline(); deadline.IsZero() || now.After(deadline) {
		return PaymentStatusExpired
	}
	return s
}

// Claim moves an available present to pending under the given token.
func (p *Present) Claim(token string, now, expiresAt time.Time) error {
	if !p.Available(now) {
		return appErrors.ErrAlreadyReserved
	}
	p.Payment = PaymentSummary{
		ClaimToken: token,
		Status:     PaymentStatusPending,
		ClaimedAt:  now,
		StatusAt:   now,
		ExpiresAt:  expiresAt,
	}
	return nil
}

// AttachCharge links the gateway charge to the claim identified by token.
// Re-attaching the same charge only refreshes the QR data, even when a
// notification already finalized it.
func (p *Present) AttachCharge(token string, link ChargeLink, now time.Time) error {
	if p.Payment.ClaimToken != token {
		return appErrors.ErrClaimLost
	}
	if p.Payment.PaymentID != link.PaymentID {
		if p.Payment.PaymentID != "" || IsTerminal(p.Payment.Status) {
			return appErrors.ErrClaimLost
		}
	}
	p.Payment.PaymentID = link.PaymentID
	p.Payment.QRCode = link.QRCode
	p.Payment.QRCodeImage = link.QRCodeImage
	p.Payment.StatusAt = now
	return nil
}

// ReleaseClaim cancels the claim held by token. It returns false when the
// claim is no longer held by token or is already terminal.
func (p *Present) ReleaseClaim(token string, now time.Time) bool {
	if p.Payment.ClaimToken != token || IsTerminal(p.Payment.Status) {
		return false
	}
	p.Payment.Status = PaymentStatusCancelled
	p.Payment.StatusAt = now
	return true
}

// ApplyPayment applies an authoritative payment status. It returns true when
// the present changed. A repeated update for the same status is a no-op.
func (p *Present) ApplyPayment(u PaymentUpdate) (bool, error) {
	owns := p.Payment.PaymentID == u.PaymentID ||
		(p.Payment.PaymentID == "" && u.ClaimToken != "" && p.Payment.ClaimToken == u.ClaimToken)

	if owns {
		if !CanTransition(p.Payment.Status, u.Status) {
			return false, nil
		}
		p.Payment.PaymentID = u.PaymentID
		p.Payment.Status = u.Status
		p.Payment.StatusAt = u.At
		if u.Status == PaymentStatusPaid {
			p.Reserved = true
		}
		return true, nil
	}

	if u.Status != PaymentStatusPaid {
		return false, nil
	}
	if p.Reserved || p.HasActiveClaim(u.At) {
		return false, appErrors.ErrPaymentSuperseded
	}

	// money arrived for a lapsed claim nobody else holds
	p.Payment = PaymentSummary{
		PaymentID: u.PaymentID,
		Status:    PaymentStatusPaid,
		ClaimedAt: u.At,
		StatusAt:  u.At,
	}
	p.Reserved = true
	return true, nil
}

// ExpirePayment marks the embedded payment expired when it belongs to
// paymentID and its deadline passed.
func (p *Present) ExpirePayment(paymentID string, now time.Time) bool {
	if p.Payment.PaymentID != paymentID || p.EffectivePaymentStatus(now) != PaymentStatusExpired {
		return false
	}
	if !CanTransition(p.Payment.Status, PaymentStatusExpired) {
		return false
	}
	p.Payment.Status = PaymentStatusExpired
	p.Payment.StatusAt = now
	return true
}
