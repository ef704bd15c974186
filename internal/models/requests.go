package models

import "github.com/shopspring/decimal"

// CreatePaymentRequest is the body of POST /create_payment.
type CreatePaymentRequest struct {
	Title      string           `json:"title"`
	Amount     *decimal.Decimal `json:"amount"`
	PresentID  string           `json:"presentId"`
	BuyerEmail string           `json:"buyerEmail,omitempty"`
}

// CreatePaymentResponse is returned once the PIX charge exists.
type CreatePaymentResponse struct {
	PaymentID string `json:"paymentId"`
	QRCode    string `json:"qr_code"`
	QRBase64  string `json:"qr_base64"`
	ExpiresAt string `json:"expiresAt"`
}

type InviteLookupRequest struct {
	Code string `json:"code"`
}

type InviteConfirmRequest struct {
	Guests *int `json:"guests,omitempty"`
}

type MessageRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}

type AdminLoginRequest struct {
	Password string `json:"password"`
}

// NewPresentRequest carries the form fields of an admin present upload.
type NewPresentRequest struct {
	Name     string
	Price    string
	ImageURL string
}
