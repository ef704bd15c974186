package validation

import (
	"casamento/internal/models"

	"github.com/shopspring/decimal"
)

// CreatePayment checks a payment request before any store or gateway call.
// buyerEmail is optional and never fails validation; an invalid one falls
// back to the configured payer.
func CreatePayment(req *models.CreatePaymentRequest) *Validator {
	v := New()
	v.Required("title", req.Title)
	v.MaxLength("title", req.Title, MaxTitleLength)
	v.Required("presentId", req.PresentID)
	v.Positive("amount", req.Amount)
	return v
}

func Message(req *models.MessageRequest) *Validator {
	v := New()
	v.Required("name", req.Name)
	v.MaxLength("name", req.Name, MaxNameLength)
	v.Required("message", req.Message)
	v.MaxLength("message", req.Message, MaxMessageLength)
	if req.Email != "" {
		v.Email("email", req.Email)
	}
	return v
}

func InviteLookup(req *models.InviteLookupRequest) *Validator {
	v := New()
	v.Required("code", req.Code)
	v.MaxLength("code", req.Code, MaxInviteCodeLength)
	return v
}

func InviteConfirm(req *models.InviteConfirmRequest) *Validator {
	v := New()
	if req.Guests != nil {
		v.Check(*req.Guests > 0, "guests", "must be at least 1")
	}
	return v
}

// NewPresent checks an admin upload and returns the parsed price.
func NewPresent(req *models.NewPresentRequest) (*Validator, decimal.Decimal) {
	v := New()
	v.Required("name", req.Name)
	v.MaxLength("name", req.Name, MaxPresentNameLength)

	price, err := decimal.NewFromString(req.Price)
	switch {
	case req.Price == "":
		v.AddError("price", "is required")
	case err != nil:
		v.AddError("price", "must be a number")
	case !price.IsPositive():
		v.AddError("price", "must be greater than zero")
	}
	return v, price.Round(2)
}
