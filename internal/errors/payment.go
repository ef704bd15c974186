package errors

import "net/http"

var (
	ErrPresentNotFound = &DomainError{
		Code:    "PRESENT_NOT_FOUND",
		Message: "present not found",
		Status:  http.StatusNotFound,
	}
	ErrPaymentNotFound = &DomainError{
		Code:    "PAYMENT_NOT_FOUND",
		Message: "payment not found",
		Status:  http.StatusNotFound,
	}
	ErrAlreadyReserved = &DomainError{
		Code:    "ALREADY_RESERVED",
		Message: "present already reserved",
		Status:  http.StatusConflict,
	}
	ErrClaimLost = &DomainError{
		Code:    "CLAIM_LOST",
		Message: "reservation claim no longer held",
		Status:  http.StatusConflict,
	}
	ErrAmountMismatch = &DomainError{
		Code:    "AMOUNT_MISMATCH",
		Message: "amount does not match present price",
		Status:  http.StatusBadRequest,
	}
	ErrGateway = &DomainError{
		Code:    "GATEWAY_ERROR",
		Message: "failed to create payment",
		Status:  http.StatusInternalServerError,
	}
	ErrMissingQRData = &DomainError{
		Code:    "MISSING_QR_DATA",
		Message: "invalid payment gateway response",
		Status:  http.StatusInternalServerError,
	}
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: "payment status transition not allowed",
		Status:  http.StatusConflict,
	}
	ErrPaymentSuperseded = &DomainError{
		Code:    "PAYMENT_SUPERSEDED",
		Message: "present is held by another payment",
		Status:  http.StatusConflict,
	}
)
