package errors

import "net/http"

var (
	ErrMalformedNotification = &DomainError{
		Code:    "MALFORMED_NOTIFICATION",
		Message: "notification body is not valid JSON",
		Status:  http.StatusInternalServerError,
	}
	ErrInvalidSignature = &DomainError{
		Code:    "INVALID_SIGNATURE",
		Message: "invalid notification signature",
		Status:  http.StatusUnauthorized,
	}
)
