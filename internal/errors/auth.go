package errors

import "net/http"

var (
	ErrInvalidCredentials = &DomainError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid credentials",
		Status:  http.StatusUnauthorized,
	}
	ErrAdminDisabled = &DomainError{
		Code:    "ADMIN_DISABLED",
		Message: "admin access is not configured",
		Status:  http.StatusServiceUnavailable,
	}
)
