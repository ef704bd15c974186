package errors

import (
	"fmt"
	"net/http"
)

// DomainError is an error with a stable machine readable code and the HTTP
// status it maps to.
type DomainError struct {
	Code    string
	Message string
	Status  int
	Detail  string
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// Is matches any DomainError with the same code, so wrapped copies created
// by WithDetail still satisfy errors.Is against the sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying extra detail.
func (e *DomainError) WithDetail(detail string) *DomainError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// HTTPStatus returns the status, defaulting to 500.
func (e *DomainError) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

var (
	ErrValidation = &DomainError{
		Code:    "VALIDATION_FAILED",
		Message: "missing or invalid fields",
		Status:  http.StatusBadRequest,
	}
	ErrNotFound = &DomainError{
		Code:    "NOT_FOUND",
		Message: "resource not found",
		Status:  http.StatusNotFound,
	}
	ErrUnauthorized = &DomainError{
		Code:    "UNAUTHORIZED",
		Message: "unauthorized",
		Status:  http.StatusUnauthorized,
	}
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d invalid field(s)", ErrValidation.Message, len(e.Fields))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}
