package errors

import "net/http"

var (
	ErrInviteNotFound = &DomainError{
		Code:    "INVITE_NOT_FOUND",
		Message: "invite not found",
		Status:  http.StatusNotFound,
	}
	ErrInviteAlreadyConfirmed = &DomainError{
		Code:    "INVITE_ALREADY_CONFIRMED",
		Message: "invite already confirmed",
		Status:  http.StatusConflict,
	}
	ErrInviteAlreadyDeclined = &DomainError{
		Code:    "INVITE_ALREADY_DECLINED",
		Message: "invite already declined",
		Status:  http.StatusConflict,
	}
	ErrInvalidGuestCount = &DomainError{
		Code:    "INVALID_GUEST_COUNT",
		Message: "guest count out of range",
		Status:  http.StatusBadRequest,
	}
)
