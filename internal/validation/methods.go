package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validator collects per-field errors
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first error reported for a field
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Required checks that a string is not blank
func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field, value string, n int) {
	v.Check(utf8.RuneCountInString(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(IsEmail(email), field, "must be a valid email address")
}

// Positive checks that an amount is present and greater than zero
func (v *Validator) Positive(field string, amount *decimal.Decimal) {
	if amount == nil {
		v.AddError(field, "is required")
		return
	}
	v.Check(amount.IsPositive(), field, "must be greater than zero")
}

// IsEmail reports whether s looks like a deliverable address.
func IsEmail(s string) bool {
	if len(s) > MaxEmailLength || !emailRegex.MatchString(s) {
		return false
	}
	_, err := mail.ParseAddress(s)
	return err == nil
}
