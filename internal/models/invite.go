package models

import (
	"strings"
	"time"

	appErrors "casamento/internal/errors"

	"github.com/lib/pq"
)

const (
	InviteStatusPending   = "PENDING"
	InviteStatusConfirmed = "CONFIRMADO"
	InviteStatusDeclined  = "AUSENTE"
)

// Invite is one RSVP entry, found by PIN or by name.
type Invite struct {
	ID              string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name            string         `gorm:"not null" json:"name"`
	NameLower       string         `gorm:"index" json:"-"`
	PIN             string         `gorm:"index" json:"-"`
	Status          string         `gorm:"not null;default:PENDING" json:"status"`
	MaxGuests       int            `gorm:"not null;default:1" json:"maxGuests"`
	ConfirmedGuests int            `json:"confirmedGuests"`
	Members         pq.StringArray `gorm:"type:text[]" json:"members"`
	ConfirmedAt     *time.Time     `json:"confirmedAt,omitempty"`
	DeclinedAt      *time.Time     `json:"declinedAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// NormalizeName is the lookup key for invite names.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Answered returns the error for an invite that already has a final answer.
func (i *Invite) Answered() error {
	switch i.Status {
	case InviteStatusConfirmed:
		return appErrors.ErrInviteAlreadyConfirmed
	case InviteStatusDeclined:
		return appErrors.ErrInviteAlreadyDeclined
	}
	return nil
}

// Confirm records attendance. A nil guests confirms the full party.
func (i *Invite) Confirm(guests *int, now time.Time) error {
	if err := i.Answered(); err != nil {
		return err
	}
	n := i.MaxGuests
	if guests != nil {
		n = *guests
	}
	if n < 1 || n > i.MaxGuests {
		return appErrors.ErrInvalidGuestCount
	}
	i.Status = InviteStatusConfirmed
	i.ConfirmedGuests = n
	i.ConfirmedAt = &now
	return nil
}

// Decline records absence.
func (i *Invite) Decline(now time.Time) error {
	if err := i.Answered(); err != nil {
		return err
	}
	i.Status = InviteStatusDeclined
	i.ConfirmedGuests = 0
	i.DeclinedAt = &now
	return nil
}
