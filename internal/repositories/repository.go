// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"context"
	"errors"

	"casamento/internal/models"
)

// ErrNoChange aborts a mutation without writing. Update methods treat it as
// success and return the current record.
var ErrNoChange = errors.New("no change")

// PresentRepository stores the gift registry. Update runs fn while holding an
// exclusive lock on the present, which is what makes claims atomic.
type PresentRepository interface {
	List(ctx context.Context) ([]models.Present, error)
	GetByID(ctx context.Context, id string) (*models.Present, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Present, error)
	Create(ctx context.Context, present *models.Present) error
	Update(ctx context.Context, id string, fn func(p *models.Present) error) (*models.Present, error)
}

// PaymentRepository stores payment records keyed by the gateway id. Upsert
// hands fn a zero record with only ID set when none exists yet.
type PaymentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
	Upsert(ctx context.Context, id string, fn func(p *models.Payment) error) (*models.Payment, error)
}

type InviteRepository interface {
	GetByID(ctx context.Context, id string) (*models.Invite, error)
	FindByPIN(ctx context.Context, pin string) (*models.Invite, error)
	FindByName(ctx context.Context, nameLower string) (*models.Invite, error)
	List(ctx context.Context) ([]models.Invite, error)
	Create(ctx context.Context, invite *models.Invite) error
	Update(ctx context.Context, id string, fn func(i *models.Invite) error) (*models.Invite, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	List(ctx context.Context, offset, limit int) ([]models.Message, int64, error)
}

// Store bundles one backend's repositories.
type Store struct {
	Presents PresentRepository
	Payments PaymentRepository
	Invites  InviteRepository
	Messages MessageRepository
	Driver   string
	Ping     func(ctx context.Context) error
	Close    func() error
}

// HealthCheck pings the backend when it supports it.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.Ping == nil {
		return nil
	}
	return s.Ping(ctx)
}
