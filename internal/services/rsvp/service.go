package rsvp

import (
	"context"
	"errors"
	"strings"
	"time"

	appErrors "casamento/internal/errors"
	"casamento/internal/models"
	"casamento/internal/repositories"
	"casamento/internal/validation"

	"go.uber.org/zap"
)

// Service answers invitations.
type Service interface {
	// Lookup finds an invite by PIN, then by name. An invite that was
	// already answered is returned together with a conflict error.
	Lookup(ctx context.Context, req *models.InviteLookupRequest) (*models.Invite, error)
	Confirm(ctx context.Context, id string, req *models.InviteConfirmRequest) (*models.Invite, error)
	Decline(ctx context.Context, id string) (*models.Invite, error)
	List(ctx context.Context) ([]models.Invite, error)
}

type service struct {
	invites repositories.InviteRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(invites repositories.InviteRepository, logger *zap.Logger) Service {
	return &service{
		invites: invites,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *service) Lookup(ctx context.Context, req *models.InviteLookupRequest) (*models.Invite, error) {
	if v := validation.InviteLookup(req); !v.Valid() {
		return nil, appErrors.NewValidationError(v.Errors)
	}
	code := strings.TrimSpace(req.Code)

	invite, err := s.invites.FindByPIN(ctx, code)
	if errors.Is(err, appErrors.ErrInviteNotFound) {
		invite, err = s.invites.FindByName(ctx, models.NormalizeName(code))
	}
	if err != nil {
		return nil, err
	}

	if err := invite.Answered(); err != nil {
		return invite, err
	}
	return invite, nil
}

func (s *service) Confirm(ctx context.Context, id string, req *models.InviteConfirmRequest) (*models.Invite, error) {
	if v := validation.InviteConfirm(req); !v.Valid() {
		return nil, appErrors.NewValidationError(v.Errors)
	}

	invite, err := s.invites.Update(ctx, id, func(i *models.Invite) error {
		return i.Confirm(req.Guests, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invite confirmed",
		zap.String("invite_id", invite.ID),
		zap.Int("guests", invite.ConfirmedGuests),
	)
	return invite, nil
}

func (s *service) Decline(ctx context.Context, id string) (*models.Invite, error) {
	invite, err := s.invites.Update(ctx, id, func(i *models.Invite) error {
		return i.Decline(s.now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invite declined", zap.String("invite_id", invite.ID))
	return invite, nil
}

func (s *service) List(ctx context.Context) ([]models.Invite, error) {
	return s.invites.List(ctx)
}
