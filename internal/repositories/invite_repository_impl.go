package repositories

import (
	"context"
	"errors"
	"fmt"

	appErrors "casamento/internal/errors"
	"casamento/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type inviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &inviteRepository{db: db}
}

func (r *inviteRepository) first(ctx context.Context, query string, arg interface{}) (*models.Invite, error) {
	var invite models.Invite
	if err := r.db.WithContext(ctx).Where(query, arg).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return &invite, nil
}

func (r *inviteRepository) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *inviteRepository) FindByPIN(ctx context.Context, pin string) (*models.Invite, error) {
	return r.first(ctx, "pin = ?", pin)
}

func (r *inviteRepository) FindByName(ctx context.Context, nameLower string) (*models.Invite, error) {
	return r.first(ctx, "name_lower = ?", nameLower)
}

func (r *inviteRepository) List(ctx context.Context) ([]models.Invite, error) {
	var invites []models.Invite
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

func (r *inviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	invite.NameLower = models.NormalizeName(invite.Name)
	if invite.Status == "" {
		invite.Status = models.InviteStatusPending
	}
	if err := r.db.WithContext(ctx).Create(invite).Error; err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

func (r *inviteRepository) Update(ctx context.Context, id string, fn func(i *models.Invite) error) (*models.Invite, error) {
	var invite models.Invite
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invite, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErrors.ErrInviteNotFound
			}
			return fmt.Errorf("failed to lock invite: %w", err)
		}
		if err := fn(&invite); err != nil {
			return err
		}
		return tx.Save(&invite).Error
	})
	if errors.Is(err, ErrNoChange) {
		return &invite, nil
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}
