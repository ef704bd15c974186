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

type presentRepository struct {
	db *gorm.DB
}

func NewPresentRepository(db *gorm.DB) PresentRepository {
	return &presentRepository{db: db}
}

func (r *presentRepository) List(ctx context.Context) ([]models.Present, error) {
	var presents []models.Present
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&presents).Error; err != nil {
		return nil, fmt.Errorf("failed to list presents: %w", err)
	}
	return presents, nil
}

func (r *presentRepository) GetByID(ctx context.Context, id string) (*models.Present, error) {
	var present models.Present
	if err := r.db.WithContext(ctx).First(&present, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrPresentNotFound
		}
		return nil, fmt.Errorf("failed to get present: %w", err)
	}
	return &present, nil
}

func (r *presentRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Present, error) {
	var present models.Present
	err := r.db.WithContext(ctx).
		Where("payment_payment_id = ?", paymentID).
		First(&present).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrPresentNotFound
		}
		return nil, fmt.Errorf("failed to find present by payment: %w", err)
	}
	return &present, nil
}

func (r *presentRepository) Create(ctx context.Context, present *models.Present) error {
	if present.ID == "" {
		present.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(present).Error; err != nil {
		return fmt.Errorf("failed to create present: %w", err)
	}
	return nil
}

// Update locks the row with SELECT ... FOR UPDATE for the duration of fn.
func (r *presentRepository) Update(ctx context.Context, id string, fn func(p *models.Present) error) (*models.Present, error) {
	var present models.Present
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&present, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErrors.ErrPresentNotFound
			}
			return fmt.Errorf("failed to lock present: %w", err)
		}

		if err := fn(&present); err != nil {
			return err
		}
		return tx.Save(&present).Error
	})
	if errors.Is(err, ErrNoChange) {
		return &present, nil
	}
	if err != nil {
		return nil, err
	}
	return &present, nil
}
