package repositories

import (
	"context"
	"errors"
	"fmt"

	appErrors "casamento/internal/errors"
	"casamento/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.NonTerminal {
		query = query.Where("status NOT IN ?", models.TerminalStatuses())
	}
	if !filter.ExpiresBefore.IsZero() {
		query = query.Where("expires_at < ?", filter.ExpiresBefore)
	}
	if !filter.CreatedBefore.IsZero() {
		query = query.Where("created_at < ?", filter.CreatedBefore)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var payments []models.Payment
	if err := query.Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) Upsert(ctx context.Context, id string, fn func(p *models.Payment) error) (*models.Payment, error) {
	var payment *models.Payment
	err := retryOnDuplicate(func() error {
		var err error
		payment, err = r.upsertOnce(ctx, id, fn)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert payment: %w", err)
	}
	return payment, nil
}

// upsertOnce locks the row, applies fn and writes it back. Two creators of
// the same id race on the primary key; the loser gets gorm.ErrDuplicatedKey.
func (r *paymentRepository) upsertOnce(ctx context.Context, id string, fn func(p *models.Payment) error) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, "id = ?", id).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to lock payment: %w", err)
		}
		if !exists {
			payment = models.Payment{ID: id}
		}

		if err := fn(&payment); err != nil {
			return err
		}
		if !exists {
			return tx.Create(&payment).Error
		}
		return tx.Save(&payment).Error
	})
	if errors.Is(err, ErrNoChange) {
		return &payment, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// retryOnDuplicate runs op a second time when the first attempt lost an
// insert race. The second attempt finds the winner's row and locks it.
func retryOnDuplicate(op func() error) error {
	err := op()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return op()
	}
	return err
}
