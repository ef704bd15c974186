package guestbook

import (
	"context"
	"fmt"
	"strings"
	"time"

	appErrors "casamento/internal/errors"
	"casamento/internal/models"
	"casamento/internal/repositories"
	"casamento/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service stores and lists guestbook messages.
type Service interface {
	Post(ctx context.Context, req *models.MessageRequest) (*models.Message, error)
	List(ctx context.Context, offset, limit int) ([]models.Message, int64, error)
}

type service struct {
	messages repositories.MessageRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(messages repositories.MessageRepository, logger *zap.Logger) Service {
	return &service{
		messages: messages,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *service) Post(ctx context.Context, req *models.MessageRequest) (*models.Message, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)

	if v := validation.Message(req); !v.Valid() {
		return nil, appErrors.NewValidationError(v.Errors)
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     strings.ToLower(req.Email),
		Message:   req.Message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	s.logger.Info("guestbook message posted", zap.String("message_id", msg.ID))
	return msg, nil
}

func (s *service) List(ctx context.Context, offset, limit int) ([]models.Message, int64, error) {
	msgs, total, err := s.messages.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	return msgs, total, nil
}
