package auth

import (
	"context"
	"time"

	appErrors "casamento/internal/errors"
	"casamento/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTokenTTL = 12 * time.Hour

// Service authenticates the single admin account.
type Service interface {
	Login(ctx context.Context, password string) (string, time.Time, error)
}

type service struct {
	passwordHash string
	jwtSecret    string
	ttl          time.Duration
	logger       *zap.Logger
}

func NewService(passwordHash, jwtSecret string, ttl time.Duration, logger *zap.Logger) Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &service{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		ttl:          ttl,
		logger:       logger,
	}
}

func (s *service) Login(ctx context.Context, password string) (string, time.Time, error) {
	if s.passwordHash == "" || s.jwtSecret == "" {
		s.logger.Warn("admin login attempted without ADMIN_PASSWORD_HASH or JWT_SECRET")
		return "", time.Time{}, appErrors.ErrAdminDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		s.logger.Warn("admin login failed")
		return "", time.Time{}, appErrors.ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.ttl)
	token, err := utils.GenerateAdminToken(s.jwtSecret, s.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	s.logger.Info("admin logged in")
	return token, expiresAt, nil
}

// HashPassword returns the bcrypt hash stored in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
