package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	appErrors "casamento/internal/errors"
	"casamento/internal/metrics"
	"casamento/internal/models"
	"casamento/internal/repositories"
	"casamento/internal/services/media"
	cachekeys "casamento/internal/utils/cache"
	"casamento/internal/validation"

	"go.uber.org/zap"
)

const cacheName = "catalog"

type service struct {
	presents repositories.PresentRepository
	cache    repositories.Cache
	uploader media.Uploader
	ttl      time.Duration
	metrics  metrics.Collector
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(
	presents repositories.PresentRepository,
	cache repositories.Cache,
	uploader media.Uploader,
	ttl time.Duration,
	collector metrics.Collector,
	logger *zap.Logger,
) Service {
	return &service{
		presents: presents,
		cache:    cache,
		uploader: uploader,
		ttl:      ttl,
		metrics:  collector,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *service) ListPresents(ctx context.Context) ([]PresentView, error) {
	presents, err := s.cachedList(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]PresentView, 0, len(presents))
	for _, p := range presents {
		out = append(out, NewPresentView(p, now))
	}
	return out, nil
}

// cachedList stores raw presents so lazy expiry is still evaluated per read.
func (s *service) cachedList(ctx context.Context) ([]models.Present, error) {
	var presents []models.Present
	found, err := s.cache.Get(ctx, cachekeys.CatalogKey(), &presents)
	if err != nil {
		s.logger.Warn("catalog cache read failed", zap.Error(err))
	}
	if found {
		s.metrics.RecordCacheHit(cacheName)
		return presents, nil
	}
	s.metrics.RecordCacheMiss(cacheName)

	presents, err = s.presents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list presents: %w", err)
	}
	if s.ttl > 0 {
		if err := s.cache.SetWithTTL(ctx, cachekeys.CatalogKey(), presents, s.ttl); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return presents, nil
}

func (s *service) GetPresent(ctx context.Context, id string) (*PresentView, error) {
	p, err := s.presents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewPresentView(*p, s.now())
	return &view, nil
}

func (s *service) CreatePresent(ctx context.Context, req *models.NewPresentRequest, image *Image) (*models.Present, error) {
	v, price := validation.NewPresent(req)
	if !v.Valid() {
		return nil, appErrors.NewValidationError(v.Errors)
	}

	present := &models.Present{
		Name:     req.Name,
		Price:    price,
		ImageURL: req.ImageURL,
	}
	if image != nil {
		url, err := s.uploader.Upload(ctx, image.Content, image.Filename)
		if err != nil {
			if errors.Is(err, media.ErrUploadDisabled) {
				return nil, appErrors.ErrValidation.WithDetail("image uploads are not configured")
			}
			return nil, fmt.Errorf("upload present image: %w", err)
		}
		present.ImageURL = url
	}

	if err := s.presents.Create(ctx, present); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)

	s.logger.Info("present created",
		zap.String("present_id", present.ID),
		zap.String("name", present.Name),
		zap.String("price", present.Price.StringFixed(2)),
	)
	return present, nil
}

func (s *service) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cachekeys.CatalogKey()); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
