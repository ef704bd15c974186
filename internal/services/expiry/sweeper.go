package expiry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"casamento/internal/metrics"
	"casamento/internal/models"
	"casamento/internal/repositories"

	"go.uber.org/zap"
)

const defaultBatchSize = 200

type sweeper struct {
	presents   repositories.PresentRepository
	payments   repositories.PaymentRepository
	reconciler Reconciler
	linker     LinkageDrainer
	catalog    CatalogCache
	cfg        Config
	metrics    metrics.Collector
	logger     *zap.Logger
	now        func() time.Time

	mu sync.Mutex
}

func NewSweeper(
	presents repositories.PresentRepository,
	payments repositories.PaymentRepository,
	reconciler Reconciler,
	linker LinkageDrainer,
	catalog CatalogCache,
	cfg Config,
	collector metrics.Collector,
	logger *zap.Logger,
) Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &sweeper{
		presents:   presents,
		payments:   payments,
		reconciler: reconciler,
		linker:     linker,
		catalog:    catalog,
		cfg:        cfg,
		metrics:    collector,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *sweeper) Run(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		s.logger.Warn("sweeper disabled, no interval configured")
		return
	}
	s.logger.Info("sweeper started", zap.Duration("interval", s.cfg.Interval))

	s.sweep(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *sweeper) sweep(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("sweep finished with errors",
			zap.Int("expired", report.Expired),
			zap.Int("polled", report.Polled),
			zap.Int("relinked", report.Relinked),
			zap.Error(err),
		)
		return
	}
	if report != (Report{}) {
		s.logger.Info("sweep finished",
			zap.Int("expired", report.Expired),
			zap.Int("polled", report.Polled),
			zap.Int("relinked", report.Relinked),
		)
	}
}

// RunOnce polls stale unfinished payments, expires the ones past their
// deadline and drains the linkage queue. Polling goes first so a payment
// approved while its webhook was lost is not expired.
func (s *sweeper) RunOnce(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		report Report
		errs   []error
	)

	polled, err := s.poll(ctx)
	report.Polled = polled
	if err != nil {
		errs = append(errs, err)
	}

	expired, err := s.expire(ctx)
	report.Expired = expired
	if err != nil {
		errs = append(errs, err)
	}

	relinked, err := s.linker.DrainLinkageQueue(ctx)
	report.Relinked = relinked
	if err != nil {
		errs = append(errs, fmt.Errorf("drain linkage queue: %w", err))
	}

	s.metrics.RecordSweep(report.Expired, report.Polled, report.Relinked)
	return report, errors.Join(errs...)
}

func (s *sweeper) poll(ctx context.Context) (int, error) {
	if s.cfg.PollAfter <= 0 {
		return 0, nil
	}
	now := s.now()
	pending, err := s.payments.List(ctx, models.PaymentFilter{
		NonTerminal:   true,
		CreatedBefore: now.Add(-s.cfg.PollAfter),
		Limit:         s.cfg.BatchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("list payments to poll: %w", err)
	}

	polled := 0
	var errs []error
	for _, p := range pending {
		if ctx.Err() != nil {
			return polled, ctx.Err()
		}
		if !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) {
			continue
		}
		if _, err := s.reconciler.Reconcile(ctx, p.ID); err != nil {
			errs = append(errs, fmt.Errorf("poll payment %s: %w", p.ID, err))
			continue
		}
		polled++
	}
	return polled, errors.Join(errs...)
}

func (s *sweeper) expire(ctx context.Context) (int, error) {
	now := s.now()
	stale, err := s.payments.List(ctx, models.PaymentFilter{
		NonTerminal:   true,
		ExpiresBefore: now,
		Limit:         s.cfg.BatchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("list expired payments: %w", err)
	}

	expired := 0
	touchedCatalog := false
	var errs []error
	for _, p := range stale {
		if ctx.Err() != nil {
			break
		}
		changed, err := s.expireOne(ctx, p, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			expired++
		}
		if changed && p.PresentID != "" {
			touchedCatalog = true
		}
	}
	if touchedCatalog {
		s.catalog.Invalidate(ctx)
	}
	return expired, errors.Join(errs...)
}

func (s *sweeper) expireOne(ctx context.Context, p models.Payment, now time.Time) (bool, error) {
	var changed bool
	record, err := s.payments.Upsert(ctx, p.ID, func(rec *models.Payment) error {
		if rec.EffectiveStatus(now) != models.PaymentStatusExpired {
			return repositories.ErrNoChange
		}
		changed = rec.ApplyStatus(models.PaymentStatusExpired, "", nil, now)
		if !changed {
			return repositories.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("expire payment %s: %w", p.ID, err)
	}
	if !changed {
		return false, nil
	}
	s.metrics.RecordStatusTransition(models.PaymentStatusExpired)

	if record.PresentID == "" {
		return true, nil
	}
	_, err = s.presents.Update(ctx, record.PresentID, func(present *models.Present) error {
		if !present.ExpirePayment(p.ID, now) {
			return repositories.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return true, fmt.Errorf("expire present %s for payment %s: %w", record.PresentID, p.ID, err)
	}
	s.logger.Info("payment expired",
		zap.String("payment_id", p.ID),
		zap.String("present_id", record.PresentID),
	)
	return true, nil
}
