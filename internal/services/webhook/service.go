package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	appErrors "casamento/internal/errors"
	"casamento/internal/metrics"
	"casamento/internal/models"
	"casamento/internal/repositories"
	"casamento/internal/services/gateway"
	cachekeys "casamento/internal/utils/cache"
	"casamento/internal/utils/retry"

	"go.uber.org/zap"
)

const defaultFinalMarkerTTL = 24 * time.Hour

type service struct {
	presents repositories.PresentRepository
	payments repositories.PaymentRepository
	gateway  gateway.Client
	cache    repositories.Cache
	catalog  CatalogCache
	policy   retry.Policy
	markTTL  time.Duration
	metrics  metrics.Collector
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(
	presents repositories.PresentRepository,
	payments repositories.PaymentRepository,
	gw gateway.Client,
	cache repositories.Cache,
	catalog CatalogCache,
	cfg Config,
	collector metrics.Collector,
	logger *zap.Logger,
) Service {
	policy := retry.DefaultPolicy()
	if cfg.RetryMaxAttempts > 0 {
		policy.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialInterval > 0 {
		policy.InitialInterval = cfg.RetryInitialInterval
	}
	markTTL := cfg.FinalMarkerTTL
	if markTTL <= 0 {
		markTTL = defaultFinalMarkerTTL
	}
	return &service{
		presents: presents,
		payments: payments,
		gateway:  gw,
		cache:    cache,
		catalog:  catalog,
		policy:   policy,
		markTTL:  markTTL,
		metrics:  collector,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *service) HandleNotification(ctx context.Context, n Notification) (Outcome, error) {
	parsed, err := parseNotification(n)
	if err != nil {
		s.metrics.RecordWebhook("malformed")
		s.logger.Error("unreadable notification", zap.ByteString("body", truncate(n.Body, 512)), zap.Error(err))
		return OutcomeError, err
	}

	if parsed.ignored() {
		s.metrics.RecordWebhook(string(OutcomeIgnored))
		s.logger.Debug("ignoring notification", zap.String("topic", parsed.Topic))
		return OutcomeIgnored, nil
	}
	if parsed.PaymentID == "" {
		s.metrics.RecordWebhook(string(OutcomeNoID))
		s.logger.Warn("notification without payment id", zap.ByteString("body", truncate(n.Body, 512)))
		return OutcomeNoID, nil
	}

	paymentID := parsed.PaymentID
	outcome, err := s.Reconcile(ctx, paymentID)
	for _, next := range parsed.Fallbacks {
		if err != nil || outcome != OutcomeUnknown {
			break
		}
		s.logger.Debug("trying next id from notification", zap.String("unknown_id", paymentID), zap.String("payment_id", next))
		paymentID = next
		outcome, err = s.Reconcile(ctx, paymentID)
	}
	if err != nil {
		s.logger.Error("notification processing failed",
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		outcome = OutcomeError
	}
	s.metrics.RecordWebhook(string(outcome))
	return outcome, nil
}

func (s *service) Reconcile(ctx context.Context, paymentID string) (Outcome, error) {
	if s.isFinal(ctx, paymentID) {
		return OutcomeFinal, nil
	}

	var charge *gateway.Payment
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		charge, err = s.gateway.GetPayment(ctx, paymentID)
		return err
	})
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusNotFound {
			s.logger.Warn("notification for unknown payment", zap.String("payment_id", paymentID))
			return OutcomeUnknown, nil
		}
		return OutcomeError, fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}

	status := models.MapGatewayStatus(charge.Status)
	if status == "" {
		return OutcomeError, fmt.Errorf("payment %s has no status", paymentID)
	}

	presentID, err := s.locatePresent(ctx, paymentID, charge)
	if err != nil {
		return OutcomeError, err
	}
	if presentID == "" {
		s.logger.Warn("no present linked to payment",
			zap.String("payment_id", paymentID),
			zap.String("gateway_status", charge.Status),
		)
		return OutcomeNoPresent, nil
	}

	now := s.now()
	recordChanged, err := s.applyToRecord(ctx, paymentID, presentID, status, charge, now)
	if err != nil {
		return OutcomeError, err
	}

	update := models.PaymentUpdate{
		PaymentID:  paymentID,
		ClaimToken: charge.MetadataString("claim_token", "claimToken"),
		Status:     status,
		At:         now,
	}
	if update.ClaimToken == "" {
		update.ClaimToken = charge.ExternalReference
	}

	var presentChanged bool
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		_, err := s.presents.Update(ctx, presentID, func(p *models.Present) error {
			changed, err := p.ApplyPayment(update)
			if err != nil {
				return err
			}
			if !changed {
				return repositories.ErrNoChange
			}
			presentChanged = true
			return nil
		})
		return err
	})

	outcome := OutcomeUnchanged
	switch {
	case errors.Is(err, appErrors.ErrPaymentSuperseded):
		s.logger.Warn("payment received for a present held by another payment, refund needed",
			zap.String("payment_id", paymentID),
			zap.String("present_id", presentID),
			zap.String("status", status),
		)
		outcome = OutcomeSuperseded
	case errors.Is(err, appErrors.ErrPresentNotFound):
		s.logger.Warn("payment points to a missing present",
			zap.String("payment_id", paymentID),
			zap.String("present_id", presentID),
		)
		return OutcomeNoPresent, nil
	case err != nil:
		return OutcomeError, fmt.Errorf("apply payment %s to present %s: %w", paymentID, presentID, err)
	case presentChanged:
		outcome = OutcomeApplied
		s.metrics.RecordStatusTransition(status)
		s.catalog.Invalidate(ctx)
		s.logger.Info("present payment status updated",
			zap.String("payment_id", paymentID),
			zap.String("present_id", presentID),
			zap.String("status", status),
			zap.String("gateway_status", charge.Status),
		)
	case recordChanged:
		outcome = OutcomeApplied
	}

	if isGatewayFinal(status) {
		if err := s.cache.SetWithTTL(ctx, cachekeys.WebhookFinalKey(paymentID), status, s.markTTL); err != nil {
			s.logger.Debug("final marker not stored", zap.String("payment_id", paymentID), zap.Error(err))
		}
	}
	return outcome, nil
}

// applyToRecord upserts the payment record with the gateway's view. It
// reports whether the stored status changed.
func (s *service) applyToRecord(ctx context.Context, paymentID, presentID, status string, charge *gateway.Payment, now time.Time) (bool, error) {
	var changed bool
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		changed = false
		_, err := s.payments.Upsert(ctx, paymentID, func(p *models.Payment) error {
			if p.PresentID == "" {
				p.PresentID = presentID
			}
			if !p.ApplyStatus(status, charge.Status, models.JSON(charge.Raw), now) {
				return repositories.ErrNoChange
			}
			changed = true
			return nil
		})
		return err
	})
	if err != nil {
		return false, fmt.Errorf("update payment record %s: %w", paymentID, err)
	}
	return changed, nil
}

// locatePresent finds the owning present from the charge metadata, then the
// payment record, then the present whose summary references the payment.
// Named presents that do not exist are skipped, so nothing is written for a
// payment that cannot be applied.
func (s *service) locatePresent(ctx context.Context, paymentID string, charge *gateway.Payment) (string, error) {
	if id := charge.MetadataString("present_id", "presentId", "presentid"); id != "" {
		ok, err := s.presentExists(ctx, id)
		if err != nil || ok {
			return id, err
		}
		s.logger.Warn("charge metadata names a missing present",
			zap.String("payment_id", paymentID),
			zap.String("present_id", id),
		)
	}

	record, err := s.payments.GetByID(ctx, paymentID)
	switch {
	case err == nil && record.PresentID != "":
		ok, err := s.presentExists(ctx, record.PresentID)
		if err != nil || ok {
			return record.PresentID, err
		}
	case err != nil && !errors.Is(err, appErrors.ErrPaymentNotFound):
		return "", fmt.Errorf("load payment record %s: %w", paymentID, err)
	}

	present, err := s.presents.FindByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, appErrors.ErrPresentNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("find present by payment %s: %w", paymentID, err)
	}
	return present.ID, nil
}

func (s *service) presentExists(ctx context.Context, id string) (bool, error) {
	_, err := s.presents.GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrPresentNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("load present %s: %w", id, err)
	}
}

func (s *service) isFinal(ctx context.Context, paymentID string) bool {
	var status string
	found, err := s.cache.Get(ctx, cachekeys.WebhookFinalKey(paymentID), &status)
	if err != nil {
		s.logger.Debug("final marker lookup failed", zap.String("payment_id", paymentID), zap.Error(err))
		return false
	}
	return found
}

// isGatewayFinal reports statuses the gateway will not change again.
// Local expiry is excluded since a late approval may still arrive.
func isGatewayFinal(status string) bool {
	return status == models.PaymentStatusPaid || status == models.PaymentStatusCancelled
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
