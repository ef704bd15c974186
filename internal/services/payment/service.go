package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	appErrors "casamento/internal/errors"
	"casamento/internal/metrics"
	"casamento/internal/models"
	"casamento/internal/repositories"
	"casamento/internal/services/gateway"
	cachekeys "casamento/internal/utils/cache"
	"casamento/internal/utils/retry"
	"casamento/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxLinkageAttempts = 20
	drainBatch         = 50
	cleanupTimeout     = 10 * time.Second
)

type service struct {
	presents repositories.PresentRepository
	payments repositories.PaymentRepository
	gateway  gateway.Client
	cache    repositories.Cache
	catalog  CatalogCache
	cfg      Config
	policy   retry.Policy
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
	return &service{
		presents: presents,
		payments: payments,
		gateway:  gw,
		cache:    cache,
		catalog:  catalog,
		cfg:      cfg,
		policy:   policy,
		metrics:  collector,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *service) CreatePayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.CreatePaymentResponse, error) {
	if v := validation.CreatePayment(req); !v.Valid() {
		s.metrics.RecordPaymentCreated("invalid")
		return nil, appErrors.NewValidationError(v.Errors)
	}
	amount := req.Amount.Round(2)

	present, err := s.presents.GetByID(ctx, req.PresentID)
	if err != nil {
		return nil, err
	}
	if !present.Price.IsZero() && !present.Price.Equal(amount) {
		s.metrics.RecordPaymentCreated("amount_mismatch")
		return nil, appErrors.ErrAmountMismatch.WithDetail(
			fmt.Sprintf("expected %s, got %s", present.Price.StringFixed(2), amount.StringFixed(2)))
	}

	now := s.now()
	token := uuid.NewString()
	expiresAt := now.Add(s.cfg.TTL)

	if _, err := s.presents.Update(ctx, present.ID, func(p *models.Present) error {
		return p.Claim(token, now, expiresAt)
	}); err != nil {
		if errors.Is(err, appErrors.ErrAlreadyReserved) {
			s.metrics.RecordPaymentCreated("conflict")
		}
		return nil, err
	}
	s.catalog.Invalidate(ctx)

	payerEmail := s.cfg.PayerFallbackEmail
	if validation.IsEmail(req.BuyerEmail) {
		payerEmail = req.BuyerEmail
	}

	var charge *gateway.Payment
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var callErr error
		charge, callErr = s.gateway.CreatePixPayment(ctx, gateway.CreatePixRequest{
			Amount:      amount,
			Description: req.Title,
			PayerEmail:  payerEmail,
			Metadata: map[string]string{
				"present_id":  present.ID,
				"claim_token": token,
			},
			ExternalReference: token,
			ExpiresAt:         expiresAt,
			NotificationURL:   s.cfg.NotificationURL,
			IdempotencyKey:    token,
		})
		return callErr
	})
	if err != nil {
		s.releaseClaim(ctx, present.ID, token)
		s.metrics.RecordPaymentCreated("gateway_error")
		s.logger.Error("gateway charge failed",
			zap.String("present_id", present.ID),
			zap.Error(err),
		)
		return nil, gatewayError(err)
	}

	qr := charge.QRData()
	if qr == nil || charge.ID == "" {
		s.releaseClaim(ctx, present.ID, token)
		s.metrics.RecordPaymentCreated("missing_qr")
		s.logger.Error("gateway response without PIX data, charge needs manual reconciliation",
			zap.String("payment_id", charge.ID.String()),
			zap.String("present_id", present.ID),
			zap.String("gateway_status", charge.Status),
		)
		return nil, appErrors.ErrMissingQRData
	}

	link := Linkage{
		PaymentID:   charge.ID.String(),
		PresentID:   present.ID,
		ClaimToken:  token,
		Title:       req.Title,
		Amount:      amount,
		PayerEmail:  payerEmail,
		QRCode:      qr.QRCode,
		QRCodeImage: qr.QRCodeBase64,
		ExpiresAt:   expiresAt,
	}
	s.linkOrEnqueue(ctx, link, charge.Raw)

	s.metrics.RecordPaymentCreated("ok")
	s.logger.Info("payment created",
		zap.String("payment_id", link.PaymentID),
		zap.String("present_id", present.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.Time("expires_at", expiresAt),
	)

	return &models.CreatePaymentResponse{
		PaymentID: link.PaymentID,
		QRCode:    qr.QRCode,
		QRBase64:  qr.QRCodeBase64,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func gatewayError(err error) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return appErrors.ErrGateway.WithDetail(gwErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return appErrors.ErrGateway.WithDetail("gateway timeout")
	}
	return appErrors.ErrGateway.WithDetail(err.Error())
}

// releaseClaim frees the present after a failed charge. It outlives the
// request context so a disconnecting client does not leave a stale claim.
func (s *service) releaseClaim(ctx context.Context, presentID, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		_, err := s.presents.Update(ctx, presentID, func(p *models.Present) error {
			if !p.ReleaseClaim(token, s.now()) {
				return repositories.ErrNoChange
			}
			return nil
		})
		return err
	})
	if err != nil {
		s.logger.Error("failed to release claim, it will lapse at expiry",
			zap.String("present_id", presentID),
			zap.Error(err),
		)
		return
	}
	s.catalog.Invalidate(ctx)
}

func (s *service) linkOrEnqueue(ctx context.Context, link Linkage, raw map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		return s.link(ctx, link, raw)
	})
	if err == nil {
		return
	}

	if errors.Is(err, appErrors.ErrClaimLost) {
		s.logger.Warn("claim lost before charge was linked",
			zap.String("payment_id", link.PaymentID),
			zap.String("present_id", link.PresentID),
		)
		return
	}

	s.metrics.RecordPaymentCreated("linkage_deferred")
	if qErr := s.cache.Push(ctx, cachekeys.LinkageQueueKey(), link); qErr != nil {
		s.logger.Error("failed to link charge and to enqueue retry, manual repair needed",
			zap.String("payment_id", link.PaymentID),
			zap.String("present_id", link.PresentID),
			zap.String("claim_token", link.ClaimToken),
			zap.String("title", link.Title),
			zap.String("amount", link.Amount.StringFixed(2)),
			zap.String("payer_email", link.PayerEmail),
			zap.Time("expires_at", link.ExpiresAt),
			zap.NamedError("link_error", err),
			zap.NamedError("queue_error", qErr),
		)
		return
	}
	s.logger.Warn("charge linkage deferred to retry queue",
		zap.String("payment_id", link.PaymentID),
		zap.String("present_id", link.PresentID),
		zap.Error(err),
	)
}

// link writes the payment record and attaches the charge to the claim.
// Both writes are idempotent so the whole step can be retried.
func (s *service) link(ctx context.Context, link Linkage, raw map[string]interface{}) error {
	now := s.now()

	_, err := s.payments.Upsert(ctx, link.PaymentID, func(p *models.Payment) error {
		if p.Status == "" {
			p.Status = models.PaymentStatusPending
		}
		if p.PresentID == "" {
			p.PresentID = link.PresentID
		}
		p.ClaimToken = link.ClaimToken
		p.Title = link.Title
		p.Amount = link.Amount
		p.PayerEmail = link.PayerEmail
		p.QRCode = link.QRCode
		p.ExpiresAt = link.ExpiresAt
		if p.RawResponse == nil && raw != nil {
			p.RawResponse = models.JSON(raw)
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("write payment record: %w", err)
	}

	_, err = s.presents.Update(ctx, link.PresentID, func(p *models.Present) error {
		return p.AttachCharge(link.ClaimToken, models.ChargeLink{
			PaymentID:   link.PaymentID,
			QRCode:      link.QRCode,
			QRCodeImage: link.QRCodeImage,
		}, now)
	})
	if err != nil {
		return fmt.Errorf("attach charge to present: %w", err)
	}
	s.catalog.Invalidate(ctx)
	return nil
}

func (s *service) DrainLinkageQueue(ctx context.Context) (int, error) {
	linked := 0
	for i := 0; i < drainBatch; i++ {
		var link Linkage
		found, err := s.cache.Pop(ctx, cachekeys.LinkageQueueKey(), &link)
		if err != nil {
			return linked, fmt.Errorf("pop linkage: %w", err)
		}
		if !found {
			return linked, nil
		}

		err = s.link(ctx, link, nil)
		switch {
		case err == nil:
			linked++
			s.logger.Info("deferred charge linked",
				zap.String("payment_id", link.PaymentID),
				zap.String("present_id", link.PresentID),
			)
		case errors.Is(err, appErrors.ErrClaimLost):
			s.logger.Warn("dropping deferred linkage, claim lost",
				zap.String("payment_id", link.PaymentID),
				zap.String("present_id", link.PresentID),
			)
		case link.Attempts+1 >= maxLinkageAttempts:
			s.logger.Error("giving up on deferred linkage, manual repair needed",
				zap.String("payment_id", link.PaymentID),
				zap.String("present_id", link.PresentID),
				zap.String("claim_token", link.ClaimToken),
				zap.Error(err),
			)
		default:
			link.Attempts++
			if qErr := s.cache.Push(ctx, cachekeys.LinkageQueueKey(), link); qErr != nil {
				s.logger.Error("failed to requeue linkage",
					zap.String("payment_id", link.PaymentID),
					zap.NamedError("queue_error", qErr),
				)
			}
			// the store is still failing, try again next sweep
			return linked, err
		}
	}
	return linked, nil
}

func (s *service) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = p.EffectiveStatus(s.now())
	return p, nil
}

func (s *service) ListPayments(ctx context.Context, status string) ([]models.Payment, error) {
	payments, err := s.payments.List(ctx, models.PaymentFilter{Status: status})
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range payments {
		payments[i].Status = payments[i].EffectiveStatus(now)
	}
	return payments, nil
}
