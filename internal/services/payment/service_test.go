package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appErrors "casamento/internal/errors"
	"casamento/internal/metrics"
	"casamento/internal/models"
	"casamento/internal/repositories"
	"casamento/internal/repositories/cache"
	"casamento/internal/repositories/memory"
	"casamento/internal/services/gateway"
	cachekeys "casamento/internal/utils/cache"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePixPayment(ctx context.Context, req gateway.CreatePixRequest) (*gateway.Payment, error) {
	args := m.Called(req)
	p, _ := args.Get(0).(*gateway.Payment)
	return p, args.Error(1)
}

func (m *MockGateway) GetPayment(ctx context.Context, id string) (*gateway.Payment, error) {
	args := m.Called(id)
	p, _ := args.Get(0).(*gateway.Payment)
	return p, args.Error(1)
}

type countingCatalog struct {
	mu    sync.Mutex
	calls int
}

func (c *countingCatalog) Invalidate(context.Context) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

// flakyPayments fails every Upsert while down is set.
type flakyPayments struct {
	repositories.PaymentRepository
	mu   sync.Mutex
	down bool
}

func (f *flakyPayments) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *flakyPayments) Upsert(ctx context.Context, id string, fn func(p *models.Payment) error) (*models.Payment, error) {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return nil, context.DeadlineExceeded
	}
	return f.PaymentRepository.Upsert(ctx, id, fn)
}

type fixture struct {
	svc      *service
	repos    *repositories.Store
	gw       *MockGateway
	cache    *cache.Memory
	payments *flakyPayments
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.New().Repositories()
	require.NoError(t, repos.Presents.Create(context.Background(), &models.Present{
		ID:    "g123",
		Name:  "Liquidificador",
		Price: decimal.RequireFromString("150.00"),
	}))

	f := &fixture{
		repos:    repos,
		gw:       new(MockGateway),
		cache:    cache.NewMemory(),
		payments: &flakyPayments{PaymentRepository: repos.Payments},
	}
	svc := NewService(repos.Presents, f.payments, f.gw, f.cache, &countingCatalog{}, Config{
		TTL:                  time.Hour,
		PayerFallbackEmail:   "convidado@casamento.com",
		RetryMaxAttempts:     3,
		RetryInitialInterval: time.Millisecond,
	}, metrics.Noop{}, zap.NewNop())
	f.svc = svc.(*service)
	return f
}

func pixCharge(id string) *gateway.Payment {
	return &gateway.Payment{
		ID:     gateway.ID(id),
		Status: "pending",
		PointOfInteraction: &gateway.PointOfInteraction{
			TransactionData: &gateway.TransactionData{QRCode: "00020126pix", QRCodeBase64: "iVBORw0KGgo"},
		},
		Raw: map[string]interface{}{"id": id, "status": "pending"},
	}
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validRequest() *models.CreatePaymentRequest {
	return &models.CreatePaymentRequest{Title: "Liquidificador", Amount: amount("150.00"), PresentID: "g123"}
}

func TestCreatePayment_Success(t *testing.T) {
	f := newFixture(t)
	f.gw.On("CreatePixPayment", mock.MatchedBy(func(req gateway.CreatePixRequest) bool {
		return req.Metadata["present_id"] == "g123" &&
			req.Metadata["claim_token"] != "" &&
			req.ExternalReference == req.Metadata["claim_token"] &&
			req.IdempotencyKey == req.ExternalReference &&
			req.PayerEmail == "convidado@casamento.com" &&
			req.Amount.Equal(decimal.RequireFromString("150"))
	})).Return(pixCharge("P1"), nil).Once()

	resp, err := f.svc.CreatePayment(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "P1", resp.PaymentID)
	assert.Equal(t, "00020126pix", resp.QRCode)
	assert.Equal(t, "iVBORw0KGgo", resp.QRBase64)
	assert.NotEmpty(t, resp.ExpiresAt)

	present, err := f.repos.Presents.GetByID(context.Background(), "g123")
	require.NoError(t, err)
	assert.Equal(t, "P1", present.Payment.PaymentID)
	assert.Equal(t, models.PaymentStatusPending, present.Payment.Status)
	assert.False(t, present.Reserved)

	record, err := f.repos.Payments.GetByID(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "g123", record.PresentID)
	assert.Equal(t, models.PaymentStatusPending, record.Status)
	assert.Equal(t, "pending", record.RawResponse["status"])

	f.gw.AssertExpectations(t)
}

func TestCreatePayment_BuyerEmail(t *testing.T) {
	f := newFixture(t)
	f.gw.On("CreatePixPayment", mock.MatchedBy(func(req gateway.CreatePixRequest) bool {
		return req.PayerEmail == "ana@example.com"
	})).Return(pixCharge("P1"), nil).Once()

	req := validRequest()
	req.BuyerEmail = "ana@example.com"
	_, err := f.svc.CreatePayment(context.Background(), req)
	require.NoError(t, err)
	f.gw.AssertExpectations(t)
}

func TestCreatePayment_RejectedBeforeGateway(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.CreatePaymentRequest)
		wantErr error
	}{
		{"missing amount", func(r *models.CreatePaymentRequest) { r.Amount = nil }, appErrors.ErrValidation},
		{"negative amount", func(r *models.CreatePaymentRequest) { r.Amount = amount("-1") }, appErrors.ErrValidation},
		{"missing present", func(r *models.CreatePaymentRequest) { r.PresentID = "" }, appErrors.ErrValidation},
		{"unknown present", func(r *models.CreatePaymentRequest) { r.PresentID = "nope" }, appErrors.ErrPresentNotFound},
		{"amount mismatch", func(r *models.CreatePaymentRequest) { r.Amount = amount("1.00") }, appErrors.ErrAmountMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest()
			tt.mutate(req)

			_, err := f.svc.CreatePayment(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
			f.gw.AssertNumberOfCalls(t, "CreatePixPayment", 0)

			present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
			assert.Empty(t, present.Payment.Status)
		})
	}
}

func TestCreatePayment_AlreadyReserved(t *testing.T) {
	f := newFixture(t)
	f.gw.On("CreatePixPayment", mock.Anything).Return(pixCharge("P1"), nil).Once()

	_, err := f.svc.CreatePayment(context.Background(), validRequest())
	require.NoError(t, err)

	_, err = f.svc.CreatePayment(context.Background(), validRequest())
	assert.ErrorIs(t, err, appErrors.ErrAlreadyReserved)
	f.gw.AssertNumberOfCalls(t, "CreatePixPayment", 1)
}

func TestCreatePayment_ConcurrentOneWins(t *testing.T) {
	f := newFixture(t)
	f.gw.On("CreatePixPayment", mock.Anything).Return(pixCharge("P1"), nil)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreatePayment(context.Background(), validRequest())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, appErrors.ErrAlreadyReserved)
		}
	}
	assert.Equal(t, 1, succeeded)
	f.gw.AssertNumberOfCalls(t, "CreatePixPayment", 1)
}

func TestCreatePayment_GatewayFailureReleasesClaim(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"server errors are retried", &gateway.Error{StatusCode: 500, Message: "internal"}, 3},
		{"client errors are not retried", &gateway.Error{StatusCode: 400, Message: "invalid payer"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.gw.On("CreatePixPayment", mock.Anything).Return(nil, tt.err)

			_, err := f.svc.CreatePayment(context.Background(), validRequest())
			assert.ErrorIs(t, err, appErrors.ErrGateway)

			var domainErr *appErrors.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, 500, domainErr.HTTPStatus())
			assert.Equal(t, tt.err.(*gateway.Error).Message, domainErr.Detail)
			f.gw.AssertNumberOfCalls(t, "CreatePixPayment", tt.wantCalls)

			present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
			assert.True(t, present.Available(time.Now()))
		})
	}
}

func TestCreatePayment_MissingQRData(t *testing.T) {
	f := newFixture(t)
	f.gw.On("CreatePixPayment", mock.Anything).Return(&gateway.Payment{ID: "P9", Status: "pending"}, nil)

	_, err := f.svc.CreatePayment(context.Background(), validRequest())
	assert.ErrorIs(t, err, appErrors.ErrMissingQRData)

	present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
	assert.True(t, present.Available(time.Now()))
	_, err = f.repos.Payments.GetByID(context.Background(), "P9")
	assert.ErrorIs(t, err, appErrors.ErrPaymentNotFound)
}

func TestCreatePayment_LinkageDeferred(t *testing.T) {
	f := newFixture(t)
	f.gw.On("CreatePixPayment", mock.Anything).Return(pixCharge("P1"), nil)
	f.payments.setDown(true)

	resp, err := f.svc.CreatePayment(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "P1", resp.PaymentID)
	assert.Equal(t, 1, f.cache.Len(cachekeys.LinkageQueueKey()))

	// a failing drain puts the item back
	linked, err := f.svc.DrainLinkageQueue(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, linked)
	assert.Equal(t, 1, f.cache.Len(cachekeys.LinkageQueueKey()))

	f.payments.setDown(false)
	linked, err = f.svc.DrainLinkageQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, linked)
	assert.Equal(t, 0, f.cache.Len(cachekeys.LinkageQueueKey()))

	present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
	assert.Equal(t, "P1", present.Payment.PaymentID)
	record, err := f.repos.Payments.GetByID(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "g123", record.PresentID)
}

func TestGetPaymentLazyExpiry(t *testing.T) {
	f := newFixture(t)
	_, err := f.repos.Payments.Upsert(context.Background(), "P1", func(p *models.Payment) error {
		p.Status = models.PaymentStatusPending
		p.ExpiresAt = time.Now().Add(-time.Minute)
		return nil
	})
	require.NoError(t, err)

	p, err := f.svc.GetPayment(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusExpired, p.Status)
}
