package webhook

import (
	"context"
	"testing"
	"time"

	appErrors "casamento/internal/errors"
	"casamento/internal/metrics"
	"casamento/internal/models"
	"casamento/internal/repositories"
	"casamento/internal/repositories/cache"
	"casamento/internal/repositories/memory"
	"casamento/internal/services/gateway"
	"casamento/internal/services/payment"
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

type countingCatalog struct{ calls int }

func (c *countingCatalog) Invalidate(context.Context) { c.calls++ }

type transitionCounter struct {
	metrics.Noop
	transitions map[string]int
}

func (c *transitionCounter) RecordStatusTransition(status string) { c.transitions[status]++ }

type fixture struct {
	svc     Service
	repos   *repositories.Store
	gw      *MockGateway
	cache   *cache.Memory
	catalog *countingCatalog
	metrics *transitionCounter
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
		repos:   repos,
		gw:      new(MockGateway),
		cache:   cache.NewMemory(),
		catalog: &countingCatalog{},
		metrics: &transitionCounter{transitions: map[string]int{}},
	}
	f.svc = NewService(repos.Presents, repos.Payments, f.gw, f.cache, f.catalog, Config{
		RetryMaxAttempts:     2,
		RetryInitialInterval: time.Millisecond,
	}, f.metrics, zap.NewNop())
	return f
}

// claim puts g123 in pending state linked to paymentID.
func (f *fixture) claim(t *testing.T, paymentID, token string) {
	t.Helper()
	now := time.Now()
	_, err := f.repos.Presents.Update(context.Background(), "g123", func(p *models.Present) error {
		if err := p.Claim(token, now, now.Add(time.Hour)); err != nil {
			return err
		}
		return p.AttachCharge(token, models.ChargeLink{PaymentID: paymentID, QRCode: "pix"}, now)
	})
	require.NoError(t, err)
	_, err = f.repos.Payments.Upsert(context.Background(), paymentID, func(p *models.Payment) error {
		p.PresentID = "g123"
		p.Status = models.PaymentStatusPending
		p.ExpiresAt = now.Add(time.Hour)
		return nil
	})
	require.NoError(t, err)
}

func charge(id, status string, metadata map[string]interface{}) *gateway.Payment {
	return &gateway.Payment{
		ID:       gateway.ID(id),
		Status:   status,
		Metadata: metadata,
		Raw:      map[string]interface{}{"id": id, "status": status},
	}
}

func notify(id string) Notification {
	return Notification{Body: []byte(`{"type":"payment","data":{"id":"` + id + `"}}`)}
}

func TestHandleNotification_ApprovedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.claim(t, "P1", "tok")
	f.gw.On("GetPayment", "P1").Return(charge("P1", "approved", map[string]interface{}{"present_id": "g123"}), nil)

	outcome, err := f.svc.HandleNotification(context.Background(), notify("P1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
	assert.Equal(t, models.PaymentStatusPaid, present.Payment.Status)
	assert.True(t, present.Reserved)
	record, _ := f.repos.Payments.GetByID(context.Background(), "P1")
	assert.Equal(t, models.PaymentStatusPaid, record.Status)
	assert.Equal(t, "approved", record.GatewayStatus)
	assert.Equal(t, 1, f.catalog.calls)
	assert.Equal(t, 1, f.metrics.transitions[models.PaymentStatusPaid])

	// the final marker short-circuits the duplicate
	outcome, err = f.svc.HandleNotification(context.Background(), notify("P1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinal, outcome)
	f.gw.AssertNumberOfCalls(t, "GetPayment", 1)

	// without the marker the duplicate is still a no-op
	require.NoError(t, f.cache.Delete(context.Background(), cachekeys.WebhookFinalKey("P1")))
	outcome, err = f.svc.HandleNotification(context.Background(), notify("P1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Equal(t, 1, f.catalog.calls)
	assert.Equal(t, 1, f.metrics.transitions[models.PaymentStatusPaid])
}

func TestHandleNotification_FailedStatusesCancel(t *testing.T) {
	for _, status := range []string{"rejected", "cancelled", "expired"} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t)
			f.claim(t, "P1", "tok")
			f.gw.On("GetPayment", "P1").Return(charge("P1", status, nil), nil).Once()
			f.gw.On("GetPayment", "P1").Return(charge("P1", "approved", nil), nil).Once()

			_, err := f.svc.HandleNotification(context.Background(), notify("P1"))
			require.NoError(t, err)

			present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
			assert.Equal(t, models.PaymentStatusCancelled, present.Payment.Status)
			assert.False(t, present.Reserved)

			// a later approval for a cancelled charge never reserves the gift
			require.NoError(t, f.cache.Delete(context.Background(), cachekeys.WebhookFinalKey("P1")))
			_, err = f.svc.HandleNotification(context.Background(), notify("P1"))
			require.NoError(t, err)
			present, _ = f.repos.Presents.GetByID(context.Background(), "g123")
			assert.Equal(t, models.PaymentStatusCancelled, present.Payment.Status)
			assert.False(t, present.Reserved)
		})
	}
}

func TestHandleNotification_NoMutation(t *testing.T) {
	tests := []struct {
		name  string
		n     Notification
		setup func(f *fixture)
		want  Outcome
	}{
		{
			name: "missing id",
			n:    Notification{Body: []byte(`{"action":"payment.created"}`)},
			want: OutcomeNoID,
		},
		{
			name: "other topic",
			n:    Notification{Body: []byte(`{"topic":"merchant_order","resource":"https://x/merchant_orders/1"}`)},
			want: OutcomeIgnored,
		},
		{
			name: "unknown at gateway",
			n:    notify("404"),
			setup: func(f *fixture) {
				f.gw.On("GetPayment", "404").Return(nil, &gateway.Error{StatusCode: 404, Message: "not found"})
			},
			want: OutcomeUnknown,
		},
		{
			name: "no linked present",
			n:    notify("P7"),
			setup: func(f *fixture) {
				f.gw.On("GetPayment", "P7").Return(charge("P7", "approved", nil), nil)
			},
			want: OutcomeNoPresent,
		},
		{
			name: "metadata names a missing present",
			n:    notify("P9"),
			setup: func(f *fixture) {
				f.gw.On("GetPayment", "P9").Return(charge("P9", "approved", map[string]interface{}{"present_id": "ghost"}), nil)
			},
			want: OutcomeNoPresent,
		},
		{
			name: "gateway down",
			n:    notify("P8"),
			setup: func(f *fixture) {
				f.gw.On("GetPayment", "P8").Return(nil, &gateway.Error{StatusCode: 503, Message: "unavailable"})
			},
			want: OutcomeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			outcome, err := f.svc.HandleNotification(context.Background(), tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)

			present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
			assert.Empty(t, present.Payment.Status)
			payments, _ := f.repos.Payments.List(context.Background(), models.PaymentFilter{})
			assert.Empty(t, payments)
			assert.Zero(t, f.catalog.calls)
		})
	}
}

func TestHandleNotification_FallsBackToDataID(t *testing.T) {
	f := newFixture(t)
	f.claim(t, "P1", "tok")
	f.gw.On("GetPayment", "12345").Return(nil, &gateway.Error{StatusCode: 404, Message: "not found"}).Once()
	f.gw.On("GetPayment", "P1").Return(charge("P1", "approved", map[string]interface{}{"present_id": "g123"}), nil).Once()

	outcome, err := f.svc.HandleNotification(context.Background(), Notification{
		Body: []byte(`{"id":12345,"type":"payment","data":{"id":"P1"}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)
	f.gw.AssertExpectations(t)

	present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
	assert.Equal(t, models.PaymentStatusPaid, present.Payment.Status)
	_, err = f.repos.Payments.GetByID(context.Background(), "12345")
	assert.ErrorIs(t, err, appErrors.ErrPaymentNotFound)
}

func TestHandleNotification_Malformed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.HandleNotification(context.Background(), Notification{Body: []byte("<xml/>")})
	assert.Error(t, err)
	f.gw.AssertNotCalled(t, "GetPayment", mock.Anything)
}

func TestHandleNotification_LocatesPresentByPaymentID(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	_, err := f.repos.Presents.Update(context.Background(), "g123", func(p *models.Present) error {
		if err := p.Claim("tok", now, now.Add(time.Hour)); err != nil {
			return err
		}
		return p.AttachCharge("tok", models.ChargeLink{PaymentID: "P1"}, now)
	})
	require.NoError(t, err)
	f.gw.On("GetPayment", "P1").Return(charge("P1", "approved", nil), nil)

	outcome, err := f.svc.HandleNotification(context.Background(), notify("P1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
	assert.True(t, present.Reserved)
	record, err := f.repos.Payments.GetByID(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "g123", record.PresentID)
}

func TestHandleNotification_BeforeLinkage(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	_, err := f.repos.Presents.Update(context.Background(), "g123", func(p *models.Present) error {
		return p.Claim("tok", now, now.Add(time.Hour))
	})
	require.NoError(t, err)
	f.gw.On("GetPayment", "P1").Return(charge("P1", "approved", map[string]interface{}{
		"present_id":  "g123",
		"claim_token": "tok",
	}), nil)

	outcome, err := f.svc.HandleNotification(context.Background(), notify("P1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
	assert.Equal(t, "P1", present.Payment.PaymentID)
	assert.Equal(t, models.PaymentStatusPaid, present.Payment.Status)
}

func TestHandleNotification_DoublePayment(t *testing.T) {
	f := newFixture(t)
	f.claim(t, "P2", "tok2")
	f.gw.On("GetPayment", "P1").Return(charge("P1", "approved", map[string]interface{}{"present_id": "g123"}), nil)

	outcome, err := f.svc.HandleNotification(context.Background(), notify("P1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuperseded, outcome)

	present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
	assert.Equal(t, "P2", present.Payment.PaymentID)
	assert.Equal(t, models.PaymentStatusPending, present.Payment.Status)
	record, err := f.repos.Payments.GetByID(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, record.Status)
}

func TestCreateThenApprove(t *testing.T) {
	f := newFixture(t)
	var token string
	f.gw.On("CreatePixPayment", mock.MatchedBy(func(req gateway.CreatePixRequest) bool {
		token = req.Metadata["claim_token"]
		return true
	})).Return(&gateway.Payment{
		ID:     "P1",
		Status: "pending",
		PointOfInteraction: &gateway.PointOfInteraction{
			TransactionData: &gateway.TransactionData{QRCode: "pix", QRCodeBase64: "img"},
		},
	}, nil)

	initiator := payment.NewService(f.repos.Presents, f.repos.Payments, f.gw, f.cache, f.catalog, payment.Config{
		TTL:                time.Hour,
		PayerFallbackEmail: "convidado@casamento.com",
	}, metrics.Noop{}, zap.NewNop())

	amount := decimal.RequireFromString("150.00")
	resp, err := initiator.CreatePayment(context.Background(), &models.CreatePaymentRequest{
		Title:     "Liquidificador",
		Amount:    &amount,
		PresentID: "g123",
	})
	require.NoError(t, err)
	require.Equal(t, "P1", resp.PaymentID)

	f.gw.On("GetPayment", "P1").Return(charge("P1", "approved", map[string]interface{}{
		"present_id":  "g123",
		"claim_token": token,
	}), nil)
	_, err = f.svc.HandleNotification(context.Background(), Notification{Body: []byte(`{"data":{"id":"P1"}}`)})
	require.NoError(t, err)

	present, _ := f.repos.Presents.GetByID(context.Background(), "g123")
	assert.Equal(t, models.PaymentStatusPaid, present.Payment.Status)
	assert.True(t, present.Reserved)
}
