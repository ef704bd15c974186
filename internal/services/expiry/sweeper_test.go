package expiry

import (
	"context"
	"errors"
	"testing"
	"time"

	"casamento/internal/metrics"
	"casamento/internal/models"
	"casamento/internal/repositories"
	"casamento/internal/repositories/memory"
	"casamento/internal/services/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, paymentID string) (webhook.Outcome, error) {
	args := m.Called(paymentID)
	return args.Get(0).(webhook.Outcome), args.Error(1)
}

type stubDrainer struct {
	linked int
	err    error
	calls  int
}

func (d *stubDrainer) DrainLinkageQueue(context.Context) (int, error) {
	d.calls++
	return d.linked, d.err
}

type noopCatalog struct{ calls int }

func (c *noopCatalog) Invalidate(context.Context) { c.calls++ }

type fixture struct {
	sweeper    *sweeper
	repos      *repositories.Store
	reconciler *MockReconciler
	drainer    *stubDrainer
	catalog    *noopCatalog
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repos:      memory.New().Repositories(),
		reconciler: new(MockReconciler),
		drainer:    &stubDrainer{},
		catalog:    &noopCatalog{},
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	s := NewSweeper(f.repos.Presents, f.repos.Payments, f.reconciler, f.drainer, f.catalog, Config{
		Interval:  time.Minute,
		PollAfter: 10 * time.Minute,
	}, metrics.Noop{}, zap.NewNop())
	f.sweeper = s.(*sweeper)
	f.sweeper.now = func() time.Time { return f.now }
	return f
}

// seed creates a present claimed by paymentID at createdAt.
func (f *fixture) seed(t *testing.T, presentID, paymentID string, createdAt time.Time, ttl time.Duration) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.repos.Presents.Create(ctx, &models.Present{ID: presentID, Name: presentID}))
	_, err := f.repos.Presents.Update(ctx, presentID, func(p *models.Present) error {
		if err := p.Claim("tok-"+paymentID, createdAt, createdAt.Add(ttl)); err != nil {
			return err
		}
		return p.AttachCharge("tok-"+paymentID, models.ChargeLink{PaymentID: paymentID}, createdAt)
	})
	require.NoError(t, err)
	_, err = f.repos.Payments.Upsert(ctx, paymentID, func(p *models.Payment) error {
		p.PresentID = presentID
		p.Status = models.PaymentStatusPending
		p.CreatedAt = createdAt
		p.ExpiresAt = createdAt.Add(ttl)
		return nil
	})
	require.NoError(t, err)
}

func TestRunOnce_ExpiresStalePayments(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "old", "P1", f.now.Add(-2*time.Hour), time.Hour)
	f.seed(t, "fresh", "P2", f.now.Add(-time.Minute), time.Hour)

	report, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, 0, report.Polled)

	record, _ := f.repos.Payments.GetByID(context.Background(), "P1")
	assert.Equal(t, models.PaymentStatusExpired, record.Status)
	present, _ := f.repos.Presents.GetByID(context.Background(), "old")
	assert.Equal(t, models.PaymentStatusExpired, present.Payment.Status)
	assert.True(t, present.Available(f.now))

	present, _ = f.repos.Presents.GetByID(context.Background(), "fresh")
	assert.Equal(t, models.PaymentStatusPending, present.Payment.Status)
	assert.Equal(t, 1, f.catalog.calls)

	// a second sweep finds nothing to do
	report, err = f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
}

func TestRunOnce_PollsStalePendingPayments(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", "P1", f.now.Add(-20*time.Minute), time.Hour)
	f.seed(t, "b", "P2", f.now.Add(-time.Minute), time.Hour)
	f.seed(t, "c", "P3", f.now.Add(-2*time.Hour), time.Hour)
	f.reconciler.On("Reconcile", "P1").Return(webhook.OutcomeApplied, nil).Once()

	report, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Polled)
	assert.Equal(t, 1, report.Expired)
	f.reconciler.AssertExpectations(t)
	f.reconciler.AssertNotCalled(t, "Reconcile", "P2")
	f.reconciler.AssertNotCalled(t, "Reconcile", "P3")
}

// setGatewayStatus leaves the payment in a non-final gateway status that has
// no internal mapping.
func (f *fixture) setGatewayStatus(t *testing.T, presentID, paymentID, status string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.repos.Payments.Upsert(ctx, paymentID, func(p *models.Payment) error {
		require.True(t, p.ApplyStatus(status, status, nil, p.CreatedAt))
		return nil
	})
	require.NoError(t, err)
	_, err = f.repos.Presents.Update(ctx, presentID, func(p *models.Present) error {
		p.Payment.Status = status
		return nil
	})
	require.NoError(t, err)
}

func TestRunOnce_HandlesInProcessPayments(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", "P1", f.now.Add(-20*time.Minute), time.Hour)
	f.seed(t, "b", "P2", f.now.Add(-2*time.Hour), time.Hour)
	f.setGatewayStatus(t, "a", "P1", "in_process")
	f.setGatewayStatus(t, "b", "P2", "authorized")
	f.reconciler.On("Reconcile", "P1").Return(webhook.OutcomeUnchanged, nil).Once()

	report, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Polled)
	assert.Equal(t, 1, report.Expired)
	f.reconciler.AssertExpectations(t)

	record, _ := f.repos.Payments.GetByID(context.Background(), "P2")
	assert.Equal(t, models.PaymentStatusExpired, record.Status)
	present, _ := f.repos.Presents.GetByID(context.Background(), "b")
	assert.Equal(t, models.PaymentStatusExpired, present.Payment.Status)
	assert.True(t, present.Available(f.now))
}

func TestRunOnce_CollectsErrors(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", "P1", f.now.Add(-20*time.Minute), time.Hour)
	f.reconciler.On("Reconcile", "P1").Return(webhook.OutcomeError, errors.New("gateway down"))
	f.drainer.linked = 2
	f.drainer.err = errors.New("store down")

	report, err := f.sweeper.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway down")
	assert.Contains(t, err.Error(), "store down")
	assert.Equal(t, 0, report.Polled)
	assert.Equal(t, 2, report.Relinked)
	assert.Equal(t, 1, f.drainer.calls)
}

func TestRunOnce_DoesNotExpireAfterLateApproval(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "a", "P1", f.now.Add(-2*time.Hour), time.Hour)

	_, err := f.repos.Payments.Upsert(context.Background(), "P1", func(p *models.Payment) error {
		p.ApplyStatus(models.PaymentStatusPaid, "approved", nil, f.now)
		return nil
	})
	require.NoError(t, err)

	report, err := f.sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Expired)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.sweeper.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		f.sweeper.mu.Lock()
		defer f.sweeper.mu.Unlock()
		return f.drainer.calls >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
