package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	appErrors "casamento/internal/errors"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type httpErr int

func (e httpErr) Error() string        { return fmt.Sprintf("status %d", int(e)) }
func (e httpErr) HTTPStatusCode() int { return int(e) }

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", httpErr(503), true},
		{"rate limited", fmt.Errorf("create: %w", httpErr(429)), true},
		{"bad request", httpErr(400), false},
		{"unauthorized", httpErr(401), false},
		{"domain error", appErrors.ErrAlreadyReserved, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"firestore unavailable", status.Error(codes.Unavailable, "down"), true},
		{"firestore not found", status.Error(codes.NotFound, "missing"), false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return httpErr(500)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanent(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		calls++
		return httpErr(400)
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, httpErr(400), err)
}

func TestDoBoundedAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		return httpErr(502)
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, httpErr(502), err)
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastPolicy(3), func(ctx context.Context) error {
		calls++
		return httpErr(500)
	})

	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}
