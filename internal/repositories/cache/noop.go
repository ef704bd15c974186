package cache

import (
	"context"
	"errors"
	"time"
)

// ErrDisabled is returned by queue writes when no Redis is configured.
var ErrDisabled = errors.New("cache disabled")

// Noop stands in when REDIS_HOST is empty: reads always miss and the
// linkage queue rejects pushes so callers fall back to logging.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (Noop) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (Noop) Delete(ctx context.Context, keys ...string) error { return nil }

func (Noop) Push(ctx context.Context, key string, value interface{}) error { return ErrDisabled }

func (Noop) Pop(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (Noop) HealthCheck(ctx context.Context) error { return nil }
