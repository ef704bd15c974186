package repositories

import (
	"context"
	"time"
)

// Cache is the key/value and queue surface used by the services. A Redis
// backed implementation lives in the cache package, along with a no-op one
// for deployments without Redis.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Push(ctx context.Context, key string, value interface{}) error
	Pop(ctx context.Context, key string, dest interface{}) (bool, error)
	HealthCheck(ctx context.Context) error
}
