package expiry

import (
	"context"
	"time"

	"casamento/internal/services/webhook"
)

// Report counts what a sweep did.
type Report struct {
	Expired  int `json:"expired"`
	Polled   int `json:"polled"`
	Relinked int `json:"relinked"`
}

// Sweeper repairs payment state that no request will touch again.
type Sweeper interface {
	// Run sweeps once immediately and then on every interval until ctx ends.
	Run(ctx context.Context)
	RunOnce(ctx context.Context) (Report, error)
}

// Reconciler re-fetches a payment at the gateway and applies it.
type Reconciler interface {
	Reconcile(ctx context.Context, paymentID string) (webhook.Outcome, error)
}

// LinkageDrainer retries charges whose store linkage was deferred.
type LinkageDrainer interface {
	DrainLinkageQueue(ctx context.Context) (int, error)
}

type CatalogCache interface {
	Invalidate(ctx context.Context)
}

type Config struct {
	Interval  time.Duration
	PollAfter time.Duration
	BatchSize int
}
