package webhook

import (
	"context"
	"time"
)

// Outcome describes what handling a notification did.
type Outcome string

const (
	OutcomeIgnored    Outcome = "ignored"
	OutcomeNoID       Outcome = "no_id"
	OutcomeFinal      Outcome = "already_final"
	OutcomeUnknown    Outcome = "unknown_payment"
	OutcomeNoPresent  Outcome = "no_present"
	OutcomeApplied    Outcome = "applied"
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeError      Outcome = "error"
)

// Notification is an incoming gateway notification as received over HTTP.
type Notification struct {
	Body  []byte
	Query map[string]string
}

// Service reconciles gateway payment state into the store.
type Service interface {
	// HandleNotification acknowledges every notification it can parse.
	// Processing failures are logged and reported through the outcome only.
	HandleNotification(ctx context.Context, n Notification) (Outcome, error)

	// Reconcile re-fetches a payment at the gateway and applies its status.
	Reconcile(ctx context.Context, paymentID string) (Outcome, error)
}

// CatalogCache is invalidated after every present mutation.
type CatalogCache interface {
	Invalidate(ctx context.Context)
}

type Config struct {
	RetryMaxAttempts     int
	RetryInitialInterval time.Duration
	FinalMarkerTTL       time.Duration
}
