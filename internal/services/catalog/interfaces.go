package catalog

import (
	"context"
	"io"
	"time"

	"casamento/internal/models"
)

// Service serves the gift registry to the public site and the admin.
type Service interface {
	ListPresents(ctx context.Context) ([]PresentView, error)
	GetPresent(ctx context.Context, id string) (*PresentView, error)
	CreatePresent(ctx context.Context, req *models.NewPresentRequest, image *Image) (*models.Present, error)
	Invalidate(ctx context.Context)
}

// Image is an optional upload attached to a new present.
type Image struct {
	Filename string
	Content  io.Reader
}

// PresentView is a present as clients see it: lazy expiry applied and the
// availability precomputed.
type PresentView struct {
	models.Present
	Available bool `json:"available"`
}

func NewPresentView(p models.Present, now time.Time) PresentView {
	available := p.Available(now)
	p.Payment.Status = p.EffectivePaymentStatus(now)
	return PresentView{Present: p, Available: available}
}
