// Package memory is an in-process store used for local development and as
// the fake backend in tests. All repositories share one mutex so every
// Update is atomic with respect to every other call.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"casamento/internal/config"
	appErrors "casamento/internal/errors"
	"casamento/internal/models"
	"casamento/internal/repositories"

	"github.com/google/uuid"
)

type Store struct {
	mu       sync.Mutex
	presents map[string]models.Present
	payments map[string]models.Payment
	invites  map[string]models.Invite
	messages []models.Message
	now      func() time.Time
}

func New() *Store {
	return &Store{
		presents: make(map[string]models.Present),
		payments: make(map[string]models.Payment),
		invites:  make(map[string]models.Invite),
		now:      time.Now,
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repositories.Store {
	return &repositories.Store{
		Presents: (*presentRepo)(s),
		Payments: (*paymentRepo)(s),
		Invites:  (*inviteRepo)(s),
		Messages: (*messageRepo)(s),
		Driver:   config.StoreMemory,
	}
}

type presentRepo Store

func (r *presentRepo) List(ctx context.Context) ([]models.Present, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Present, 0, len(r.presents))
	for _, p := range r.presents {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *presentRepo) GetByID(ctx context.Context, id string) (*models.Present, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.presents[id]
	if !ok {
		return nil, appErrors.ErrPresentNotFound
	}
	return &p, nil
}

func (r *presentRepo) FindByPaymentID(ctx context.Context, paymentID string) (*models.Present, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.presents {
		if paymentID != "" && p.Payment.PaymentID == paymentID {
			return &p, nil
		}
	}
	return nil, appErrors.ErrPresentNotFound
}

func (r *presentRepo) Create(ctx context.Context, present *models.Present) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if present.ID == "" {
		present.ID = uuid.NewString()
	}
	if _, exists := r.presents[present.ID]; exists {
		return errors.New("present already exists")
	}
	now := r.now()
	present.CreatedAt, present.UpdatedAt = now, now
	r.presents[present.ID] = *present
	return nil
}

func (r *presentRepo) Update(ctx context.Context, id string, fn func(p *models.Present) error) (*models.Present, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.presents[id]
	if !ok {
		return nil, appErrors.ErrPresentNotFound
	}
	if err := fn(&p); err != nil {
		if errors.Is(err, repositories.ErrNoChange) {
			current := r.presents[id]
			return &current, nil
		}
		return nil, err
	}
	p.UpdatedAt = r.now()
	r.presents[id] = p
	return &p, nil
}

type paymentRepo Store

func (r *paymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, appErrors.ErrPaymentNotFound
	}
	return clonePayment(p), nil
}

func (r *paymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Payment
	for _, p := range r.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.NonTerminal && models.IsTerminal(p.Status) {
			continue
		}
		if !filter.ExpiresBefore.IsZero() && !p.ExpiresAt.Before(filter.ExpiresBefore) {
			continue
		}
		if !filter.CreatedBefore.IsZero() && !p.CreatedAt.Before(filter.CreatedBefore) {
			continue
		}
		out = append(out, *clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *paymentRepo) Upsert(ctx context.Context, id string, fn func(p *models.Payment) error) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.payments[id]
	p := models.Payment{ID: id}
	if exists {
		p = *clonePayment(current)
	}
	if err := fn(&p); err != nil {
		if errors.Is(err, repositories.ErrNoChange) {
			return &p, nil
		}
		return nil, err
	}

	now := r.now()
	if !exists && p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	r.payments[id] = *clonePayment(p)
	return &p, nil
}

func clonePayment(p models.Payment) *models.Payment {
	if p.RawResponse != nil {
		raw := make(models.JSON, len(p.RawResponse))
		for k, v := range p.RawResponse {
			raw[k] = v
		}
		p.RawResponse = raw
	}
	return &p
}

type inviteRepo Store

func cloneInvite(i models.Invite) *models.Invite {
	i.Members = append([]string(nil), i.Members...)
	return &i
}

func (r *inviteRepo) find(match func(models.Invite) bool) (*models.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, i := range r.invites {
		if match(i) {
			return cloneInvite(i), nil
		}
	}
	return nil, appErrors.ErrInviteNotFound
}

func (r *inviteRepo) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	return r.find(func(i models.Invite) bool { return i.ID == id })
}

func (r *inviteRepo) FindByPIN(ctx context.Context, pin string) (*models.Invite, error) {
	return r.find(func(i models.Invite) bool { return pin != "" && i.PIN == pin })
}

func (r *inviteRepo) FindByName(ctx context.Context, nameLower string) (*models.Invite, error) {
	return r.find(func(i models.Invite) bool { return nameLower != "" && i.NameLower == nameLower })
}

func (r *inviteRepo) List(ctx context.Context) ([]models.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Invite, 0, len(r.invites))
	for _, i := range r.invites {
		out = append(out, *cloneInvite(i))
	}
	sort.Slice(out, func(a, b int) bool { return strings.Compare(out[a].Name, out[b].Name) < 0 })
	return out, nil
}

func (r *inviteRepo) Create(ctx context.Context, invite *models.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if invite.ID == "" {
		invite.ID = uuid.NewString()
	}
	invite.NameLower = models.NormalizeName(invite.Name)
	if invite.Status == "" {
		invite.Status = models.InviteStatusPending
	}
	now := r.now()
	invite.CreatedAt, invite.UpdatedAt = now, now
	r.invites[invite.ID] = *cloneInvite(*invite)
	return nil
}

func (r *inviteRepo) Update(ctx context.Context, id string, fn func(i *models.Invite) error) (*models.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.invites[id]
	if !ok {
		return nil, appErrors.ErrInviteNotFound
	}
	i := cloneInvite(current)
	if err := fn(i); err != nil {
		if errors.Is(err, repositories.ErrNoChange) {
			return cloneInvite(current), nil
		}
		return nil, err
	}
	i.UpdatedAt = r.now()
	r.invites[id] = *cloneInvite(*i)
	return i, nil
}

type messageRepo Store

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.now()
	}
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *messageRepo) List(ctx context.Context, offset, limit int) ([]models.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := append([]models.Message(nil), r.messages...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	total := int64(len(sorted))
	if offset >= len(sorted) {
		return []models.Message{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], total, nil
}
