// Package firestoredb stores the registry in Cloud Firestore, in the
// collections the public site already reads: presents, payments, invites
// and recados.
package firestoredb

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"time"

	"casamento/internal/config"
	appErrors "casamento/internal/errors"
	"casamento/internal/models"
	"casamento/internal/repositories"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	presentsCollection     = "presents"
	paymentsCollection     = "payments"
	transactionsCollection = "transactions"
	invitesCollection      = "invites"
	messagesCollection     = "recados"

	presentPaymentIDPath = "payment.paymentId"
)

// NewClient builds a Firestore client from a base64 service account, a
// service account file, or application default credentials, in that order.
func NewClient(ctx context.Context, cfg config.FirestoreConfig) (*firestore.Client, error) {
	var opts []option.ClientOption
	switch {
	case cfg.ServiceAccount != "":
		creds, err := base64.StdEncoding.DecodeString(cfg.ServiceAccount)
		if err != nil {
			return nil, fmt.Errorf("failed to decode FIREBASE_SERVICE_ACCOUNT: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	case cfg.ServiceAccountFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ServiceAccountFile))
	}

	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

type Store struct {
	client *firestore.Client
	now    func() time.Time
}

func New(client *firestore.Client) *Store {
	return &Store{client: client, now: time.Now}
}

func (s *Store) Repositories() *repositories.Store {
	return &repositories.Store{
		Presents: (*presentRepo)(s),
		Payments: (*paymentRepo)(s),
		Invites:  (*inviteRepo)(s),
		Messages: (*messageRepo)(s),
		Driver:   config.StoreFirestore,
		Ping: func(ctx context.Context) error {
			_, err := s.client.Collection(presentsCollection).Limit(1).Documents(ctx).Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		},
		Close: s.client.Close,
	}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

type presentRepo Store

func (r *presentRepo) col() *firestore.CollectionRef {
	return r.client.Collection(presentsCollection)
}

func (r *presentRepo) List(ctx context.Context) ([]models.Present, error) {
	iter := r.col().Documents(ctx)
	defer iter.Stop()

	var out []models.Present
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list presents: %w", err)
		}
		var d presentDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode present %s: %w", snap.Ref.ID, err)
		}
		out = append(out, presentFromDoc(snap.Ref.ID, d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *presentRepo) GetByID(ctx context.Context, id string) (*models.Present, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.ErrPresentNotFound
		}
		return nil, fmt.Errorf("failed to get present: %w", err)
	}
	var d presentDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode present: %w", err)
	}
	p := presentFromDoc(id, d)
	return &p, nil
}

func (r *presentRepo) FindByPaymentID(ctx context.Context, paymentID string) (*models.Present, error) {
	if paymentID == "" {
		return nil, appErrors.ErrPresentNotFound
	}
	snap, err := r.col().Where(presentPaymentIDPath, "==", paymentID).Limit(1).Documents(ctx).Next()
	if errors.Is(err, iterator.Done) {
		return nil, appErrors.ErrPresentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find present by payment: %w", err)
	}
	var d presentDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode present: %w", err)
	}
	p := presentFromDoc(snap.Ref.ID, d)
	return &p, nil
}

func (r *presentRepo) Create(ctx context.Context, present *models.Present) error {
	ref := r.col().NewDoc()
	if present.ID != "" {
		ref = r.col().Doc(present.ID)
	}
	now := r.now()
	present.ID = ref.ID
	present.CreatedAt, present.UpdatedAt = now, now
	if _, err := ref.Create(ctx, presentToDoc(present)); err != nil {
		return fmt.Errorf("failed to create present: %w", err)
	}
	return nil
}

// Update runs fn inside a Firestore transaction; conflicting writers are
// retried by the client library.
func (r *presentRepo) Update(ctx context.Context, id string, fn func(p *models.Present) error) (*models.Present, error) {
	ref := r.col().Doc(id)
	var result models.Present

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return appErrors.ErrPresentNotFound
			}
			return err
		}
		var d presentDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}
		result = presentFromDoc(id, d)

		if err := fn(&result); err != nil {
			return err
		}
		result.UpdatedAt = r.now()
		return tx.Set(ref, presentToDoc(&result))
	})
	if errors.Is(err, repositories.ErrNoChange) {
		return &result, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type paymentRepo Store

func (r *paymentRepo) col() *firestore.CollectionRef {
	return r.client.Collection(paymentsCollection)
}

func (r *paymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	var d paymentDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode payment: %w", err)
	}
	p := paymentFromDoc(id, d)
	return &p, nil
}

func (r *paymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	query := r.col().Query
	if filter.Status != "" {
		query = query.Where("status", "==", filter.Status)
	}
	if !filter.ExpiresBefore.IsZero() {
		query = query.Where("expiresAt", "<", filter.ExpiresBefore)
	}
	// NonTerminal is filtered here: "not-in" cannot be combined with the
	// expiresAt range without another composite index.
	if filter.Limit > 0 && !filter.NonTerminal {
		query = query.Limit(filter.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []models.Payment
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list payments: %w", err)
		}
		var d paymentDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode payment %s: %w", snap.Ref.ID, err)
		}
		// a second range filter would need another composite index
		if !filter.CreatedBefore.IsZero() && !d.CreatedAt.Before(filter.CreatedBefore) {
			continue
		}
		p := paymentFromDoc(snap.Ref.ID, d)
		if filter.NonTerminal && models.IsTerminal(p.Status) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Upsert also mirrors the record under presents/{id}/transactions.
func (r *paymentRepo) Upsert(ctx context.Context, id string, fn func(p *models.Payment) error) (*models.Payment, error) {
	ref := r.col().Doc(id)
	var result models.Payment

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		exists := err == nil
		if err != nil && !isNotFound(err) {
			return err
		}

		result = models.Payment{ID: id}
		if exists {
			var d paymentDoc
			if err := snap.DataTo(&d); err != nil {
				return err
			}
			result = paymentFromDoc(id, d)
		}

		if err := fn(&result); err != nil {
			return err
		}
		now := r.now()
		if result.CreatedAt.IsZero() {
			result.CreatedAt = now
		}
		if result.UpdatedAt.IsZero() {
			result.UpdatedAt = now
		}

		doc := paymentToDoc(&result)
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		if result.PresentID == "" {
			return nil
		}
		mirror := r.client.Collection(presentsCollection).Doc(result.PresentID).
			Collection(transactionsCollection).Doc(id)
		return tx.Set(mirror, transactionFromPayment(doc))
	})
	if errors.Is(err, repositories.ErrNoChange) {
		return &result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert payment: %w", err)
	}
	return &result, nil
}

type inviteRepo Store

func (r *inviteRepo) col() *firestore.CollectionRef {
	return r.client.Collection(invitesCollection)
}

func (r *inviteRepo) GetByID(ctx context.Context, id string) (*models.Invite, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, appErrors.ErrInviteNotFound
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	var d inviteDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode invite: %w", err)
	}
	inv := inviteFromDoc(id, d)
	return &inv, nil
}

func (r *inviteRepo) findOne(ctx context.Context, field, value string) (*models.Invite, error) {
	if value == "" {
		return nil, appErrors.ErrInviteNotFound
	}
	snap, err := r.col().Where(field, "==", value).Limit(1).Documents(ctx).Next()
	if errors.Is(err, iterator.Done) {
		return nil, appErrors.ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	var d inviteDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode invite: %w", err)
	}
	inv := inviteFromDoc(snap.Ref.ID, d)
	return &inv, nil
}

func (r *inviteRepo) FindByPIN(ctx context.Context, pin string) (*models.Invite, error) {
	return r.findOne(ctx, "pin_convite", pin)
}

func (r *inviteRepo) FindByName(ctx context.Context, nameLower string) (*models.Invite, error) {
	return r.findOne(ctx, "nome_convite_lower", nameLower)
}

func (r *inviteRepo) List(ctx context.Context) ([]models.Invite, error) {
	iter := r.col().Documents(ctx)
	defer iter.Stop()

	var out []models.Invite
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list invites: %w", err)
		}
		var d inviteDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode invite %s: %w", snap.Ref.ID, err)
		}
		out = append(out, inviteFromDoc(snap.Ref.ID, d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *inviteRepo) Create(ctx context.Context, invite *models.Invite) error {
	ref := r.col().NewDoc()
	if invite.ID != "" {
		ref = r.col().Doc(invite.ID)
	}
	invite.ID = ref.ID
	invite.NameLower = models.NormalizeName(invite.Name)
	if invite.Status == "" {
		invite.Status = models.InviteStatusPending
	}
	now := r.now()
	invite.CreatedAt, invite.UpdatedAt = now, now
	if _, err := ref.Create(ctx, inviteToDoc(invite)); err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

func (r *inviteRepo) Update(ctx context.Context, id string, fn func(i *models.Invite) error) (*models.Invite, error) {
	ref := r.col().Doc(id)
	var result models.Invite

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return appErrors.ErrInviteNotFound
			}
			return err
		}
		var d inviteDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}
		result = inviteFromDoc(id, d)
		if err := fn(&result); err != nil {
			return err
		}
		result.UpdatedAt = r.now()
		return tx.Set(ref, inviteToDoc(&result))
	})
	if errors.Is(err, repositories.ErrNoChange) {
		return &result, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type messageRepo Store

func (r *messageRepo) Create(ctx context.Context, msg *models.Message) error {
	ref := r.client.Collection(messagesCollection).NewDoc()
	msg.ID = ref.ID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.now()
	}
	_, err := ref.Create(ctx, messageDoc{
		Name:    msg.Name,
		Email:   msg.Email,
		Message: msg.Message,
		Date:    msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *messageRepo) List(ctx context.Context, offset, limit int) ([]models.Message, int64, error) {
	col := r.client.Collection(messagesCollection)

	countResult, err := col.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}
	var total int64
	if v, ok := countResult["total"]; ok {
		if pv, ok := v.(interface{ GetIntegerValue() int64 }); ok {
			total = pv.GetIntegerValue()
		}
	}

	iter := col.OrderBy("data", firestore.Desc).Offset(offset).Limit(limit).Documents(ctx)
	defer iter.Stop()

	var out []models.Message
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list messages: %w", err)
		}
		var d messageDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, 0, fmt.Errorf("failed to decode message %s: %w", snap.Ref.ID, err)
		}
		out = append(out, models.Message{
			ID:        snap.Ref.ID,
			Name:      d.Name,
			Email:     d.Email,
			Message:   d.Message,
			CreatedAt: d.Date,
		})
	}
	return out, total, nil
}
