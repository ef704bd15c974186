package rsvp

import (
	"context"
	"testing"

	appErrors "casamento/internal/errors"
	"casamento/internal/models"
	"casamento/internal/repositories"
	"casamento/internal/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (Service, *repositories.Store) {
	t.Helper()
	repos := memory.New().Repositories()
	require.NoError(t, repos.Invites.Create(context.Background(), &models.Invite{
		ID:        "inv-1",
		Name:      "Família Souza",
		PIN:       "4821",
		MaxGuests: 3,
		Members:   []string{"Ana", "Bruno", "Clara"},
	}))
	return NewService(repos.Invites, zap.NewNop()), repos
}

func intPtr(n int) *int { return &n }

func TestLookup(t *testing.T) {
	svc, _ := setup(t)

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"by pin", "4821", nil},
		{"by name any case", "  família SOUZA ", nil},
		{"unknown", "0000", appErrors.ErrInviteNotFound},
		{"empty", " ", appErrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invite, err := svc.Lookup(context.Background(), &models.InviteLookupRequest{Code: tt.code})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "inv-1", invite.ID)
		})
	}
}

func TestConfirm(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.Confirm(context.Background(), "inv-1", &models.InviteConfirmRequest{Guests: intPtr(4)})
	assert.ErrorIs(t, err, appErrors.ErrInvalidGuestCount)

	_, err = svc.Confirm(context.Background(), "inv-1", &models.InviteConfirmRequest{Guests: intPtr(0)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	invite, err := svc.Confirm(context.Background(), "inv-1", &models.InviteConfirmRequest{Guests: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusConfirmed, invite.Status)
	assert.Equal(t, 2, invite.ConfirmedGuests)
	assert.NotNil(t, invite.ConfirmedAt)

	_, err = svc.Confirm(context.Background(), "inv-1", &models.InviteConfirmRequest{})
	assert.ErrorIs(t, err, appErrors.ErrInviteAlreadyConfirmed)

	_, err = svc.Decline(context.Background(), "inv-1")
	assert.ErrorIs(t, err, appErrors.ErrInviteAlreadyConfirmed)

	invite, err = svc.Lookup(context.Background(), &models.InviteLookupRequest{Code: "4821"})
	assert.ErrorIs(t, err, appErrors.ErrInviteAlreadyConfirmed)
	require.NotNil(t, invite)
	assert.Equal(t, models.InviteStatusConfirmed, invite.Status)
}

func TestConfirmDefaultsToFullParty(t *testing.T) {
	svc, _ := setup(t)

	invite, err := svc.Confirm(context.Background(), "inv-1", &models.InviteConfirmRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, invite.ConfirmedGuests)
}

func TestDecline(t *testing.T) {
	svc, repos := setup(t)

	invite, err := svc.Decline(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusDeclined, invite.Status)

	stored, err := repos.Invites.GetByID(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, models.InviteStatusDeclined, stored.Status)

	_, err = svc.Decline(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrInviteNotFound)
}
