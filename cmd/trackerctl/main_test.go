package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/invitation"
	"github.com/geocoder89/applyhub/internal/repo/memory"
	"github.com/geocoder89/applyhub/internal/security"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/stretchr/testify/require"
)

func TestInvite_ReportsNewExistingAndFailed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Invitations().Create(ctx, invitation.Invitation{
		Token: "OLD123", Email: "old@x.com", ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now(),
	}))

	var out bytes.Buffer
	err := invite(ctx, service.NewInvitations(store), []string{"-days", "3", "old@x.com", "New@X.com", "not-an-email"}, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 of 3")

	got := out.String()
	require.Contains(t, got, "old@x.com\tOLD123\tEXISTING")
	require.Contains(t, got, "new@x.com\t")
	require.Contains(t, got, "\tNEW\t")
	require.Contains(t, got, "not-an-email\tFAILED")
}

func TestInvite_RequiresEmails(t *testing.T) {
	var out bytes.Buffer
	err := invite(context.Background(), service.NewInvitations(memory.NewStore()), []string{"-days", "2"}, &out)
	require.Error(t, err)
}

func TestPromote(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	accounts := service.NewAccounts(store, security.NewHasher())

	var out bytes.Buffer
	err := promote(ctx, accounts, []string{"-email", "ghost@x.com"}, &out)
	require.ErrorContains(t, err, "no account")

	err = promote(ctx, accounts, nil, &out)
	require.ErrorContains(t, err, "-email is required")
}
