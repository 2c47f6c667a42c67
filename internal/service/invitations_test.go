package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/applyhub/internal/domain/invitation"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/stretchr/testify/require"
)

func TestIssue_CreatesAndReuses(t *testing.T) {
	f := newFixture(t)
	inv := service.NewInvitations(f.store, f.opts()...)

	first, err := inv.Issue(f.ctx, "Ada <Ada@X.com>", 0)
	require.NoError(t, err)
	require.False(t, first.Existing)
	require.Equal(t, "ada@x.com", first.Invitation.Email)
	require.Len(t, first.Invitation.Token, invitation.CodeLength)
	require.True(t, first.Invitation.ExpiresAt.Equal(t0.Add(invitation.DefaultValidFor)))

	again, err := inv.Issue(f.ctx, "ada@x.com", time.Hour)
	require.NoError(t, err)
	require.True(t, again.Existing)
	require.Equal(t, first.Invitation.Token, again.Invitation.Token)
}

func TestIssue_RetriesOnCollision(t *testing.T) {
	f := newFixture(t)
	f.invitation(t, "AAAAAA", "other@x.com", time.Hour)

	inv := service.NewInvitations(f.store, f.opts()...)
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	service.SetCodeGenerator(inv, func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	})

	res, err := inv.Issue(f.ctx, "a@x.com", time.Hour)
	require.NoError(t, err)
	require.Equal(t, "BBBBBB", res.Invitation.Token)
}

func TestIssue_GivesUpWhenCodesKeepColliding(t *testing.T) {
	f := newFixture(t)
	f.invitation(t, "AAAAAA", "other@x.com", time.Hour)

	inv := service.NewInvitations(f.store, f.opts()...)
	service.SetCodeGenerator(inv, func() (string, error) { return "AAAAAA", nil })

	_, err := inv.Issue(f.ctx, "a@x.com", time.Hour)
	require.ErrorIs(t, err, service.ErrCodeSpaceExhausted)
}

func TestIssue_RejectsBadEmail(t *testing.T) {
	f := newFixture(t)

	_, err := service.NewInvitations(f.store, f.opts()...).Issue(f.ctx, "not-an-email", time.Hour)
	require.ErrorIs(t, err, service.ErrValidation)
}

func TestIssue_GeneratorFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("entropy")

	inv := service.NewInvitations(f.store, f.opts()...)
	service.SetCodeGenerator(inv, func() (string, error) { return "", boom })

	_, err := inv.Issue(f.ctx, "a@x.com", time.Hour)
	require.ErrorIs(t, err, boom)
}
