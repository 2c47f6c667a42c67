package service_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/stretchr/testify/require"
)

func TestRank_OrdersBySubmissionsThenCreation(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"q1", "q2", "q3"} {
		f.question(t, id, question.TypeRecommended, true)
	}

	a := f.applicant(t, "ua", "a@x.com")
	b := f.applicant(t, "ub", "b@x.com")
	c := f.applicant(t, "uc", "c@x.com")
	f.applicant(t, "ud", "d@x.com")

	submitAll(t, f, a, []string{"q1", "q2"})
	submitAll(t, f, b, []string{"q1", "q2", "q3"})
	submitAll(t, f, c, []string{"q1", "q2"})

	admin := f.admin(t)
	rows, err := service.NewRanking(f.store, f.opts()...).Rank(f.ctx, admin)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	got := make([]string, 0, len(rows))
	for _, r := range rows {
		got = append(got, r.UserID)
	}
	require.Equal(t, []string{"ub", "ua", "uc", "ud"}, got)
	require.Equal(t, 1, rows[0].Rank)
	require.Equal(t, 3, rows[0].TotalSubmissions)
	require.Equal(t, 4, rows[3].Rank)
	require.Equal(t, 0, rows[3].TotalSubmissions)
}

func TestRank_AdminOnly(t *testing.T) {
	f := newFixture(t)
	p := f.applicant(t, "u1", "a@x.com")

	_, err := service.NewRanking(f.store, f.opts()...).Rank(f.ctx, p)
	require.ErrorIs(t, err, service.ErrForbidden)
}

func TestWriteRankingCSV(t *testing.T) {
	var buf bytes.Buffer
	err := service.WriteRankingCSV(&buf, []service.RankedApplicant{
		{Rank: 1, Name: "Ada, L.", Email: "a@x.com", TotalSubmissions: 16, Finalized: true},
		{Rank: 2, Name: "Bob", Email: "b@x.com", TotalSubmissions: 3},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"Rank,Name,Email,Total Submissions,Finalized",
		`1,"Ada, L.",a@x.com,16,Yes`,
		"2,Bob,b@x.com,3,No",
	}, lines)
}
