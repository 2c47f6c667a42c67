package service_test

import (
	"errors"
	"testing"

	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/service"
	"github.com/stretchr/testify/require"
)

func TestDashboard_SplitsByTypeAndTracksProgress(t *testing.T) {
	f := newFixture(t)
	f.question(t, "m1", question.TypeMandatory, true)
	f.question(t, "m2", question.TypeMandatory, true)
	f.question(t, "r1", question.TypeRecommended, true)
	f.question(t, "gone", question.TypeMandatory, false)
	p := f.applicant(t, "u1", "a@x.com")
	submitAll(t, f, p, []string{"m1"})

	d, err := service.NewCatalog(f.store, f.opts()...).Dashboard(f.ctx, p)
	require.NoError(t, err)
	require.Len(t, d.Mandatory, 2)
	require.Len(t, d.Recommended, 1)
	require.NotNil(t, d.Mandatory[0].Submission)
	require.Nil(t, d.Mandatory[1].Submission)
	require.Equal(t, 1, d.Progress.MandatoryCount)
	require.Equal(t, service.RequiredMandatory, d.Progress.Required)
}

func TestCreateQuestion_Validates(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t)
	cat := service.NewCatalog(f.store, f.opts()...)

	_, err := cat.CreateQuestion(f.ctx, admin, question.CreateRequest{Title: "", Link: "nope", Type: "OTHER", Difficulty: "EXTREME"})
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 4)

	q, err := cat.CreateQuestion(f.ctx, admin, question.CreateRequest{
		Title:      "Two Sum",
		Link:       "https://leetcode.com/problems/two-sum",
		Type:       question.TypeMandatory,
		Difficulty: question.DifficultyEasy,
	})
	require.NoError(t, err)
	require.True(t, q.Active)
	require.NotEmpty(t, q.ID)
}

func TestUpdateQuestion_NotFound(t *testing.T) {
	f := newFixture(t)
	title := "New title"

	_, err := service.NewCatalog(f.store, f.opts()...).UpdateQuestion(f.ctx, f.admin(t), "missing", question.UpdateRequest{Title: &title})
	require.ErrorIs(t, err, service.ErrQuestionNotFound)
}

func TestListQuestions_MandatoryFirst(t *testing.T) {
	f := newFixture(t)
	f.question(t, "r1", question.TypeRecommended, true)
	f.question(t, "m1", question.TypeMandatory, true)
	f.question(t, "m2", question.TypeMandatory, false)
	admin := f.admin(t)
	cat := service.NewCatalog(f.store, f.opts()...)

	active, err := cat.ListQuestions(f.ctx, admin, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "m1", active[0].ID)

	all, err := cat.ListQuestions(f.ctx, admin, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.question(t, "q1", question.TypeMandatory, true)
	f.question(t, "q2", question.TypeMandatory, false)
	p := f.applicant(t, "u1", "a@x.com")
	f.applicant(t, "u2", "b@x.com")
	submitAll(t, f, p, []string{"q1"})

	st, err := service.NewCatalog(f.store, f.opts()...).Stats(f.ctx, f.admin(t))
	require.NoError(t, err)
	require.Equal(t, service.Stats{TotalApplicants: 2, ActiveQuestions: 1, TotalSubmissions: 1}, st)
}
