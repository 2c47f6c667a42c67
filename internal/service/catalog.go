package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/domain/submission"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/idx"
)

// QuestionStatus pairs an active question with the caller's submission, if any.
type QuestionStatus struct {
	Question   question.Question      `json:"question"`
	Submission *submission.Submission `json:"submission,omitempty"`
}

type Dashboard struct {
	User        user.User        `json:"user"`
	Mandatory   []QuestionStatus `json:"mandatory"`
	Recommended []QuestionStatus `json:"recommended"`
	Progress    Progress         `json:"progress"`
}

type Stats struct {
	TotalApplicants     int `json:"totalApplicants"`
	FinalizedApplicants int `json:"finalizedApplicants"`
	ActiveQuestions     int `json:"activeQuestions"`
	TotalSubmissions    int `json:"totalSubmissions"`
}

type Catalog struct {
	store Store
	options
}

func NewCatalog(store Store, opts ...Option) *Catalog {
	return &Catalog{store: store, options: buildOptions(opts)}
}

// Dashboard lists active questions with the applicant's submission status.
func (c *Catalog) Dashboard(ctx context.Context, p Principal) (Dashboard, error) {
	if err := Authorize(p, user.RoleApplicant); err != nil {
		return Dashboard{}, err
	}

	u, err := loadUser(ctx, c.store, p.UserID)
	if err != nil {
		return Dashboard{}, err
	}

	qs, err := c.store.Questions().List(ctx, false)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list questions: %w", err)
	}

	subs, err := c.store.Submissions().ListByUser(ctx, u.ID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("list submissions: %w", err)
	}

	byQuestion := make(map[string]submission.Submission, len(subs))
	for _, s := range subs {
		byQuestion[s.QuestionID] = s
	}

	question.SortByDifficulty(qs)

	d := Dashboard{
		User:        u,
		Mandatory:   make([]QuestionStatus, 0),
		Recommended: make([]QuestionStatus, 0),
	}

	for _, q := range qs {
		st := QuestionStatus{Question: q}
		if s, ok := byQuestion[q.ID]; ok {
			st.Submission = &s
		}

		if q.Type == question.TypeMandatory {
			d.Mandatory = append(d.Mandatory, st)
		} else {
			d.Recommended = append(d.Recommended, st)
		}
	}

	d.Progress, err = progressFor(ctx, c.store, u)
	if err != nil {
		return Dashboard{}, err
	}

	return d, nil
}

func (c *Catalog) ListQuestions(ctx context.Context, p Principal, includeInactive bool) ([]question.Question, error) {
	if err := Authorize(p, user.RoleAdmin); err != nil {
		return nil, err
	}

	qs, err := c.store.Questions().List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	question.SortForCatalog(qs)
	return qs, nil
}

func (c *Catalog) GetQuestion(ctx context.Context, p Principal, id string) (question.Question, error) {
	if err := Authorize(p, user.RoleAdmin); err != nil {
		return question.Question{}, err
	}

	return c.getQuestion(ctx, c.store, id)
}

func (c *Catalog) CreateQuestion(ctx context.Context, p Principal, req question.CreateRequest) (question.Question, error) {
	if err := Authorize(p, user.RoleAdmin); err != nil {
		return question.Question{}, err
	}

	if err := validateCreateQuestion(req); err != nil {
		return question.Question{}, err
	}

	now := c.now()
	q := question.New(idx.NewAt(now), req, now)

	if err := c.store.Questions().Create(ctx, q); err != nil {
		return question.Question{}, fmt.Errorf("create question: %w", err)
	}

	c.log.InfoContext(ctx, "question created", slog.String("question_id", q.ID), slog.String("admin_id", p.UserID))
	return q, nil
}

func (c *Catalog) UpdateQuestion(ctx context.Context, p Principal, id string, req question.UpdateRequest) (question.Question, error) {
	if err := Authorize(p, user.RoleAdmin); err != nil {
		return question.Question{}, err
	}

	if err := validateUpdateQuestion(req); err != nil {
		return question.Question{}, err
	}

	var updated question.Question

	err := c.store.WithTx(ctx, func(tx Store) error {
		q, err := c.getQuestion(ctx, tx, id)
		if err != nil {
			return err
		}

		q.Apply(req, c.now())
		if err := tx.Questions().Update(ctx, q); err != nil {
			return fmt.Errorf("update question: %w", err)
		}

		updated = q
		return nil
	})
	if err != nil {
		return question.Question{}, err
	}

	c.log.InfoContext(ctx, "question updated", slog.String("question_id", id), slog.String("admin_id", p.UserID))
	return updated, nil
}

// DeactivateQuestion is the only form of deletion. Existing submissions
// against the question keep counting.
func (c *Catalog) DeactivateQuestion(ctx context.Context, p Principal, id string) (question.Question, error) {
	inactive := false
	q, err := c.UpdateQuestion(ctx, p, id, question.UpdateRequest{Active: &inactive})
	if err != nil {
		return question.Question{}, err
	}

	c.log.InfoContext(ctx, "question deactivated", slog.String("question_id", id), slog.String("admin_id", p.UserID))
	return q, nil
}

func (c *Catalog) Stats(ctx context.Context, p Principal) (Stats, error) {
	if err := Authorize(p, user.RoleAdmin); err != nil {
		return Stats{}, err
	}

	total, finalized, err := c.store.Users().CountByRole(ctx, user.RoleApplicant)
	if err != nil {
		return Stats{}, fmt.Errorf("count applicants: %w", err)
	}

	active, err := c.store.Questions().List(ctx, false)
	if err != nil {
		return Stats{}, fmt.Errorf("list questions: %w", err)
	}

	subs, err := c.store.Submissions().CountAll(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count submissions: %w", err)
	}

	return Stats{
		TotalApplicants:     total,
		FinalizedApplicants: finalized,
		ActiveQuestions:     len(active),
		TotalSubmissions:    subs,
	}, nil
}

func (c *Catalog) getQuestion(ctx context.Context, store Store, id string) (question.Question, error) {
	q, err := store.Questions().Get(ctx, id)
	if err != nil {
		if errors.Is(err, question.ErrNotFound) {
			return question.Question{}, ErrQuestionNotFound
		}
		return question.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

func validateCreateQuestion(req question.CreateRequest) error {
	errs := fieldErrors{}

	checkTitle(errs, req.Title)
	if err := validateLink("link", strings.TrimSpace(req.Link)); err != nil {
		errs.add("link", err.(*ValidationError).Fields["link"])
	}
	if !req.Type.Valid() {
		errs.add("type", "must be one of MANDATORY, RECOMMENDED")
	}
	if !req.Difficulty.Valid() {
		errs.add("difficulty", "must be one of EASY, MEDIUM, HARD")
	}

	return errs.err()
}

func validateUpdateQuestion(req question.UpdateRequest) error {
	errs := fieldErrors{}

	if req.Title != nil {
		checkTitle(errs, *req.Title)
	}
	if req.Link != nil {
		if err := validateLink("link", strings.TrimSpace(*req.Link)); err != nil {
			errs.add("link", err.(*ValidationError).Fields["link"])
		}
	}
	if req.Type != nil && !req.Type.Valid() {
		errs.add("type", "must be one of MANDATORY, RECOMMENDED")
	}
	if req.Difficulty != nil && !req.Difficulty.Valid() {
		errs.add("difficulty", "must be one of EASY, MEDIUM, HARD")
	}

	return errs.err()
}

func checkTitle(errs fieldErrors, title string) {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	switch {
	case n == 0:
		errs.add("title", "is required")
	case n > 200:
		errs.add("title", "must be at most 200 characters")
	}
}
