package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/geocoder89/applyhub/internal/domain/question"
	"github.com/geocoder89/applyhub/internal/domain/submission"
	"github.com/geocoder89/applyhub/internal/domain/user"
	"github.com/geocoder89/applyhub/internal/idx"
)

const maxLinkLength = 500

type SubmitResult struct {
	Submission submission.Submission `json:"submission"`
	Created    bool                  `json:"created"`
}

type Submissions struct {
	store Store
	options
}

func NewSubmissions(store Store, opts ...Option) *Submissions {
	return &Submissions{store: store, options: buildOptions(opts)}
}

// Submit records the applicant's link for a question, replacing any earlier
// link while keeping the original submission time.
func (s *Submissions) Submit(ctx context.Context, p Principal, questionID, link string) (SubmitResult, error) {
	if err := Authorize(p, user.RoleApplicant); err != nil {
		return SubmitResult{}, err
	}

	link = strings.TrimSpace(link)
	if err := validateLink("link", link); err != nil {
		return SubmitResult{}, err
	}

	q, err := s.store.Questions().Get(ctx, questionID)
	if err != nil {
		if errors.Is(err, question.ErrNotFound) {
			return SubmitResult{}, ErrQuestionNotFound
		}
		return SubmitResult{}, fmt.Errorf("load question: %w", err)
	}

	// retired questions keep their history but accept no new work
	if !q.Active {
		return SubmitResult{}, ErrQuestionNotFound
	}

	now := s.now()
	saved, created, err := s.store.Submissions().Upsert(ctx, submission.Submission{
		ID:         idx.NewAt(now),
		UserID:     p.UserID,
		QuestionID: q.ID,
		Link:       link,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("upsert submission: %w", err)
	}

	s.log.InfoContext(ctx, "submission saved",
		slog.String("user_id", p.UserID),
		slog.String("question_id", q.ID),
		slog.Bool("created", created),
	)

	return SubmitResult{Submission: saved, Created: created}, nil
}

func validateLink(field, raw string) error {
	errs := fieldErrors{}

	switch {
	case raw == "":
		errs.add(field, "is required")
	case len(raw) > maxLinkLength:
		errs.add(field, fmt.Sprintf("must be at most %d characters", maxLinkLength))
	default:
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.add(field, "must be a valid http(s) URL")
		}
	}

	return errs.err()
}
