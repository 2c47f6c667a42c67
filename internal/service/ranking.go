package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/geocoder89/applyhub/internal/domain/user"
)

type RankedApplicant struct {
	Rank             int    `json:"rank"`
	UserID           string `json:"userId"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	TotalSubmissions int    `json:"totalSubmissions"`
	Finalized        bool   `json:"finalized"`
}

type Ranking struct {
	store Store
	options
}

func NewRanking(store Store, opts ...Option) *Ranking {
	return &Ranking{store: store, options: buildOptions(opts)}
}

// Rank orders every applicant by total submissions, highest first. Ties keep
// account creation order. Nothing is cached; each call reads the stores.
func (r *Ranking) Rank(ctx context.Context, p Principal) ([]RankedApplicant, error) {
	if err := Authorize(p, user.RoleAdmin); err != nil {
		return nil, err
	}

	applicants, err := r.store.Users().ListByRole(ctx, user.RoleApplicant)
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}

	counts, err := r.store.Submissions().CountPerUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}

	return rankApplicants(applicants, counts), nil
}

func rankApplicants(applicants []user.User, counts map[string]int) []RankedApplicant {
	out := make([]RankedApplicant, 0, len(applicants))
	for _, u := range applicants {
		out = append(out, RankedApplicant{
			UserID:           u.ID,
			Email:            u.Email,
			Name:             u.DisplayName(),
			TotalSubmissions: counts[u.ID],
			Finalized:        u.Finalized,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSubmissions > out[j].TotalSubmissions
	})

	for i := range out {
		out[i].Rank = i + 1
	}

	return out
}

// Export writes the current ranking as CSV.
func (r *Ranking) Export(ctx context.Context, p Principal, w io.Writer) error {
	rows, err := r.Rank(ctx, p)
	if err != nil {
		return err
	}
	return WriteRankingCSV(w, rows)
}

func WriteRankingCSV(w io.Writer, rows []RankedApplicant) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Rank", "Name", "Email", "Total Submissions", "Finalized"}); err != nil {
		return err
	}

	for _, row := range rows {
		finalized := "No"
		if row.Finalized {
			finalized = "Yes"
		}

		record := []string{
			strconv.Itoa(row.Rank),
			row.Name,
			row.Email,
			strconv.Itoa(row.TotalSubmissions),
			finalized,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
