package question

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSortForCatalog(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	qs := []Question{
		{ID: "r-hard", Type: TypeRecommended, Difficulty: DifficultyHard, CreatedAt: t0},
		{ID: "m-hard", Type: TypeMandatory, Difficulty: DifficultyHard, CreatedAt: t0},
		{ID: "m-easy-2", Type: TypeMandatory, Difficulty: DifficultyEasy, CreatedAt: t0.Add(time.Minute)},
		{ID: "r-easy", Type: TypeRecommended, Difficulty: DifficultyEasy, CreatedAt: t0},
		{ID: "m-easy-1", Type: TypeMandatory, Difficulty: DifficultyEasy, CreatedAt: t0},
		{ID: "m-medium", Type: TypeMandatory, Difficulty: DifficultyMedium, CreatedAt: t0},
	}

	SortForCatalog(qs)

	got := make([]string, 0, len(qs))
	for _, q := range qs {
		got = append(got, q.ID)
	}

	require.Equal(t, []string{"m-easy-1", "m-easy-2", "m-medium", "m-hard", "r-easy", "r-hard"}, got)
}

func TestApply_PartialUpdate(t *testing.T) {
	now := time.Now().UTC()
	q := New("q1", CreateRequest{
		Title:      "  Two Sum ",
		Link:       "https://example.com/two-sum",
		Type:       TypeMandatory,
		Difficulty: DifficultyEasy,
	}, now)

	require.Equal(t, "Two Sum", q.Title)
	require.True(t, q.Active)

	inactive := false
	hard := DifficultyHard
	later := now.Add(time.Hour)
	q.Apply(UpdateRequest{Active: &inactive, Difficulty: &hard}, later)

	require.False(t, q.Active)
	require.Equal(t, DifficultyHard, q.Difficulty)
	require.Equal(t, "Two Sum", q.Title)
	require.Equal(t, later, q.UpdatedAt)
	require.Equal(t, now, q.CreatedAt)
}

func TestValid(t *testing.T) {
	require.True(t, TypeMandatory.Valid())
	require.False(t, Type("OPTIONAL").Valid())
	require.True(t, DifficultyMedium.Valid())
	require.False(t, Difficulty("").Valid())
}
