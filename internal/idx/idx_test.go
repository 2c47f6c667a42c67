package idx

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_SortsInCreationOrder(t *testing.T) {
	t.Parallel()

	ids := make([]string, 200)
	for i := range ids {
		ids[i] = New()
	}

	require.True(t, sort.StringsAreSorted(ids))
}

func TestParse(t *testing.T) {
	t.Parallel()

	id := New()

	got, err := Parse(" " + id + " ")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = Parse("")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Parse("not-a-ulid")
	require.ErrorIs(t, err, ErrInvalid)

	require.True(t, Valid(id))
	require.False(t, Valid("x"))
}

func TestTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	id := NewAt(at)

	require.True(t, Time(id).Equal(at))
	require.True(t, Time("bogus").IsZero())
}
