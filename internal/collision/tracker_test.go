package collision

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mddup/errs"
)

func TestTracker_Track(t *testing.T) {
	tr := NewTracker(16)

	require.NoError(t, tr.Track("RespondentSerial", "1", Origin{Dup: 0, Source: 1}))
	require.NoError(t, tr.Track("RespondentSerial", "1000001", Origin{Dup: 1, Source: 1}))
	require.NoError(t, tr.Track("UniqueID", "1", Origin{Dup: 0, Source: 1}))
	require.Equal(t, 3, tr.Count())

	err := tr.Track("RespondentSerial", "1000001", Origin{Dup: 2, Source: 0})
	require.ErrorIs(t, err, errs.ErrIdentifierCollision)
	require.Contains(t, err.Error(), "copy 2 record 0 repeats copy 1 record 1")
	require.Equal(t, 3, tr.Count())
}

func TestTracker_ManyUnique(t *testing.T) {
	tr := NewTracker(0)

	for i := range 10_000 {
		require.NoError(t, tr.Track("ID", strconv.Itoa(i), Origin{Source: uint64(i)}))
	}

	require.Equal(t, 10_000, tr.Count())
	require.Zero(t, tr.HashCollisions())
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(4)
	require.NoError(t, tr.Track("ID", "a", Origin{}))

	tr.Reset()

	require.Zero(t, tr.Count())
	require.NoError(t, tr.Track("ID", "a", Origin{}))
}
