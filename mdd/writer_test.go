package mdd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/section"
)

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mdd")
	var flushes []uint64

	w, err := CreateWriter(path, 25, 1,
		WithWriteChunkSize(2),
		WithFlushEvery(3),
		WithWriteBufferSize(16),
		WithFlushHook(func(n uint64) { flushes = append(flushes, n) }),
	)
	require.NoError(t, err)

	payloads := make([][]byte, 25)
	for i := range payloads {
		payloads[i] = []byte{byte(i), byte(i), byte(i), byte(i)}
	}
	require.NoError(t, w.WriteRecords(context.Background(), payloads))
	require.Equal(t, uint64(25), w.Written())

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "dataset must not appear before Close")

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.Equal(t, []uint64{6, 12, 18, 24}, flushes)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	ds, err := NewParser().Parse(context.Background(), data, []section.Variable{{Name: "A", Width: 4}})
	require.NoError(t, err)
	require.Equal(t, uint32(25), ds.Header.RecordCount)
	require.Len(t, ds.Records, 25)
	for i, r := range ds.Records {
		require.Equal(t, payloads[i], r.Payload)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriter_CountMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mdd")

	w, err := CreateWriter(path, 3, 0)
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord([]byte("x")))

	require.ErrorIs(t, w.Close(), errs.ErrProcessing)
	require.ErrorIs(t, w.WriteRecord([]byte("y")), errs.ErrProcessing)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWriter_Abort(t *testing.T) {
	dir := t.TempDir()

	w, err := CreateWriter(filepath.Join(dir, "out.mdd"), 1, 0)
	require.NoError(t, err)
	w.Abort()
	w.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWriter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := CreateWriter(filepath.Join(t.TempDir(), "out.mdd"), 1, 0)
	require.NoError(t, err)
	defer w.Abort()

	require.ErrorIs(t, w.WriteRecords(ctx, [][]byte{{1}}), errs.ErrCancelled)
}

func TestWriter_InvalidOptions(t *testing.T) {
	_, err := CreateWriter(filepath.Join(t.TempDir(), "out.mdd"), 1, 0, WithFlushEvery(0))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestWriter_MissingDirectory(t *testing.T) {
	_, err := CreateWriter(filepath.Join(t.TempDir(), "nope", "out.mdd"), 1, 0)
	require.ErrorIs(t, err, errs.ErrIO)
}
