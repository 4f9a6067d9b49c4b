package mdd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mddup/errs"
)

func writePair(t *testing.T, dir, base string, dataset []byte, companion string) FilePair {
	t.Helper()

	pair := NewFilePair(filepath.Join(dir, base+".mdd"))
	require.NoError(t, os.WriteFile(pair.Dataset, dataset, 0o600))
	if companion != "" {
		require.NoError(t, os.WriteFile(pair.Companion, []byte(companion), 0o600))
	}

	return pair
}

func TestDetectPair(t *testing.T) {
	tests := []struct {
		path      string
		dataset   string
		companion string
	}{
		{"/data/survey.mdd", "/data/survey.mdd", "/data/survey.ddf"},
		{"/data/survey.ddf", "/data/survey.mdd", "/data/survey.ddf"},
		{"/data/SURVEY.MDD", "/data/SURVEY.MDD", "/data/SURVEY.DDF"},
		{"/data/wave.2.mdd", "/data/wave.2.mdd", "/data/wave.2.ddf"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			pair, err := DetectPair(tt.path)
			require.NoError(t, err)
			require.Equal(t, tt.dataset, pair.Dataset)
			require.Equal(t, tt.companion, pair.Companion)
		})
	}

	_, err := DetectPair("/data/survey.csv")
	require.ErrorIs(t, err, errs.ErrInvalidFileFormat)
}

func TestFilePair_BaseName(t *testing.T) {
	require.Equal(t, "wave.2", NewFilePair("/x/wave.2.mdd").BaseName())
}

func TestFilePair_Validate(t *testing.T) {
	dir := t.TempDir()

	ok := writePair(t, dir, "ok", []byte("abcd"), "A\n")
	require.NoError(t, ok.Validate())

	noCompanion := writePair(t, dir, "nocompanion", []byte("abcd"), "")
	require.ErrorIs(t, noCompanion.Validate(), errs.ErrFileNotFound)

	require.ErrorIs(t, NewFilePair(filepath.Join(dir, "missing.mdd")).Validate(), errs.ErrFileNotFound)

	empty := writePair(t, dir, "empty", nil, "A\n")
	require.ErrorIs(t, empty.Validate(), errs.ErrInvalidFileFormat)
}

func TestFilePair_Info(t *testing.T) {
	dir := t.TempDir()
	pair := writePair(t, dir, "survey", make([]byte, 1000), "A\nB\n")

	info, err := pair.Info()

	require.NoError(t, err)
	require.Equal(t, "survey", info.BaseName)
	require.Equal(t, int64(1000), info.DatasetSize)
	require.Equal(t, int64(4), info.CompanionSize)
	require.Equal(t, uint32(5), info.EstimatedRecords)
	require.True(t, info.Valid)

	small := writePair(t, dir, "small", make([]byte, 10), "A\n")
	info, err = small.Info()
	require.NoError(t, err)
	require.Equal(t, uint32(1), info.EstimatedRecords)

	_, err = NewFilePair(filepath.Join(dir, "none.mdd")).Info()
	require.ErrorIs(t, err, errs.ErrFileNotFound)
}

func TestValidateIntegrity(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	ok := writePair(t, dir, "ok", make([]byte, 40), "A \"a\" Text Width(4)\n")
	require.Equal(t, []string{CompatibleMessage}, ValidateIntegrity(ctx, ok))

	tiny := writePair(t, dir, "tiny", []byte{1, 2}, "A\n")
	msgs := ValidateIntegrity(ctx, tiny)
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0], "Dataset parsing error")

	malformed := writePair(t, dir, "malformed", make([]byte, 40), "A \"broken\nB\n")
	require.Equal(t, []string{CompatibleMessage}, ValidateIntegrity(ctx, malformed))

	missing := NewFilePair(filepath.Join(dir, "missing.mdd"))
	msgs = ValidateIntegrity(ctx, missing)
	require.Contains(t, msgs, "Dataset file not found")
	require.Contains(t, msgs, "Companion file not found")
}
