package archive

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
)

func outputDir(t *testing.T) (string, map[string][]byte) {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, "duplicated_3x_20260301_120000")
	require.NoError(t, os.Mkdir(dir, 0o755))

	files := map[string][]byte{
		"survey.mdd": append([]byte("MDD_DUPLICATED_V1\n300\n"), bytes.Repeat([]byte("abcd"), 300)...),
		"survey.ddf": []byte("# DDF File - Duplicated 3 times\nRespondentSerial \"Serial\" Double Width(4)\n"),
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "skip.txt"), []byte("x"), 0o600))

	return dir, files
}

func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()

	rc, err := Open(path)
	require.NoError(t, err)
	defer rc.Close()

	out := make(map[string][]byte)
	for _, f := range rc.File {
		r, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		out[f.Name] = data
	}

	return out
}

func TestPackager_RoundTrip(t *testing.T) {
	for _, m := range []format.ArchiveMethod{format.ArchiveDeflate, format.ArchiveStore, format.ArchiveZstd} {
		t.Run(m.String(), func(t *testing.T) {
			dir, files := outputDir(t)

			p, err := New(WithMethod(m))
			require.NoError(t, err)

			var seen []string
			ar, err := p.Pack(context.Background(), dir, func(done, total int, name string) {
				require.Equal(t, 2, total)
				require.Equal(t, len(seen)+1, done)
				seen = append(seen, name)
			})
			require.NoError(t, err)

			require.Equal(t, PathFor(dir), ar.Path)
			require.Equal(t, []string{"survey.ddf", "survey.mdd"}, ar.Files)
			require.Equal(t, ar.Files, seen)
			require.Positive(t, ar.Size)
			require.Equal(t, int64(len(files["survey.mdd"])+len(files["survey.ddf"])), ar.Raw)

			require.Equal(t, files, readArchive(t, ar.Path))

			names, err := Verify(context.Background(), ar.Path)
			require.NoError(t, err)
			require.Equal(t, ar.Files, names)

			_, err = os.Stat(dir)
			require.ErrorIs(t, err, os.ErrNotExist)

			entries, err := os.ReadDir(filepath.Dir(dir))
			require.NoError(t, err)
			require.Len(t, entries, 1, "no temporary files remain")
		})
	}
}

func TestPackager_KeepInput(t *testing.T) {
	dir, _ := outputDir(t)

	p, err := New(WithKeepInput(true), WithLevel(9))
	require.NoError(t, err)

	_, err = p.Pack(context.Background(), dir, nil)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "survey.mdd"))
	require.NoError(t, err)
}

func TestPackager_Cancelled(t *testing.T) {
	dir, _ := outputDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := New()
	require.NoError(t, err)

	_, err = p.Pack(ctx, dir, nil)
	require.ErrorIs(t, err, errs.ErrCancelled)

	_, err = os.Stat(PathFor(dir))
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(dir)
	require.NoError(t, err, "input kept when packaging fails")
}

func TestPackager_MissingDir(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	_, err = p.Pack(context.Background(), filepath.Join(t.TempDir(), "missing"), nil)
	require.ErrorIs(t, err, errs.ErrIO)
}

func TestPackager_InvalidOptions(t *testing.T) {
	_, err := New(WithLevel(0))
	require.ErrorIs(t, err, errs.ErrInvalidOption)

	_, err = New(WithMethod(format.ArchiveMethod(0)))
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}

func TestPathFor(t *testing.T) {
	require.Equal(t, filepath.Join("out", "dup_2x.zip"), PathFor(filepath.Join("out", "dup_2x")+string(filepath.Separator)))
}

func TestVerify_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o600))

	_, err := Verify(context.Background(), path)
	require.ErrorIs(t, err, errs.ErrArchive)

	_, err = Verify(context.Background(), filepath.Join(t.TempDir(), "none.zip"))
	require.ErrorIs(t, err, errs.ErrFileNotFound)
}
