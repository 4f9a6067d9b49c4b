package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mddup/errs"
)

func writeInputs(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	dataset := filepath.Join(dir, "wave1.mdd")
	require.NoError(t, os.WriteFile(dataset, bytes.Repeat([]byte("0123456789ab"), 50), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wave1.ddf"),
		[]byte("RespondentID \"Respondent\" Long Width(4)\nScore \"Score\" Double Width(8)\n"), 0o600))

	return dataset
}

func TestRun(t *testing.T) {
	dataset := writeInputs(t)
	out := t.TempDir()
	var stdout, stderr bytes.Buffer

	err := run([]string{"-n", "3", "-o", out, "--log-level", "warn", dataset}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	text := stdout.String()
	require.Contains(t, text, "[  0%] Initializing duplication process...")
	require.Contains(t, text, "[100%] Process completed successfully!")
	require.Contains(t, text, "Records:  50 -> 150")

	matches, err := filepath.Glob(filepath.Join(out, "duplicated_3x_*.zip"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestRun_ConfigFileAndOverride(t *testing.T) {
	dataset := writeInputs(t)
	out := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "mddup.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("count: 7\njob:\n  keep_temp_files: true\n"), 0o600))
	var stdout, stderr bytes.Buffer

	err := run([]string{"--config", cfgPath, "--count", "2", "--out", out, "--keep=false", dataset}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	require.NotContains(t, stdout.String(), "Kept:")
	matches, err := filepath.Glob(filepath.Join(out, "duplicated_2x_*"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "only the archive remains")
}

func TestRun_Failure(t *testing.T) {
	dir := t.TempDir()
	dataset := filepath.Join(dir, "orphan.mdd")
	require.NoError(t, os.WriteFile(dataset, []byte("0123456789"), 0o600))
	var stdout, stderr bytes.Buffer

	err := run([]string{"-o", t.TempDir(), dataset}, &stdout, &stderr)
	require.ErrorIs(t, err, errs.ErrFileNotFound)
}

func TestRun_UsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	require.ErrorContains(t, run(nil, &stdout, &stderr), "usage")
	require.Error(t, run([]string{"--no-such-flag", "x.mdd"}, &stdout, &stderr))
	require.ErrorContains(t, run([]string{"-n", "0", "x.mdd"}, &stdout, &stderr), "count must be positive")
	require.NoError(t, run([]string{"--help"}, &stdout, &stderr))
}
