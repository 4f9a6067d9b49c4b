package mdd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arloliu/mddup/ddf"
	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/section"
)

// FilePair is a dataset binary file and its companion text file.
type FilePair struct {
	Dataset   string
	Companion string
}

// NewFilePair pairs a dataset path with its derived companion path.
func NewFilePair(datasetPath string) FilePair {
	return FilePair{Dataset: datasetPath, Companion: swapExt(datasetPath, section.CompanionExt)}
}

// DetectPair builds a pair from either member's path.
// Returns ErrInvalidFileFormat for any other extension.
func DetectPair(path string) (FilePair, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case section.DatasetExt:
		return NewFilePair(path), nil
	case section.CompanionExt:
		return FilePair{Dataset: swapExt(path, section.DatasetExt), Companion: path}, nil
	default:
		return FilePair{}, fmt.Errorf("%w: %s is neither %s nor %s",
			errs.ErrInvalidFileFormat, path, section.DatasetExt, section.CompanionExt)
	}
}

// swapExt replaces the extension of path, upper-casing the new one when the
// old extension was upper case.
func swapExt(path, ext string) string {
	old := filepath.Ext(path)
	if old != "" && old == strings.ToUpper(old) {
		ext = strings.ToUpper(ext)
	}

	return strings.TrimSuffix(path, old) + ext
}

// BaseName returns the dataset file name without its extension.
func (p FilePair) BaseName() string {
	base := filepath.Base(p.Dataset)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Validate checks that both files exist and are non-empty.
//
// Returns ErrFileNotFound for a missing file and ErrInvalidFileFormat for an
// empty one or a directory.
func (p FilePair) Validate() error {
	if err := checkFile(p.Dataset, "dataset"); err != nil {
		return err
	}

	return checkFile(p.Companion, "companion")
}

func checkFile(path, role string) error {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s file %s: %w", role, path, errs.ErrFileNotFound)
		}

		return errs.Wrap(errs.ErrIO, err, role+" file "+path)
	}
	if st.IsDir() {
		return fmt.Errorf("%s file %s: %w: is a directory", role, path, errs.ErrInvalidFileFormat)
	}
	if st.Size() == 0 {
		return fmt.Errorf("%s file %s: %w: file is empty", role, path, errs.ErrInvalidFileFormat)
	}

	return nil
}

// FileInfo summarizes a file pair without parsing the dataset.
type FileInfo struct {
	DatasetPath      string
	CompanionPath    string
	BaseName         string
	DatasetSize      int64
	CompanionSize    int64
	EstimatedRecords uint32 // DatasetSize / BytesPerRecordHint, at least 1
	Valid            bool
}

// Info stats both files of the pair.
func (p FilePair) Info() (FileInfo, error) {
	ds, err := os.Stat(p.Dataset)
	if err != nil {
		return FileInfo{}, statError(err, p.Dataset)
	}
	cs, err := os.Stat(p.Companion)
	if err != nil {
		return FileInfo{}, statError(err, p.Companion)
	}

	estimate := max(ds.Size()/section.BytesPerRecordHint, 1)

	return FileInfo{
		DatasetPath:      p.Dataset,
		CompanionPath:    p.Companion,
		BaseName:         p.BaseName(),
		DatasetSize:      ds.Size(),
		CompanionSize:    cs.Size(),
		EstimatedRecords: uint32(min(estimate, int64(^uint32(0)))), //nolint:gosec
		Valid:            ds.Size() > 0 && cs.Size() > 0,
	}, nil
}

func statError(err error, path string) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, errs.ErrFileNotFound)
	}

	return errs.Wrap(errs.ErrIO, err, "stat "+path)
}

// CompatibleMessage is the single message ValidateIntegrity returns for a sound pair.
const CompatibleMessage = "Files appear to be compatible"

// ValidateIntegrity runs every check on the pair and returns human-readable
// findings. A sound pair yields exactly []string{CompatibleMessage}.
// Companion lines the parser skips are not findings; only file, read and
// dataset parse failures are.
func ValidateIntegrity(ctx context.Context, p FilePair) []string {
	var msgs []string

	for _, f := range []struct{ role, path string }{{"Dataset", p.Dataset}, {"Companion", p.Companion}} {
		st, err := os.Stat(f.path)
		switch {
		case err != nil:
			msgs = append(msgs, f.role+" file not found")
		case st.Size() == 0:
			msgs = append(msgs, f.role+" file is empty")
		}
	}

	defs, err := ddf.ParseFile(p.Companion)
	if err != nil {
		return append(msgs, fmt.Sprintf("Companion parsing error: %v", err))
	}
	if _, err := NewParser().ParseFile(ctx, p.Dataset, defs.Variables); err != nil {
		return append(msgs, fmt.Sprintf("Dataset parsing error: %v", err))
	}

	if len(msgs) == 0 {
		msgs = append(msgs, CompatibleMessage)
	}

	return msgs
}
