// Package errs defines the error taxonomy shared by every stage of a duplication job.
//
// Stage errors wrap one of the sentinels below with %w, so callers classify a
// failure with errors.Is regardless of how deep it originated.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound indicates a missing input file.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidFileFormat indicates a dataset or companion file that is too small or unrecognizable.
	ErrInvalidFileFormat = errors.New("invalid file format")
	// ErrInsufficientDiskSpace indicates the pre-flight space check failed.
	ErrInsufficientDiskSpace = errors.New("insufficient disk space")
	// ErrIO indicates a read, write or remove failure.
	ErrIO = errors.New("io error")
	// ErrArchive indicates a compression or archive container failure.
	ErrArchive = errors.New("archive error")
	// ErrParse indicates a companion-file parsing failure.
	ErrParse = errors.New("parse error")
	// ErrProcessing is the catch-all for pipeline stage failures.
	ErrProcessing = errors.New("processing error")
	// ErrCancelled indicates the job was cancelled by its caller.
	ErrCancelled = errors.New("job cancelled")

	ErrInvalidDuplicateCount = errors.New("duplicate count must be a positive integer")
	ErrIdentifierCollision   = errors.New("rewritten identifier collides with an earlier record")
	ErrJobActive             = errors.New("a job is already running for this output")
	ErrRecordCapExceeded     = errors.New("record cap exceeds maximum")
	ErrInvalidOption         = errors.New("invalid option")
	ErrCorruptBlock          = errors.New("corrupt spool block")
)

// DiskSpaceError reports the outcome of a failed free-space pre-flight check.
type DiskSpaceError struct {
	Path      string
	Needed    uint64 // bytes
	Available uint64 // bytes
}

func (e *DiskSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space on %s: need %dMB, available %dMB",
		e.Path, e.Needed>>20, e.Available>>20)
}

// Is reports whether target is ErrInsufficientDiskSpace.
func (e *DiskSpaceError) Is(target error) bool {
	return target == ErrInsufficientDiskSpace
}

// Wrap attaches a taxonomy sentinel to err with a context message.
// It returns nil when err is nil and leaves err untouched when it already
// matches kind.
func Wrap(kind error, err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}
