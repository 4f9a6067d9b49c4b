package processor

import (
	"log/slog"
	"time"

	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/mdd"
	"github.com/arloliu/mddup/progress"
)

// JobOptions are the caller's processing switches.
type JobOptions struct {
	// ValidateMetadata runs the integrity checks before loading, tracks every
	// rewritten identifier for collisions, and verifies the finished archive.
	ValidateMetadata bool `yaml:"validate_metadata"`
	// GenerateReport writes the performance report into the archive.
	GenerateReport bool `yaml:"generate_report"`
	// AutoOpenResult is passed through to Result for the caller to act on.
	AutoOpenResult bool `yaml:"auto_open_result"`
	// KeepTempFiles keeps the output directory after packaging.
	KeepTempFiles bool `yaml:"keep_temp_files"`
}

// Job is one duplication request. A Job is consumed by exactly one run.
type Job struct {
	Input          mdd.FilePair
	DuplicateCount uint32
	// OutputDir receives the job's output directory and archive.
	OutputDir string
	Options   JobOptions
	// Sink receives the job's progress snapshots; nil discards them.
	Sink progress.Sink
}

// Result is the terminal outcome of a job.
type Result struct {
	JobID            string
	Success          bool
	State            format.State // Complete, Failed or Cancelled
	OutputFilePath   string       // archive path
	OutputDir        string       // set when the directory was kept
	ReportPath       string       // report file in the kept output directory; the archive always holds archive.ReportName
	OriginalRecords  uint64
	FinalRecords     uint64
	ProcessingTime   time.Duration
	OutputFileSizeMB float64
	Truncated        bool // the record cap cut the source dataset short
	AutoOpen         bool
	ErrorMessage     string
	Err              error
}

// ProcessingTimeSeconds returns ProcessingTime in seconds.
func (r Result) ProcessingTimeSeconds() float64 {
	return r.ProcessingTime.Seconds()
}

// LogValue implements slog.LogValuer.
func (r Result) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("state", r.State.String()),
		slog.Uint64("original_records", r.OriginalRecords),
		slog.Uint64("final_records", r.FinalRecords),
		slog.Duration("elapsed", r.ProcessingTime),
	}
	if r.Success {
		attrs = append(attrs,
			slog.String("output", r.OutputFilePath),
			slog.Float64("output_mb", r.OutputFileSizeMB))
	} else {
		attrs = append(attrs, slog.String("error", r.ErrorMessage))
	}

	return slog.GroupValue(attrs...)
}
