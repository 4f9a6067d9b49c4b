// Package mddup multiplies survey datasets: it reads an MDD dataset and its
// DDF companion, writes N copies of every record with identifier fields
// rewritten so each copy stays unique, and packages the output into a zip
// archive.
//
// # Basic Usage
//
// Running a job synchronously:
//
//	pair, _ := mddup.DetectPair("wave1.mdd")
//	res := mddup.Duplicate(ctx, mddup.Job{
//	    Input:          pair,
//	    DuplicateCount: 3,
//	    OutputDir:      "out",
//	    Options:        mddup.JobOptions{GenerateReport: true},
//	})
//	if !res.Success {
//	    log.Fatal(res.Err)
//	}
//
// Running a job in the background with progress:
//
//	p, _ := mddup.NewProcessor(processor.WithLogger(logger))
//	h := p.Start(ctx, mddup.Job{
//	    Input:          pair,
//	    DuplicateCount: 3,
//	    OutputDir:      "out",
//	    Sink: progress.SinkFunc(func(s progress.Snapshot) {
//	        fmt.Printf("%5.1f%% %s\n", s.Percent, s.Step)
//	    }),
//	})
//	res := h.Wait()
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the processor
// package. For fine-grained control over parsing, duplication, writing and
// packaging, use the mdd, engine, spool and archive packages directly.
package mddup

import (
	"context"

	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/mdd"
	"github.com/arloliu/mddup/processor"
)

type (
	// Job is one duplication request.
	Job = processor.Job
	// JobOptions are the caller's processing switches.
	JobOptions = processor.JobOptions
	// Result is the terminal outcome of a job.
	Result = processor.Result
	// FilePair is a dataset file and its companion.
	FilePair = mdd.FilePair
)

// NewProcessor creates a processor with custom options.
//
// Available options:
//   - processor.WithLogger(*slog.Logger)
//   - processor.WithBatchSize(n), processor.WithWriteChunkSize(n), processor.WithFlushEvery(n)
//   - processor.WithRecordCap(n)
//   - processor.WithSpoolCompression(format.CompressionNone|Zstd|S2|LZ4)
//   - processor.WithArchiveMethod(format.ArchiveStore|Deflate|Zstd)
//   - processor.WithCompressionLevel(1..9)
//   - processor.WithDiskCheck(bool)
func NewProcessor(opts ...processor.Option) (*processor.Processor, error) {
	return processor.New(opts...)
}

// Duplicate runs job and blocks until it ends. Failures, including invalid
// options, are reported through Result.Err with State set to Failed.
func Duplicate(ctx context.Context, job Job, opts ...processor.Option) Result {
	p, err := processor.New(opts...)
	if err != nil {
		return Result{State: format.StateFailed, Err: err, ErrorMessage: err.Error()}
	}

	return p.Run(ctx, job)
}

// Start runs job in a new goroutine.
func Start(ctx context.Context, job Job, opts ...processor.Option) (*processor.Handle, error) {
	p, err := processor.New(opts...)
	if err != nil {
		return nil, err
	}

	return p.Start(ctx, job), nil
}

// DetectPair derives a dataset/companion pair from either file's path.
func DetectPair(path string) (FilePair, error) {
	return mdd.DetectPair(path)
}
