package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/arloliu/mddup/archive"
	"github.com/arloliu/mddup/ddf"
	"github.com/arloliu/mddup/engine"
	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/internal/options"
	"github.com/arloliu/mddup/mdd"
	"github.com/arloliu/mddup/progress"
	"github.com/arloliu/mddup/record"
	"github.com/arloliu/mddup/section"
	"github.com/arloliu/mddup/spool"
)

// outputTimeLayout stamps output directory names.
const outputTimeLayout = "20060102_150405"

// Processor runs duplication jobs. A Processor is safe for concurrent use;
// every run owns its own working set.
type Processor struct {
	cfg *config
}

// New creates a processor.
func New(opts ...Option) (*Processor, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return &Processor{cfg: cfg}, nil
}

// OutputDirName returns the directory name used for a job with factor n
// started at the processor clock's current time.
func (p *Processor) OutputDirName(n uint32) string {
	return fmt.Sprintf("duplicated_%dx_%s", n, p.cfg.clock.Now().Format(outputTimeLayout))
}

// Run executes job synchronously and returns its terminal result.
func (p *Processor) Run(ctx context.Context, job Job) Result {
	return p.run(ctx, uuid.New(), job)
}

// run is one job's state machine. Every stage either advances or ends the
// job; no stage is re-entered.
func (p *Processor) run(ctx context.Context, id uuid.UUID, job Job) Result {
	r := &jobRun{
		p:       p,
		job:     job,
		id:      id.String(),
		log:     p.cfg.logger.With(slog.String("job_id", id.String())),
		tracker: progress.NewTracker(id.String(), job.Sink, p.cfg.clock),
		state:   format.StatePending,
	}
	r.tracker.Start()

	res := r.execute(ctx)
	res.JobID = r.id
	res.ProcessingTime = r.tracker.Elapsed()

	if res.Err != nil {
		res.ErrorMessage = res.Err.Error()
		res.State = format.StateFailed
		if errors.Is(res.Err, errs.ErrCancelled) {
			res.State = format.StateCancelled
		}
		r.log.Error("job ended", slog.String("failed_in", r.state.String()), slog.Any("result", res))

		return res
	}

	res.Success = true
	res.State = format.StateComplete
	res.AutoOpen = job.Options.AutoOpenResult
	r.log.Info("job complete", slog.Any("result", res))

	return res
}

type jobRun struct {
	p       *Processor
	job     Job
	id      string
	log     *slog.Logger
	tracker *progress.Tracker
	state   format.State

	companion *ddf.Definitions
	dataset   *mdd.Dataset
	spool     *spool.Spool
	outDir    string
	dataPath  string
	total     uint64
}

func (r *jobRun) enter(s format.State) {
	r.log.Info("stage", slog.String("stage", s.String()), slog.Duration("elapsed", r.tracker.Elapsed()))
	r.state = s
}

func (r *jobRun) execute(ctx context.Context) Result {
	var res Result

	stages := []struct {
		state format.State
		fn    func(context.Context, *Result) error
		skip  bool
	}{
		{state: format.StateValidating, fn: r.validate},
		{state: format.StateLoading, fn: r.load},
		{state: format.StateDuplicating, fn: r.duplicate},
		{state: format.StateWriting, fn: r.write},
		{state: format.StateReporting, fn: r.report, skip: !r.job.Options.GenerateReport},
		{state: format.StatePackaging, fn: r.pack},
	}

	defer func() {
		if r.spool != nil {
			r.spool.Release()
		}
	}()

	for _, st := range stages {
		if st.skip {
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Err = errs.Wrap(errs.ErrCancelled, err, st.state.String())
			return res
		}
		r.enter(st.state)
		if err := st.fn(ctx, &res); err != nil {
			res.Err = err
			if r.outDir != "" {
				r.log.Warn("output directory left in place", slog.String("dir", r.outDir))
			}

			return res
		}
	}

	r.tracker.Report(format.StateComplete, "Process completed successfully!", progress.PercentComplete, r.total, r.total)

	return res
}

func (r *jobRun) validate(ctx context.Context, _ *Result) error {
	job := r.job
	if job.DuplicateCount == 0 {
		return fmt.Errorf("%w: got 0", errs.ErrInvalidDuplicateCount)
	}
	if err := job.Input.Validate(); err != nil {
		return err
	}

	if job.Options.ValidateMetadata {
		msgs := mdd.ValidateIntegrity(ctx, job.Input)
		if len(msgs) != 1 || msgs[0] != mdd.CompatibleMessage {
			return fmt.Errorf("%w: %s", errs.ErrInvalidFileFormat, strings.Join(msgs, "; "))
		}
	}

	if r.p.cfg.diskCheck {
		if err := r.checkDisk(); err != nil {
			return err
		}
	}

	r.tracker.Report(format.StateValidating, "Initializing duplication process...", progress.PercentStart, 0, 0)

	return nil
}

// checkDisk compares free space on the output volume with the uncompressed
// output plus an archive of the same size.
func (r *jobRun) checkDisk() error {
	info, err := r.job.Input.Info()
	if err != nil {
		return err
	}
	needed := uint64(info.DatasetSize)*uint64(r.job.DuplicateCount)*2 + uint64(info.CompanionSize) //nolint:gosec

	avail, err := r.p.cfg.diskProbe(r.job.OutputDir)
	if err != nil {
		r.log.Warn("disk space check skipped", slog.String("dir", r.job.OutputDir), slog.Any("error", err))
		return nil
	}
	if avail < needed {
		return &errs.DiskSpaceError{Path: r.job.OutputDir, Needed: needed, Available: avail}
	}
	r.log.Debug("disk space ok", slog.Uint64("needed", needed), slog.Uint64("available", avail))

	return nil
}

func (r *jobRun) load(ctx context.Context, res *Result) error {
	defs, err := ddf.ParseFile(r.job.Input.Companion)
	if err != nil {
		return err
	}
	for _, skipped := range defs.Skipped {
		r.log.Warn("companion line skipped", slog.Int("line", skipped.Line), slog.Any("error", skipped.Err))
	}
	r.companion = defs

	parser, err := mdd.NewParserWithOptions(mdd.WithRecordCap(r.p.cfg.recordCap))
	if err != nil {
		return err
	}
	ds, err := parser.ParseFile(ctx, r.job.Input.Dataset, defs.Variables)
	if err != nil {
		return err
	}
	if ds.Truncated {
		r.log.Warn("dataset truncated to record cap",
			slog.Int("estimated_records", ds.EstimatedRecords),
			slog.Int("record_cap", parser.RecordCap()))
	}
	r.dataset = ds

	res.OriginalRecords = uint64(len(ds.Records))
	res.Truncated = ds.Truncated
	r.total = engine.Total(len(ds.Records), r.job.DuplicateCount)

	r.tracker.SetMemoryMB(record.EstimateMemoryMB(ds.Records))
	r.tracker.Report(format.StateLoading,
		fmt.Sprintf("Loaded %d records from original files", len(ds.Records)),
		progress.PercentLoaded, uint64(len(ds.Records)), uint64(len(ds.Records)))
	r.log.Info("loaded",
		slog.Int("variables", len(defs.Variables)),
		slog.Int("records", len(ds.Records)),
		slog.Int("record_width", ds.RecordWidth))

	return nil
}

func (r *jobRun) duplicate(ctx context.Context, res *Result) error {
	sp, err := spool.New(spool.WithCompression(r.p.cfg.spoolCompression))
	if err != nil {
		return err
	}
	r.spool = sp

	sourceMB := record.EstimateMemoryMB(r.dataset.Records)
	stage := r.tracker.Range(format.StateDuplicating, progress.PercentDuplicateStart, progress.PercentDuplicated)

	eng, err := engine.New(
		engine.WithBatchSize(r.p.cfg.batchSize),
		engine.WithCollisionCheck(r.job.Options.ValidateMetadata),
		engine.WithProgress(func(done, total uint64) {
			r.tracker.SetMemoryMB(sourceMB + float64(sp.ResidentBytes())/(1<<20))
			stage.Report(fmt.Sprintf("Duplicating records... (%d/%d)", done, total), done, total)
		}),
	)
	if err != nil {
		return err
	}

	stage.Report("Duplicating records...", 0, r.total)
	err = eng.Each(ctx, r.dataset.Records, r.dataset.Variables, r.job.DuplicateCount, func(b engine.Batch) error {
		for i := range b.Records {
			if err := sp.Append(b.Records[i].Payload); err != nil {
				return err
			}
		}
		r.log.Debug("batch", slog.Uint64("dup", uint64(b.Dup)), slog.Uint64("first", b.First), slog.Int("records", len(b.Records)))

		return nil
	})
	if err != nil {
		return err
	}
	if err := sp.Flush(); err != nil {
		return err
	}

	res.FinalRecords = sp.Len()
	r.tracker.Report(format.StateDuplicating,
		fmt.Sprintf("Generated %d duplicated records", sp.Len()),
		progress.PercentDuplicated, sp.Len(), r.total)
	r.log.Info("duplicated",
		slog.Uint64("records", sp.Len()),
		slog.Int("identifiers_checked", eng.TrackedIdentifiers()),
		slog.Int("hash_collisions", eng.HashCollisions()),
		slog.Float64("spool_ratio", sp.Stats().Ratio()))

	return nil
}

func (r *jobRun) write(ctx context.Context, _ *Result) error {
	if err := os.MkdirAll(r.job.OutputDir, 0o755); err != nil {
		return errs.Wrap(errs.ErrIO, err, "create output parent")
	}
	dir := filepath.Join(r.job.OutputDir, r.p.OutputDirName(r.job.DuplicateCount))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return errs.Wrap(errs.ErrIO, err, "create output directory")
	}
	r.outDir = dir

	base := r.job.Input.BaseName()
	r.dataPath = filepath.Join(dir, base+section.DatasetExt)
	stage := r.tracker.Range(format.StateWriting, progress.PercentDuplicated, progress.PercentWritten)
	total := r.spool.Len()

	w, err := mdd.CreateWriter(r.dataPath, total, len(r.dataset.Variables),
		mdd.WithWriteBufferSize(r.p.cfg.writeBufferSize),
		mdd.WithWriteChunkSize(r.p.cfg.writeChunkSize),
		mdd.WithFlushEvery(r.p.cfg.flushEvery),
		mdd.WithFlushHook(func(written uint64) {
			stage.Report(fmt.Sprintf("Writing MDD file... (%d/%d)", written, total), written, total)
		}),
	)
	if err != nil {
		return err
	}

	if err := r.spool.Each(ctx, func(payloads [][]byte) error {
		return w.WriteRecords(ctx, payloads)
	}); err != nil {
		w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	banner := ddf.Banner{
		DuplicateCount: r.job.DuplicateCount,
		Generated:      r.p.cfg.clock.Now(),
		TotalRecords:   total,
	}
	if err := ddf.WriteFile(filepath.Join(dir, base+section.CompanionExt), r.dataset.Variables, banner); err != nil {
		return err
	}

	r.tracker.Report(format.StateWriting, "Output files created successfully", progress.PercentWritten, total, total)

	return nil
}

func (r *jobRun) report(_ context.Context, res *Result) error {
	digest, err := archive.DigestFile(r.dataPath)
	if err != nil {
		return err
	}
	outputBytes, err := dirSize(r.outDir)
	if err != nil {
		return err
	}

	rep := archive.Report{
		Generated:       r.p.cfg.clock.Now(),
		OriginalRecords: res.OriginalRecords,
		FinalRecords:    res.FinalRecords,
		DuplicateCount:  r.job.DuplicateCount,
		ProcessingTime:  r.tracker.Elapsed(),
		OutputBytes:     outputBytes,
		SpoolRatio:      r.spool.Stats().Ratio(),
		DatasetDigest:   digest,
		DatasetInput:    r.job.Input.Dataset,
		CompanionInput:  r.job.Input.Companion,
		Output:          archive.PathFor(r.outDir),
	}
	path, err := archive.WriteReport(r.outDir, rep)
	if err != nil {
		return err
	}
	res.ReportPath = path

	r.tracker.Report(format.StateReporting, "Performance report generated", progress.PercentWritten, res.FinalRecords, res.FinalRecords)

	return nil
}

func (r *jobRun) pack(ctx context.Context, res *Result) error {
	// The spool is no longer needed once the files are on disk.
	r.spool.Release()

	pk, err := archive.New(
		archive.WithMethod(r.p.cfg.archiveMethod),
		archive.WithLevel(r.p.cfg.compressionLevel),
		archive.WithKeepInput(r.job.Options.KeepTempFiles),
	)
	if err != nil {
		return err
	}

	stage := r.tracker.Range(format.StatePackaging, progress.PercentWritten, progress.PercentPackaged)
	ar, err := pk.Pack(ctx, r.outDir, func(done, total int, _ string) {
		stage.Report(fmt.Sprintf("Compressing files... (%d/%d)", done, total), uint64(done), uint64(total)) //nolint:gosec
	})
	if err != nil {
		return err
	}

	if r.job.Options.ValidateMetadata {
		if _, err := archive.Verify(ctx, ar.Path); err != nil {
			return err
		}
	}

	res.OutputFilePath = ar.Path
	res.OutputFileSizeMB = float64(ar.Size) / (1 << 20)
	if r.job.Options.KeepTempFiles {
		res.OutputDir = r.outDir
	} else {
		res.ReportPath = ""
	}
	r.outDir = ""
	r.log.Info("packaged",
		slog.String("archive", ar.Path),
		slog.Int("files", len(ar.Files)),
		slog.Int64("bytes", ar.Size))

	return nil
}

func dirSize(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, errs.Wrap(errs.ErrIO, err, "read output directory")
	}

	var total int64
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, errs.Wrap(errs.ErrIO, err, "stat "+e.Name())
		}
		total += info.Size()
	}

	return total, nil
}
