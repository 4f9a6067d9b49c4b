// mddup multiplies an MDD survey dataset and its DDF companion N times and
// packages the result into a zip archive.
//
// Usage:
//
//	mddup [flags] <dataset.mdd|companion.ddf>
//
// Settings come from an optional YAML file (--config); flags given
// explicitly override it. Exit status is 1 on failure and 130 when the
// job is interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/mdd"
	"github.com/arloliu/mddup/processor"
	"github.com/arloliu/mddup/progress"
)

const exitCancelled = 130

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "mddup: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flagSet := pflag.NewFlagSet("mddup", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)

	configPath := flagSet.String("config", "", "path to a YAML config file")
	count := flagSet.Uint32P("count", "n", 0, "number of copies of each record")
	outDir := flagSet.StringP("out", "o", "", "directory receiving the output archive")
	report := flagSet.Bool("report", false, "include a performance report in the archive")
	keep := flagSet.Bool("keep", false, "keep the output directory after packaging")
	validate := flagSet.Bool("validate", false, "validate inputs, identifiers and the archive")
	archiveMethod := flagSet.String("archive-method", "", "archive compression: store, deflate or zstd")
	spoolCodec := flagSet.String("spool-codec", "", "in-memory spool codec: none, lz4, s2 or zstd")
	batchSize := flagSet.Int("batch-size", 0, "records per duplication batch")
	recordCap := flagSet.Int("record-cap", 0, "maximum records read from the source dataset")
	logLevel := flagSet.String("log-level", "", "log level: debug, info, warn or error")
	logFormat := flagSet.String("log-format", "", "log format: text or json")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: mddup [flags] <dataset.mdd>")
	}

	cfg := Default()
	if *configPath != "" {
		loaded, err := LoadFile(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	overrides := map[string]func(){
		"count":          func() { cfg.Count = *count },
		"out":            func() { cfg.OutputDir = *outDir },
		"report":         func() { cfg.Job.GenerateReport = *report },
		"keep":           func() { cfg.Job.KeepTempFiles = *keep },
		"validate":       func() { cfg.Job.ValidateMetadata = *validate },
		"archive-method": func() { cfg.Pipeline.ArchiveMethod = *archiveMethod },
		"spool-codec":    func() { cfg.Pipeline.SpoolCodec = *spoolCodec },
		"batch-size":     func() { cfg.Pipeline.BatchSize = *batchSize },
		"record-cap":     func() { cfg.Pipeline.RecordCap = *recordCap },
		"log-level":      func() { cfg.Log.Level = *logLevel },
		"log-format":     func() { cfg.Log.Format = *logFormat },
	}
	for name, apply := range overrides {
		if flagSet.Changed(name) {
			apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(stderr, cfg.Log)

	pair, err := mdd.DetectPair(flagSet.Arg(0))
	if err != nil {
		return err
	}
	info, err := pair.Info()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Dataset:   %s (%s, ~%s records)\n",
		info.DatasetPath, humanize.IBytes(uint64(info.DatasetSize)), humanize.Comma(int64(info.EstimatedRecords))) //nolint:gosec
	fmt.Fprintf(stdout, "Companion: %s (%s)\n", info.CompanionPath, humanize.IBytes(uint64(info.CompanionSize))) //nolint:gosec

	p, err := processor.New(cfg.ProcessorOptions(logger)...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := p.Run(ctx, processor.Job{
		Input:          pair,
		DuplicateCount: cfg.Count,
		OutputDir:      cfg.OutputDir,
		Options:        cfg.Job,
		Sink:           &printer{w: stdout},
	})

	return summarize(stdout, res)
}

func newLogger(w io.Writer, cfg LogConfig) *slog.Logger {
	level, _ := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// printer writes one line per step or whole-percent change.
type printer struct {
	w        io.Writer
	lastPct  int
	lastStep string
}

func (p *printer) Report(s progress.Snapshot) {
	pct := int(s.Percent)
	if pct == p.lastPct && s.Step == p.lastStep {
		return
	}
	p.lastPct, p.lastStep = pct, s.Step

	line := fmt.Sprintf("[%3d%%] %s", pct, s.Step)
	if s.Remaining > 0 {
		line += fmt.Sprintf(" (eta %s)", s.Remaining.Round(time.Second))
	}
	if s.MemoryMB > 0 {
		line += fmt.Sprintf(" [mem ~%s]", humanize.IBytes(uint64(s.MemoryMB*(1<<20))))
	}
	fmt.Fprintln(p.w, line)
}

func summarize(w io.Writer, res processor.Result) error {
	if !res.Success {
		code := 1
		if res.State == format.StateCancelled {
			code = exitCancelled
		}

		return &exitError{code: code, err: res.Err}
	}

	fmt.Fprintf(w, "\nDuplication complete\n")
	fmt.Fprintf(w, "  Records:  %s -> %s\n", humanize.Comma(int64(res.OriginalRecords)), humanize.Comma(int64(res.FinalRecords))) //nolint:gosec
	fmt.Fprintf(w, "  Time:     %s\n", res.ProcessingTime.Round(time.Millisecond))
	fmt.Fprintf(w, "  Archive:  %s (%s)\n", res.OutputFilePath, humanize.IBytes(uint64(res.OutputFileSizeMB*(1<<20))))
	if res.Truncated {
		fmt.Fprintf(w, "  Note:     source dataset truncated to the record cap\n")
	}
	if res.OutputDir != "" {
		fmt.Fprintf(w, "  Kept:     %s\n", res.OutputDir)
	}

	return nil
}
