package processor

import (
	"fmt"
	"log/slog"

	"github.com/arloliu/mddup/archive"
	"github.com/arloliu/mddup/compress"
	"github.com/arloliu/mddup/engine"
	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/internal/clock"
	"github.com/arloliu/mddup/internal/diskspace"
	"github.com/arloliu/mddup/internal/options"
	"github.com/arloliu/mddup/mdd"
	"github.com/arloliu/mddup/section"
)

type config struct {
	logger *slog.Logger
	clock  clock.Clock

	batchSize       int
	writeChunkSize  int
	flushEvery      int
	writeBufferSize int
	recordCap       int

	spoolCompression format.CompressionType
	archiveMethod    format.ArchiveMethod
	compressionLevel int

	diskCheck bool
	diskProbe diskspace.Probe
}

func defaultConfig() *config {
	return &config{
		logger:           slog.Default(),
		clock:            clock.Real(),
		batchSize:        engine.DefaultBatchSize,
		writeChunkSize:   mdd.DefaultWriteChunkSize,
		flushEvery:       mdd.DefaultFlushEvery,
		writeBufferSize:  mdd.DefaultWriteBufferSize,
		recordCap:        section.DefaultRecordCap,
		spoolCompression: format.CompressionLZ4,
		archiveMethod:    format.ArchiveDeflate,
		compressionLevel: archive.DefaultLevel,
		diskCheck:        true,
		diskProbe:        diskspace.Available,
	}
}

// Option configures a Processor.
type Option = options.Option[*config]

// WithLogger sets the logger; nil keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return options.NoError("WithLogger", func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithClock sets the clock used for timing and output names.
func WithClock(clk clock.Clock) Option {
	return options.New("WithClock", func(c *config) error {
		if clk == nil {
			return fmt.Errorf("nil clock")
		}
		c.clock = clk

		return nil
	})
}

func positiveOption(name string, n int, set func(*config)) Option {
	return options.New(name, func(c *config) error {
		if err := options.Positive(n); err != nil {
			return err
		}
		set(c)

		return nil
	})
}

// WithBatchSize sets the records per duplication batch (default 1000).
func WithBatchSize(n int) Option {
	return positiveOption("WithBatchSize", n, func(c *config) { c.batchSize = n })
}

// WithWriteChunkSize sets the records per write chunk (default 500).
func WithWriteChunkSize(n int) Option {
	return positiveOption("WithWriteChunkSize", n, func(c *config) { c.writeChunkSize = n })
}

// WithFlushEvery sets the write chunks between flushes (default 10).
func WithFlushEvery(n int) Option {
	return positiveOption("WithFlushEvery", n, func(c *config) { c.flushEvery = n })
}

// WithWriteBufferSize sets the dataset write buffer in bytes (default 1MiB).
func WithWriteBufferSize(n int) Option {
	return positiveOption("WithWriteBufferSize", n, func(c *config) { c.writeBufferSize = n })
}

// WithRecordCap sets the maximum records read from a source dataset.
func WithRecordCap(n int) Option {
	return options.New("WithRecordCap", func(c *config) error {
		if _, err := mdd.NewParserWithOptions(mdd.WithRecordCap(n)); err != nil {
			return err
		}
		c.recordCap = n

		return nil
	})
}

// WithSpoolCompression selects the codec holding duplicated payloads in memory.
func WithSpoolCompression(t format.CompressionType) Option {
	return options.New("WithSpoolCompression", func(c *config) error {
		if _, err := compress.New(t); err != nil {
			return err
		}
		c.spoolCompression = t

		return nil
	})
}

// WithArchiveMethod selects the archive entry compression.
func WithArchiveMethod(m format.ArchiveMethod) Option {
	return options.New("WithArchiveMethod", func(c *config) error {
		if _, err := archive.New(archive.WithMethod(m)); err != nil {
			return err
		}
		c.archiveMethod = m

		return nil
	})
}

// WithCompressionLevel sets the archive compression level (default 6).
func WithCompressionLevel(level int) Option {
	return options.New("WithCompressionLevel", func(c *config) error {
		if _, err := archive.New(archive.WithLevel(level)); err != nil {
			return err
		}
		c.compressionLevel = level

		return nil
	})
}

// WithDiskCheck enables or disables the free-space pre-flight check.
func WithDiskCheck(enabled bool) Option {
	return options.NoError("WithDiskCheck", func(c *config) { c.diskCheck = enabled })
}

// WithDiskProbe replaces the free-space probe.
func WithDiskProbe(probe diskspace.Probe) Option {
	return options.New("WithDiskProbe", func(c *config) error {
		if probe == nil {
			return fmt.Errorf("nil disk probe")
		}
		c.diskProbe = probe

		return nil
	})
}
