package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/mddup/archive"
	"github.com/arloliu/mddup/engine"
	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/mdd"
	"github.com/arloliu/mddup/processor"
	"github.com/arloliu/mddup/section"
)

// Config is the CLI configuration. A config file is optional; flags that
// are set explicitly override its values.
type Config struct {
	// Count is the duplication factor N.
	Count uint32 `yaml:"count"`

	// OutputDir receives the duplicated_<N>x_<timestamp> directory and archive.
	OutputDir string `yaml:"output_dir"`

	// Job switches, passed to every job unchanged.
	Job processor.JobOptions `yaml:"job"`

	// Pipeline tunes the processing stages.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Log configures the slog handler.
	Log LogConfig `yaml:"log"`
}

// PipelineConfig tunes the processing stages.
type PipelineConfig struct {
	BatchSize       int `yaml:"batch_size"`
	WriteChunkSize  int `yaml:"write_chunk_size"`
	FlushEvery      int `yaml:"flush_every"`
	WriteBufferSize int `yaml:"write_buffer_size"`
	RecordCap       int `yaml:"record_cap"`

	// SpoolCodec is none, lz4, s2 or zstd.
	SpoolCodec string `yaml:"spool_codec"`
	// ArchiveMethod is store, deflate or zstd.
	ArchiveMethod    string `yaml:"archive_method"`
	CompressionLevel int    `yaml:"compression_level"`

	DiskCheck bool `yaml:"disk_check"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Count:     2,
		OutputDir: ".",
		Job: processor.JobOptions{
			ValidateMetadata: true,
			GenerateReport:   true,
		},
		Pipeline: PipelineConfig{
			BatchSize:        engine.DefaultBatchSize,
			WriteChunkSize:   mdd.DefaultWriteChunkSize,
			FlushEvery:       mdd.DefaultFlushEvery,
			WriteBufferSize:  mdd.DefaultWriteBufferSize,
			RecordCap:        section.DefaultRecordCap,
			SpoolCodec:       "lz4",
			ArchiveMethod:    "deflate",
			CompressionLevel: archive.DefaultLevel,
			DiskCheck:        true,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadFile loads configuration from path on top of Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Count == 0 {
		errs = append(errs, fmt.Errorf("count must be positive"))
	}
	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("output_dir is required"))
	}

	p := c.Pipeline
	for name, v := range map[string]int{
		"batch_size":        p.BatchSize,
		"write_chunk_size":  p.WriteChunkSize,
		"flush_every":       p.FlushEvery,
		"write_buffer_size": p.WriteBufferSize,
		"record_cap":        p.RecordCap,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("pipeline.%s must be positive, got %d", name, v))
		}
	}
	if p.RecordCap > section.MaxRecordCap {
		errs = append(errs, fmt.Errorf("pipeline.record_cap must not exceed %d", section.MaxRecordCap))
	}
	if _, err := format.ParseCompressionType(p.SpoolCodec); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.spool_codec: %w", err))
	}
	if _, err := format.ParseArchiveMethod(p.ArchiveMethod); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.archive_method: %w", err))
	}
	if p.CompressionLevel < 1 || p.CompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("pipeline.compression_level must be in [1, 9], got %d", p.CompressionLevel))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ProcessorOptions converts the pipeline settings. Call Validate first.
func (c *Config) ProcessorOptions(logger *slog.Logger) []processor.Option {
	p := c.Pipeline
	codec, _ := format.ParseCompressionType(p.SpoolCodec)
	method, _ := format.ParseArchiveMethod(p.ArchiveMethod)

	return []processor.Option{
		processor.WithLogger(logger),
		processor.WithBatchSize(p.BatchSize),
		processor.WithWriteChunkSize(p.WriteChunkSize),
		processor.WithFlushEvery(p.FlushEvery),
		processor.WithWriteBufferSize(p.WriteBufferSize),
		processor.WithRecordCap(p.RecordCap),
		processor.WithSpoolCompression(codec),
		processor.WithArchiveMethod(method),
		processor.WithCompressionLevel(p.CompressionLevel),
		processor.WithDiskCheck(p.DiskCheck),
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}

	return level, nil
}
