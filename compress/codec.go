package compress

import (
	"fmt"
	"sync/atomic"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
)

// Compressor compresses one spool block.
type Compressor interface {
	// Compress appends the compressed form of src to dst and returns the result.
	// src is not modified and may be reused by the caller after Compress returns.
	Compress(dst, src []byte) ([]byte, error)
}

// Decompressor restores one spool block.
type Decompressor interface {
	// Decompress appends the decompressed form of src to dst. rawSize is the
	// exact length of the original block; a mismatch is reported as
	// errs.ErrCorruptBlock.
	Decompress(dst, src []byte, rawSize int) ([]byte, error)
}

// Codec combines both directions and reports its algorithm.
//
// Implementations are safe for concurrent use.
type Codec interface {
	Compressor
	Decompressor
	Type() format.CompressionType
}

// New creates a Codec for the given compression type.
func New(t format.CompressionType) (Codec, error) {
	switch t {
	case format.CompressionNone:
		return NewNoOpCodec(), nil
	case format.CompressionZstd:
		return NewZstdCodec(), nil
	case format.CompressionS2:
		return NewS2Codec(), nil
	case format.CompressionLZ4:
		return NewLZ4Codec(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported spool compression %s", errs.ErrInvalidOption, t)
	}
}

// checkSize verifies a decoded block has the expected length.
func checkSize(t format.CompressionType, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s block decoded to %d bytes, want %d", errs.ErrCorruptBlock, t, got, want)
	}

	return nil
}

// Stats accumulates block sizes across concurrent compress calls.
type Stats struct {
	blocks     atomic.Int64
	raw        atomic.Int64
	compressed atomic.Int64
}

// Add records one block.
func (s *Stats) Add(raw, compressed int) {
	s.blocks.Add(1)
	s.raw.Add(int64(raw))
	s.compressed.Add(int64(compressed))
}

// Blocks returns the number of recorded blocks.
func (s *Stats) Blocks() int64 { return s.blocks.Load() }

// RawBytes returns the total uncompressed size.
func (s *Stats) RawBytes() int64 { return s.raw.Load() }

// CompressedBytes returns the total compressed size.
func (s *Stats) CompressedBytes() int64 { return s.compressed.Load() }

// Ratio returns compressed/raw, or 0 when nothing was recorded.
// Values below 1.0 mean the codec saved space.
func (s *Stats) Ratio() float64 {
	raw := s.raw.Load()
	if raw == 0 {
		return 0
	}

	return float64(s.compressed.Load()) / float64(raw)
}

// SpaceSavings returns the saved share as a percentage.
func (s *Stats) SpaceSavings() float64 {
	if s.raw.Load() == 0 {
		return 0
	}

	return (1.0 - s.Ratio()) * 100.0
}
