// Package spool holds duplicated record payloads between the duplication and
// writing stages as a sequence of compressed blocks.
//
// Each block packs up to BlockRecords payloads as
//
//	┌──────────────┬──────────┬──────────────┬──────────┬─────┐
//	│ uvarint len0 │ payload0 │ uvarint len1 │ payload1 │ ... │
//	└──────────────┴──────────┴──────────────┴──────────┴─────┘
//
// compressed with a compress.Codec. The raw length and an xxHash64 checksum of
// the raw bytes are kept beside the compressed block and verified on read.
package spool

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/arloliu/mddup/compress"
	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/internal/hash"
	"github.com/arloliu/mddup/internal/options"
	"github.com/arloliu/mddup/internal/pool"
)

// DefaultBlockRecords is the number of payloads packed into one block.
const DefaultBlockRecords = 1000

type block struct {
	data    []byte
	rawSize int
	count   int
	sum     uint64
}

// Spool is an append-only store of record payloads.
//
// A Spool is not safe for concurrent use.
type Spool struct {
	codec        compress.Codec
	blockRecords int
	stats        compress.Stats

	blocks  []block
	pending *pool.ByteBuffer
	count   int // payloads in pending
	records uint64
}

// Option configures a Spool.
type Option = options.Option[*Spool]

// WithCompression selects the block codec. The default is LZ4.
func WithCompression(t format.CompressionType) Option {
	return options.New("WithCompression", func(s *Spool) error {
		codec, err := compress.New(t)
		if err != nil {
			return err
		}
		s.codec = codec

		return nil
	})
}

// WithBlockRecords sets how many payloads are packed per block.
func WithBlockRecords(n int) Option {
	return options.New("WithBlockRecords", func(s *Spool) error {
		if err := options.Positive(n); err != nil {
			return err
		}
		s.blockRecords = n

		return nil
	})
}

// New creates an empty spool.
func New(opts ...Option) (*Spool, error) {
	s := &Spool{
		codec:        compress.NewLZ4Codec(),
		blockRecords: DefaultBlockRecords,
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return s, nil
}

// Compression returns the block codec type.
func (s *Spool) Compression() format.CompressionType { return s.codec.Type() }

// Len returns the number of appended payloads.
func (s *Spool) Len() uint64 { return s.records }

// Stats returns the block size statistics.
func (s *Spool) Stats() *compress.Stats { return &s.stats }

// ResidentBytes returns the bytes held by sealed blocks plus the pending block.
func (s *Spool) ResidentBytes() int64 {
	n := s.stats.CompressedBytes()
	if s.pending != nil {
		n += int64(s.pending.Len())
	}

	return n
}

// Append copies payload into the pending block, sealing it once full.
func (s *Spool) Append(payload []byte) error {
	if s.pending == nil {
		s.pending = pool.GetBlockBuffer()
	}

	s.pending.Grow(binary.MaxVarintLen64 + len(payload))
	s.pending.B = binary.AppendUvarint(s.pending.B, uint64(len(payload)))
	s.pending.B = append(s.pending.B, payload...)
	s.count++
	s.records++

	if s.count >= s.blockRecords {
		return s.seal()
	}

	return nil
}

// AppendBatch appends payloads in order.
func (s *Spool) AppendBatch(payloads [][]byte) error {
	for _, p := range payloads {
		if err := s.Append(p); err != nil {
			return err
		}
	}

	return nil
}

// Flush seals a partially filled block. It is a no-op when nothing is pending.
func (s *Spool) Flush() error {
	if s.count == 0 {
		return nil
	}

	return s.seal()
}

func (s *Spool) seal() error {
	raw := s.pending.Bytes()
	data, err := s.codec.Compress(nil, raw)
	if err != nil {
		return fmt.Errorf("%w: seal spool block: %w", errs.ErrProcessing, err)
	}

	s.blocks = append(s.blocks, block{
		data:    data,
		rawSize: len(raw),
		count:   s.count,
		sum:     hash.Block(raw),
	})
	s.stats.Add(len(raw), len(data))

	s.pending.Reset()
	s.count = 0

	return nil
}

// Each flushes the pending block and calls fn with the payloads of every
// block in append order. The payload slices are only valid during the call.
//
// ctx is checked before each block; cancellation returns errs.ErrCancelled.
// A block failing decompression or checksum verification returns
// errs.ErrCorruptBlock.
func (s *Spool) Each(ctx context.Context, fn func(payloads [][]byte) error) error {
	if err := s.Flush(); err != nil {
		return err
	}

	raw := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(raw)

	for i := range s.blocks {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.ErrCancelled, err, "read spool")
		}

		b := &s.blocks[i]
		out, err := s.codec.Decompress(raw.B[:0], b.data, b.rawSize)
		if err != nil {
			return fmt.Errorf("spool block %d: %w", i, err)
		}
		raw.B = out
		if hash.Block(out) != b.sum {
			return fmt.Errorf("%w: spool block %d checksum mismatch", errs.ErrCorruptBlock, i)
		}

		if err := emitBlock(out, b.count, i, fn); err != nil {
			return err
		}
	}

	return nil
}

// emitBlock splits a raw block into its payloads and hands them to fn.
func emitBlock(raw []byte, count, index int, fn func([][]byte) error) error {
	payloads, release := pool.GetPayloadSlice(count)
	defer release()

	off := 0
	for j := range count {
		n, k := binary.Uvarint(raw[off:])
		if k <= 0 || uint64(len(raw)-off-k) < n {
			return fmt.Errorf("%w: spool block %d record %d truncated", errs.ErrCorruptBlock, index, j)
		}
		off += k
		payloads[j] = raw[off : off+int(n) : off+int(n)] //nolint:gosec
		off += int(n)                                      //nolint:gosec
	}
	if off != len(raw) {
		return fmt.Errorf("%w: spool block %d has %d trailing bytes", errs.ErrCorruptBlock, index, len(raw)-off)
	}

	return fn(payloads)
}

// Release drops all blocks and returns the pending buffer to its pool.
func (s *Spool) Release() {
	if s.pending != nil {
		pool.PutBlockBuffer(s.pending)
		s.pending = nil
	}
	s.blocks = nil
	s.count = 0
	s.records = 0
}
