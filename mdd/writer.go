package mdd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/internal/options"
	"github.com/arloliu/mddup/section"
)

// Writer defaults.
const (
	DefaultWriteBufferSize = 1 << 20 // 1MiB
	DefaultWriteChunkSize  = 500     // records per write chunk
	DefaultFlushEvery      = 10      // chunks between explicit flushes
)

// Writer streams record payloads into a new dataset file.
//
// Output goes to a temporary file next to the destination and is renamed
// into place by Close, so a dataset file only appears once fully written.
type Writer struct {
	path     string
	tmp      *os.File
	bw       *bufio.Writer
	declared uint64
	written  uint64
	chunks   int
	closed   bool

	bufferSize int
	chunkSize  int
	flushEvery int
	onFlush    func(written uint64)
}

// WriterOption configures a Writer.
type WriterOption = options.Option[*Writer]

// WithWriteBufferSize sets the buffered writer size in bytes.
func WithWriteBufferSize(n int) WriterOption {
	return options.New("WithWriteBufferSize", func(w *Writer) error {
		if err := options.Positive(n); err != nil {
			return err
		}
		w.bufferSize = n

		return nil
	})
}

// WithWriteChunkSize sets the number of records per write chunk.
func WithWriteChunkSize(n int) WriterOption {
	return options.New("WithWriteChunkSize", func(w *Writer) error {
		if err := options.Positive(n); err != nil {
			return err
		}
		w.chunkSize = n

		return nil
	})
}

// WithFlushEvery sets how many chunks are written between explicit flushes.
func WithFlushEvery(n int) WriterOption {
	return options.New("WithFlushEvery", func(w *Writer) error {
		if err := options.Positive(n); err != nil {
			return err
		}
		w.flushEvery = n

		return nil
	})
}

// WithFlushHook registers fn to run after each periodic flush with the
// number of records written so far.
func WithFlushHook(fn func(written uint64)) WriterOption {
	return options.NoError("WithFlushHook", func(w *Writer) { w.onFlush = fn })
}

// CreateWriter creates the dataset at path and writes its header declaring
// total records.
func CreateWriter(path string, total uint64, variableCount int, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		path:       path,
		declared:   total,
		bufferSize: DefaultWriteBufferSize,
		chunkSize:  DefaultWriteChunkSize,
		flushEvery: DefaultFlushEvery,
	}
	if err := options.Apply(w, opts...); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, err, "create dataset")
	}
	w.tmp = tmp
	w.bw = bufio.NewWriterSize(tmp, w.bufferSize)

	header := section.NewOutputHeader(int(total), variableCount) //nolint:gosec
	if _, err := w.bw.Write(header.Bytes()); err != nil {
		w.Abort()
		return nil, errs.Wrap(errs.ErrIO, err, "write dataset header")
	}

	return w, nil
}

// Path returns the final dataset path.
func (w *Writer) Path() string { return w.path }

// Written returns the number of records written so far.
func (w *Writer) Written() uint64 { return w.written }

// WriteRecord appends one payload. After every flushEvery chunks the buffer
// is flushed, the flush hook runs, and the goroutine yields.
func (w *Writer) WriteRecord(payload []byte) error {
	if w.closed {
		return fmt.Errorf("%w: write on closed dataset writer", errs.ErrProcessing)
	}
	if _, err := w.bw.Write(payload); err != nil {
		return errs.Wrap(errs.ErrIO, err, "write record")
	}
	w.written++

	if w.written%uint64(w.chunkSize) != 0 { //nolint:gosec
		return nil
	}
	w.chunks++
	if w.chunks%w.flushEvery != 0 {
		return nil
	}

	if err := w.bw.Flush(); err != nil {
		return errs.Wrap(errs.ErrIO, err, "flush dataset")
	}
	if w.onFlush != nil {
		w.onFlush(w.written)
	}
	runtime.Gosched()

	return nil
}

// WriteRecords writes payloads in order, checking ctx before each chunk.
func (w *Writer) WriteRecords(ctx context.Context, payloads [][]byte) error {
	for i, p := range payloads {
		if i%w.chunkSize == 0 && ctx.Err() != nil {
			return errs.Wrap(errs.ErrCancelled, ctx.Err(), "write records")
		}
		if err := w.WriteRecord(p); err != nil {
			return err
		}
	}

	return nil
}

// Close flushes, syncs and renames the dataset into place. It fails with
// ErrProcessing when the written count differs from the declared count.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	if w.written != w.declared {
		w.Abort()
		return fmt.Errorf("%w: wrote %d records, header declares %d", errs.ErrProcessing, w.written, w.declared)
	}

	if err := w.bw.Flush(); err != nil {
		w.Abort()
		return errs.Wrap(errs.ErrIO, err, "flush dataset")
	}
	if err := w.tmp.Sync(); err != nil {
		w.Abort()
		return errs.Wrap(errs.ErrIO, err, "sync dataset")
	}
	if err := w.tmp.Close(); err != nil {
		w.closed = true
		_ = os.Remove(w.tmp.Name())

		return errs.Wrap(errs.ErrIO, err, "close dataset")
	}
	w.closed = true

	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		_ = os.Remove(w.tmp.Name())
		return errs.Wrap(errs.ErrIO, err, "rename dataset")
	}

	return nil
}

// Abort discards the partially written dataset.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	_ = w.tmp.Close()
	_ = os.Remove(w.tmp.Name())
}
