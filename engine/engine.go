// Package engine produces the duplicated record set.
//
// For a source dataset of R records and a duplication factor N the engine
// emits N×R records in (copy, source position) order. Output record k has
// ID k, and every identifier-like field of the copy is rewritten from the
// copy index and the record's position in the whole source dataset, so
// rewritten values never repeat across copies.
//
// Work proceeds in fixed-size batches. At each batch boundary the engine
// checks its context, reports progress and yields the processor.
package engine

import (
	"context"
	"fmt"
	"runtime"

	"github.com/arloliu/mddup/errs"
	"github.com/arloliu/mddup/internal/collision"
	"github.com/arloliu/mddup/internal/options"
	"github.com/arloliu/mddup/record"
	"github.com/arloliu/mddup/section"
)

// DefaultBatchSize is the number of records per batch.
const DefaultBatchSize = 1000

// Batch is one group of duplicated records.
type Batch struct {
	Dup     uint32          // copy index
	First   uint64          // source position of Records[0]
	Records []record.Record // owned by the callee until the next batch
}

// ProgressFunc receives the number of output records produced so far and
// the total that will be produced.
type ProgressFunc func(done, total uint64)

// Engine duplicates records. An Engine may be reused across runs but not
// shared between concurrent runs.
type Engine struct {
	batchSize      int
	checkCollision bool
	progress       ProgressFunc
	tracker        *collision.Tracker
}

// Option configures an Engine.
type Option = options.Option[*Engine]

// WithBatchSize sets the number of records per batch.
func WithBatchSize(n int) Option {
	return options.New("WithBatchSize", func(e *Engine) error {
		if err := options.Positive(n); err != nil {
			return err
		}
		e.batchSize = n

		return nil
	})
}

// WithCollisionCheck makes the engine track every rewritten identifier and
// fail with errs.ErrIdentifierCollision on the first repeat.
func WithCollisionCheck(enabled bool) Option {
	return options.NoError("WithCollisionCheck", func(e *Engine) { e.checkCollision = enabled })
}

// WithProgress registers fn to run after every batch.
func WithProgress(fn ProgressFunc) Option {
	return options.NoError("WithProgress", func(e *Engine) { e.progress = fn })
}

// New creates an engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{batchSize: DefaultBatchSize}
	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}

	return e, nil
}

// BatchSize returns the configured batch size.
func (e *Engine) BatchSize() int { return e.batchSize }

// TrackedIdentifiers returns the number of values checked by the last run,
// or zero when collision checking is off.
func (e *Engine) TrackedIdentifiers() int {
	if e.tracker == nil {
		return 0
	}

	return e.tracker.Count()
}

// HashCollisions returns how many distinct identifier values of the last run
// shared a hash bucket.
func (e *Engine) HashCollisions() int {
	if e.tracker == nil {
		return 0
	}

	return e.tracker.HashCollisions()
}

// Total returns the number of records a run over records with factor n produces.
func Total(records int, n uint32) uint64 {
	return uint64(records) * uint64(n) //nolint:gosec
}

// Each duplicates records n times and hands every batch to fn in order.
//
// Returns errs.ErrInvalidDuplicateCount for n == 0, errs.ErrCancelled when ctx
// is done at a batch boundary, errs.ErrIdentifierCollision from the collision
// check, or the first error returned by fn.
func (e *Engine) Each(ctx context.Context, records []record.Record, vars []section.Variable, n uint32, fn func(Batch) error) error {
	if n == 0 {
		return fmt.Errorf("%w: got 0", errs.ErrInvalidDuplicateCount)
	}
	if len(records) > section.MaxRecordCap {
		return fmt.Errorf("%w: %d source records", errs.ErrRecordCapExceeded, len(records))
	}

	fields := record.IdentifierFields(vars)
	total := Total(len(records), n)

	e.tracker = nil
	if e.checkCollision && len(fields) > 0 {
		e.tracker = collision.NewTracker(int(min(total*uint64(len(fields)), 1<<20))) //nolint:gosec
	}

	batch := make([]record.Record, 0, min(e.batchSize, len(records)))
	var next uint64 // next output ID

	for dup := range n {
		for start := 0; start < len(records); start += e.batchSize {
			if err := ctx.Err(); err != nil {
				return errs.Wrap(errs.ErrCancelled, err, "duplicate records")
			}

			end := min(start+e.batchSize, len(records))
			batch = batch[:0]
			for pos := start; pos < end; pos++ {
				rw := record.Rewrite{Dup: dup, Source: uint64(pos)} //nolint:gosec

				out := records[pos].Clone()
				out.ID = next
				next++
				if err := rw.Apply(out.Fields, fields, e.visitor(rw)); err != nil {
					return err
				}
				batch = append(batch, out)
			}

			if err := fn(Batch{Dup: dup, First: uint64(start), Records: batch}); err != nil { //nolint:gosec
				return err
			}
			if e.progress != nil {
				e.progress(next, total)
			}
			runtime.Gosched()
		}
	}

	return nil
}

// visitor returns the collision check for one rewritten copy, or nil.
func (e *Engine) visitor(rw record.Rewrite) func(string, record.FieldValue) error {
	if e.tracker == nil {
		return nil
	}

	origin := collision.Origin{Dup: rw.Dup, Source: rw.Source}

	return func(name string, v record.FieldValue) error {
		return e.tracker.Track(name, v.String(), origin)
	}
}

// Duplicate collects every duplicated record into one slice.
func (e *Engine) Duplicate(ctx context.Context, records []record.Record, vars []section.Variable, n uint32) ([]record.Record, error) {
	out := make([]record.Record, 0, Total(len(records), n))
	err := e.Each(ctx, records, vars, n, func(b Batch) error {
		out = append(out, b.Records...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
