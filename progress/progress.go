// Package progress carries per-job progress snapshots from the pipeline to
// its caller.
//
// A job owns one Tracker built around the caller's Sink. Stages report
// progress through a Range, which scales the stage's own completion into
// the stage's share of the overall percentage. Percentages delivered to the
// sink never decrease.
package progress

import (
	"log/slog"
	"sync"
	"time"

	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/internal/clock"
)

// Pipeline milestones as overall percentages.
const (
	PercentStart          = 0.0
	PercentLoaded         = 15.0
	PercentDuplicateStart = 20.0
	PercentDuplicated     = 60.0
	PercentWritten        = 85.0
	PercentPackaged       = 95.0
	PercentComplete       = 100.0
)

// Snapshot is one progress event.
type Snapshot struct {
	JobID            string
	State            format.State
	Step             string
	Percent          float64 // 0-100, non-decreasing within a job
	RecordsProcessed uint64
	TotalRecords     uint64
	Elapsed          time.Duration
	Remaining        time.Duration // estimate, zero when unknown
	Throughput       float64       // records per second
	MemoryMB         float64       // estimated resident working set
}

// LogValue implements slog.LogValuer.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("state", s.State.String()),
		slog.String("step", s.Step),
		slog.Float64("percent", s.Percent),
		slog.Uint64("processed", s.RecordsProcessed),
		slog.Uint64("total", s.TotalRecords),
		slog.Duration("elapsed", s.Elapsed),
		slog.Duration("remaining", s.Remaining),
		slog.Float64("records_per_sec", s.Throughput),
		slog.Float64("memory_mb", s.MemoryMB),
	)
}

// Sink receives snapshots. Report is called synchronously from the job's
// goroutine, so implementations should return quickly.
type Sink interface {
	Report(Snapshot)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Snapshot)

func (f SinkFunc) Report(s Snapshot) { f(s) }

// Discard drops every snapshot.
var Discard Sink = SinkFunc(func(Snapshot) {})

// EstimateRemaining extrapolates the time left from elapsed time and the
// overall percentage: elapsed*(100/percent) - elapsed, or zero when percent
// is not positive.
func EstimateRemaining(elapsed time.Duration, percent float64) time.Duration {
	if percent <= 0 || percent >= PercentComplete {
		return 0
	}
	totalEstimate := float64(elapsed) * (PercentComplete / percent)

	return max(time.Duration(totalEstimate)-elapsed, 0)
}

// Throughput returns records per second, or zero for a non-positive duration.
func Throughput(records uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	return float64(records) / elapsed.Seconds()
}

// Tracker stamps, clamps and forwards snapshots for one job. It is safe for
// concurrent use; the sink is called under the tracker's lock so snapshots
// arrive in order.
type Tracker struct {
	mu       sync.Mutex
	sink     Sink
	clock    clock.Clock
	jobID    string
	start    time.Time
	percent  float64
	memoryMB float64
	events   int
	last     Snapshot
}

// NewTracker creates a tracker. The elapsed-time origin is the first call to Start.
func NewTracker(jobID string, sink Sink, clk clock.Clock) *Tracker {
	if sink == nil {
		sink = Discard
	}
	if clk == nil {
		clk = clock.Real()
	}

	return &Tracker{sink: sink, clock: clk, jobID: jobID}
}

// Start records the elapsed-time origin.
func (t *Tracker) Start() {
	t.mu.Lock()
	t.start = t.clock.Now()
	t.mu.Unlock()
}

// SetMemoryMB sets the memory estimate carried by subsequent snapshots.
func (t *Tracker) SetMemoryMB(mb float64) {
	t.mu.Lock()
	t.memoryMB = mb
	t.mu.Unlock()
}

// Report emits a snapshot at percent. Lower percentages than the last one
// reported are raised to it; values are clamped to [0, 100].
func (t *Tracker) Report(state format.State, step string, percent float64, processed, total uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	percent = min(max(percent, t.percent, PercentStart), PercentComplete)
	t.percent = percent

	elapsed := t.clock.Now().Sub(t.start)
	s := Snapshot{
		JobID:            t.jobID,
		State:            state,
		Step:             step,
		Percent:          percent,
		RecordsProcessed: processed,
		TotalRecords:     total,
		Elapsed:          elapsed,
		Remaining:        EstimateRemaining(elapsed, percent),
		Throughput:       Throughput(processed, elapsed),
		MemoryMB:         t.memoryMB,
	}
	t.events++
	t.last = s

	t.sink.Report(s)
}

// Range returns a reporter scaling stage completion into [lo, hi].
func (t *Tracker) Range(state format.State, lo, hi float64) Range {
	return Range{t: t, state: state, lo: lo, hi: hi}
}

// Percent returns the last reported percentage.
func (t *Tracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.percent
}

// Events returns the number of snapshots delivered.
func (t *Tracker) Events() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.events
}

// Last returns the most recent snapshot.
func (t *Tracker) Last() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last
}

// Elapsed returns the time since Start.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.clock.Now().Sub(t.start)
}

// Range reports one stage's progress within its share of the job.
type Range struct {
	t      *Tracker
	state  format.State
	lo, hi float64
}

// Report emits a snapshot at lo + (hi-lo)*done/total.
func (r Range) Report(step string, done, total uint64) {
	frac := 1.0
	if total > 0 {
		frac = min(float64(done)/float64(total), 1.0)
	}

	r.t.Report(r.state, step, r.lo+(r.hi-r.lo)*frac, done, total)
}
