package progress

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mddup/format"
	"github.com/arloliu/mddup/internal/clock"
)

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) Report(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func newTestTracker(t *testing.T) (*Tracker, *recorder, *clock.FakeClock) {
	t.Helper()

	rec := &recorder{}
	clk := clock.Fake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	tr := NewTracker("job-1", rec, clk)
	tr.Start()

	return tr, rec, clk
}

func TestTracker_Monotonic(t *testing.T) {
	tr, rec, _ := newTestTracker(t)

	tr.Report(format.StateLoading, "loaded", PercentLoaded, 0, 100)
	tr.Report(format.StateDuplicating, "late", 10, 0, 100)
	tr.Report(format.StateWriting, "writing", 70, 50, 100)
	tr.Report(format.StateComplete, "done", 140, 100, 100)

	require.Len(t, rec.snaps, 4)
	require.InDelta(t, 15.0, rec.snaps[0].Percent, 0)
	require.InDelta(t, 15.0, rec.snaps[1].Percent, 0)
	require.InDelta(t, 70.0, rec.snaps[2].Percent, 0)
	require.InDelta(t, 100.0, rec.snaps[3].Percent, 0)
	require.Equal(t, "job-1", rec.snaps[0].JobID)
	require.Equal(t, 4, tr.Events())
	require.Equal(t, rec.snaps[3], tr.Last())
	require.InDelta(t, 100.0, tr.Percent(), 0)
}

func TestTracker_TimingFields(t *testing.T) {
	tr, rec, clk := newTestTracker(t)
	tr.SetMemoryMB(12.5)

	clk.Advance(10 * time.Second)
	tr.Report(format.StateDuplicating, "dup", 25, 500, 1000)

	s := rec.snaps[0]
	require.Equal(t, 10*time.Second, s.Elapsed)
	require.Equal(t, 30*time.Second, s.Remaining)
	require.InDelta(t, 50.0, s.Throughput, 1e-9)
	require.InDelta(t, 12.5, s.MemoryMB, 0)
	require.Equal(t, 10*time.Second, tr.Elapsed())
}

func TestRange_Scaling(t *testing.T) {
	tr, rec, _ := newTestTracker(t)
	r := tr.Range(format.StateDuplicating, PercentDuplicateStart, PercentDuplicated)

	r.Report("a", 0, 300)
	r.Report("b", 150, 300)
	r.Report("c", 300, 300)
	r.Report("d", 400, 300)
	r.Report("e", 0, 0)

	got := make([]float64, 0, len(rec.snaps))
	for _, s := range rec.snaps {
		got = append(got, s.Percent)
		require.Equal(t, format.StateDuplicating, s.State)
	}
	require.Equal(t, []float64{20, 40, 60, 60, 60}, got)
}

func TestEstimateRemaining(t *testing.T) {
	require.Zero(t, EstimateRemaining(time.Minute, 0))
	require.Zero(t, EstimateRemaining(time.Minute, 100))
	require.Equal(t, time.Minute, EstimateRemaining(time.Minute, 50))
	require.Equal(t, 3*time.Minute, EstimateRemaining(time.Minute, 25))
}

func TestThroughput(t *testing.T) {
	require.Zero(t, Throughput(100, 0))
	require.InDelta(t, 40.0, Throughput(100, 2500*time.Millisecond), 1e-9)
}

func TestNewTracker_Defaults(t *testing.T) {
	tr := NewTracker("", nil, nil)
	tr.Start()
	tr.Report(format.StateLoading, "x", 5, 0, 0)
	require.Equal(t, 1, tr.Events())
}

func TestSnapshot_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("progress", "snapshot", Snapshot{State: format.StateWriting, Step: "Writing", Percent: 70})

	require.Contains(t, buf.String(), "snapshot.state=Writing")
	require.Contains(t, buf.String(), "snapshot.percent=70")
}
