// Package clock abstracts wall-clock reads so job timing, output directory
// names and report timestamps are deterministic under test.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns the system clock.
func Real() Clock { return realClock{} }

// FakeClock is a manually driven Clock for tests. It is safe for concurrent use.
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// Fake returns a FakeClock frozen at start.
func Fake(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time, then advances it by the auto step.
func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now
	f.now = f.now.Add(f.step)

	return now
}

// Advance moves the clock forward by d.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// SetStep makes every Now call advance the clock by d afterwards.
func (f *FakeClock) SetStep(d time.Duration) {
	f.mu.Lock()
	f.step = d
	f.mu.Unlock()
}
