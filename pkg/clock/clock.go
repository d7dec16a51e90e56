// Package clock provides the abstract monotonic time source the Scheduler
// depends on, plus a real implementation and a test double. Mirrors the
// original core's IClock/Clock split.
package clock

import (
	"time"

	"github.com/me/mgfw/pkg/mutexcell"
)

// Clock is the abstract time source the Scheduler requires.
type Clock interface {
	// Now returns the current monotonic time.
	Now() time.Time
	// SleepUntil blocks the calling goroutine until t. The Scheduler never
	// calls this on its worker goroutine — it uses a condition variable
	// instead — but clients of the framework may use it directly.
	SleepUntil(t time.Time)
}

// Real is the production Clock, backed by the platform monotonic clock.
type Real struct{}

// NewReal returns a Real clock.
func NewReal() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) SleepUntil(t time.Time) {
	if d := time.Until(t); d > 0 {
		time.Sleep(d)
	}
}

// Mock is a test double exposing SetNow so tests can jump the clock without
// waiting in real time. Safe for concurrent use.
type Mock struct {
	state *mutexcell.Cell[mockState]
}

type mockState struct {
	now time.Time
}

// NewMock creates a Mock clock starting at t0.
func NewMock(t0 time.Time) *Mock {
	return &Mock{state: mutexcell.New(mockState{now: t0})}
}

func (m *Mock) Now() time.Time {
	return mutexcell.Transact(m.state, func(s *mockState) time.Time { return s.now })
}

// SetNow jumps the mock clock to t. This may move time backwards or
// forwards by an arbitrary amount — the Scheduler's clock-jump coalescing
// rule exists specifically to make large forward jumps safe.
func (m *Mock) SetNow(t time.Time) {
	mutexcell.Transact(m.state, func(s *mockState) struct{} {
		s.now = t
		return struct{}{}
	})
}

// Advance moves the mock clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	mutexcell.Transact(m.state, func(s *mockState) struct{} {
		s.now = s.now.Add(d)
		return struct{}{}
	})
}

// SleepUntil on the mock clock blocks only until the mock's own time
// reaches t, polling rather than actually sleeping in real time, so tests
// that exercise this capability stay fast.
func (m *Mock) SleepUntil(t time.Time) {
	for m.Now().Before(t) {
		time.Sleep(time.Millisecond)
	}
}
