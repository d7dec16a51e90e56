package scheduler

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/me/mgfw/pkg/clock"
	"github.com/me/mgfw/pkg/logging"
)

func testSink() (*logging.SlogSink, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.NewSlogSinkWithWriter(logging.Warn, "text", &buf), &buf
}

func waitUntilTrue(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out after %v waiting for condition", timeout)
}

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func runInBackground(t *testing.T, s *Scheduler) (context.Context, context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return ctx, cancel, done
}

func TestOrderingByDueTime(t *testing.T) {
	sink, _ := testSink()
	mc := clock.NewMock(time.Unix(0, 0))
	s := New(mc, sink)
	_, cancel, done := runInBackground(t, s)
	defer func() { cancel(); <-done }()

	rec := &recorder{}
	s.SetTimeout(func() { rec.add("b") }, 20*time.Millisecond)
	s.SetTimeout(func() { rec.add("a") }, 5*time.Millisecond)

	mc.Advance(25 * time.Millisecond)
	s.DoNow(func() {}) // force a wake so the jump is noticed promptly

	waitUntilTrue(t, time.Second, func() bool { return len(rec.snapshot()) == 2 })

	got := rec.snapshot()
	if got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b] by due time, got %v", got)
	}
}

func TestCancelJobPreventsRun(t *testing.T) {
	sink, _ := testSink()
	mc := clock.NewMock(time.Unix(0, 0))
	s := New(mc, sink)
	_, cancel, done := runInBackground(t, s)
	defer func() { cancel(); <-done }()

	rec := &recorder{}
	id := s.SetTimeout(func() { rec.add("ran") }, 10*time.Millisecond)
	if !s.CancelJob(id) {
		t.Fatal("expected CancelJob to find the pending job")
	}

	mc.Advance(15 * time.Millisecond)
	s.DoNow(func() {})

	time.Sleep(100 * time.Millisecond)
	if len(rec.snapshot()) != 0 {
		t.Fatalf("expected cancelled job never to run, got %v", rec.snapshot())
	}
}

func TestLargeClockJumpIsNoticedWithoutWake(t *testing.T) {
	sink, _ := testSink()
	mc := clock.NewMock(time.Unix(0, 0))
	s := New(mc, sink)
	_, cancel, done := runInBackground(t, s)
	defer func() { cancel(); <-done }()

	rec := &recorder{}
	s.SetTimeout(func() { rec.add("ran") }, time.Hour)

	mc.Advance(2 * time.Hour)

	// No explicit wake: the worker's bounded idle wait re-samples the clock
	// on its own within idleWait, so a large forward jump is still noticed
	// without needing a real wall-clock hour to pass.
	waitUntilTrue(t, 2*time.Second, func() bool { return len(rec.snapshot()) == 1 })
}

func TestExceptionIsolationContinuesLoop(t *testing.T) {
	sink, buf := testSink()
	mc := clock.NewMock(time.Unix(0, 0))
	s := New(mc, sink)
	_, cancel, done := runInBackground(t, s)
	defer func() { cancel(); <-done }()

	rec := &recorder{}
	s.SetTimeout(func() { panic("boom") }, 5*time.Millisecond)
	s.SetTimeout(func() { rec.add("after") }, 10*time.Millisecond)

	mc.Advance(15 * time.Millisecond)
	s.DoNow(func() {})

	waitUntilTrue(t, time.Second, func() bool { return len(rec.snapshot()) == 1 })
	if !strings.Contains(buf.String(), "threw") {
		t.Fatalf("expected a panic to be logged, got: %s", buf.String())
	}
}

func TestSetIntervalReschedules(t *testing.T) {
	sink, _ := testSink()
	mc := clock.NewMock(time.Unix(0, 0))
	s := New(mc, sink)
	_, cancel, done := runInBackground(t, s)
	defer func() { cancel(); <-done }()

	rec := &recorder{}
	s.SetInterval(func() { rec.add("tick") }, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		mc.Advance(10 * time.Millisecond)
		s.DoNow(func() {})
		waitUntilTrue(t, time.Second, func() bool { return len(rec.snapshot()) == i+1 })
	}
}

func TestIntervalJobKeepsItsIDAcrossFirings(t *testing.T) {
	sink, _ := testSink()
	mc := clock.NewMock(time.Unix(0, 0))
	s := New(mc, sink)
	_, cancel, done := runInBackground(t, s)
	defer func() { cancel(); <-done }()

	rec := &recorder{}
	id := s.SetInterval(func() { rec.add("tick") }, 10*time.Millisecond)

	mc.Advance(10 * time.Millisecond)
	s.DoNow(func() {})
	waitUntilTrue(t, time.Second, func() bool { return len(rec.snapshot()) == 1 })

	if !s.CancelJob(id) {
		t.Fatal("expected the original handle to still cancel the job after its first firing")
	}

	mc.Advance(20 * time.Millisecond)
	s.DoNow(func() {})

	time.Sleep(50 * time.Millisecond)
	if len(rec.snapshot()) != 1 {
		t.Fatalf("expected no further firings after cancelling the same id, got %v", rec.snapshot())
	}
}

func TestIntervalCadenceUsesDueTimeNotRunTime(t *testing.T) {
	sink, _ := testSink()
	t0 := time.Unix(0, 0)
	mc := clock.NewMock(t0)
	s := New(mc, sink)
	_, cancel, done := runInBackground(t, s)
	defer func() { cancel(); <-done }()

	rec := &recorder{}
	s.SetInterval(func() { rec.add("tick") }, 10*time.Millisecond) // due at t0+10ms

	// Advance past the due time but not far enough to skip the next
	// interval boundary: the run is "late" by 5ms, not by a whole interval.
	mc.Advance(15 * time.Millisecond)
	s.DoNow(func() {})
	waitUntilTrue(t, time.Second, func() bool { return len(rec.snapshot()) == 1 })

	// Give the requeue a moment to land, then inspect the next deadline.
	waitUntilTrue(t, time.Second, func() bool { return len(s.SnapshotInfo()) == 1 })
	infos := s.SnapshotInfo()

	want := t0.Add(20 * time.Millisecond) // due(10ms) + interval(10ms), not now(15ms) + interval(10ms)
	if !infos[0].Deadline.Equal(want) {
		t.Fatalf("expected next deadline %v (due + interval), got %v", want, infos[0].Deadline)
	}
}

func TestRequestStopEndsRun(t *testing.T) {
	sink, _ := testSink()
	mc := clock.NewMock(time.Unix(0, 0))
	s := New(mc, sink)
	_, _, done := runInBackground(t, s)

	s.RequestStop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error from RequestStop, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Run to return after RequestStop")
	}
}

func TestRunReturnsContextError(t *testing.T) {
	sink, _ := testSink()
	mc := clock.NewMock(time.Unix(0, 0))
	s := New(mc, sink)
	_, cancel, done := runInBackground(t, s)

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Run to return after ctx cancel")
	}
}

func TestSnapshotReportsPendingJobsInDueOrder(t *testing.T) {
	sink, _ := testSink()
	mc := clock.NewMock(time.Unix(0, 0))
	s := New(mc, sink)

	idB := s.SetTimeout(func() {}, 20*time.Millisecond)
	idA := s.SetTimeout(func() {}, 5*time.Millisecond)

	snap := s.Snapshot()
	if len(snap) != 2 || snap[0] != idA || snap[1] != idB {
		t.Fatalf("expected [%d %d], got %v", idA, idB, snap)
	}
}
