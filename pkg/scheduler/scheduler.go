// Package scheduler implements a timer-queue scheduler: jobs are run once
// or on a repeating interval, ordered by due time against a pluggable
// Clock, with cancellation and per-job exception isolation. It mirrors the
// original core's Scheduler, built on the same mutex-cell-plus-condition-
// variable substrate as the Injector (pkg/mutexcell), so a Clock double
// that jumps time arbitrarily still wakes the worker loop correctly — the
// loop always rechecks the heap's earliest due time against the Clock
// under the lock rather than trusting how long it actually slept.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/me/mgfw/pkg/clock"
	"github.com/me/mgfw/pkg/logging"
	"github.com/me/mgfw/pkg/mutexcell"
)

// idleWait bounds how long the worker loop blocks in one wait, whether its
// job heap is empty or its earliest job is due later than that, so a newly
// scheduled job or a clock jump is noticed within this bound even if no
// Broadcast arrives.
const idleWait = time.Second

type state struct {
	heap          jobHeap
	byID          map[JobID]*job
	nextID        JobID
	stopRequested bool
}

// Scheduler runs jobs against clk, reporting per-job panics and queue
// diagnostics through sink rather than letting either take the worker loop
// down.
type Scheduler struct {
	clock clock.Clock
	sink  logging.Sink
	cell  *mutexcell.Cell[state]
	cond  *sync.Cond
}

// New creates a Scheduler with no jobs scheduled. Call Run to start its
// worker loop.
func New(clk clock.Clock, sink logging.Sink) *Scheduler {
	cell := mutexcell.New(state{byID: make(map[JobID]*job)})
	return &Scheduler{
		clock: clk,
		sink:  sink,
		cell:  cell,
		cond:  cell.NewCond(),
	}
}

// DoNow schedules fn to run as soon as the worker loop next wakes. desc is
// an optional label surfaced by SnapshotInfo and the debug server's /jobs
// endpoint; at most one is used.
func (s *Scheduler) DoNow(fn func(), desc ...string) JobID {
	return s.schedule(fn, 0, 0, firstDesc(desc))
}

// SetTimeout schedules fn to run once, after d.
func (s *Scheduler) SetTimeout(fn func(), d time.Duration, desc ...string) JobID {
	return s.schedule(fn, d, 0, firstDesc(desc))
}

// SetInterval schedules fn to run every d, starting after the first d
// elapses.
func (s *Scheduler) SetInterval(fn func(), d time.Duration, desc ...string) JobID {
	return s.schedule(fn, d, d, firstDesc(desc))
}

func firstDesc(desc []string) string {
	if len(desc) > 0 {
		return desc[0]
	}
	return ""
}

func (s *Scheduler) schedule(fn func(), delay, interval time.Duration, desc string) JobID {
	now := s.clock.Now()

	g := s.cell.Lock()
	st := g.Get()
	st.nextID++
	id := st.nextID
	j := &job{id: id, when: now.Add(delay), interval: interval, fn: fn, desc: desc}
	st.byID[id] = j
	heap.Push(&st.heap, j)
	g.Unlock()

	s.cond.Broadcast()
	return id
}

// CancelJob removes a pending job by id, reporting whether it was found and
// still pending. Cancelling a job already in flight on the worker goroutine
// has no effect on that run.
func (s *Scheduler) CancelJob(id JobID) bool {
	g := s.cell.Lock()
	defer g.Unlock()

	st := g.Get()
	j, ok := st.byID[id]
	if !ok {
		return false
	}
	j.cancelled = true
	delete(st.byID, id)
	return true
}

// RequestStop asks the worker loop started by Run to return after its
// current job, if any, finishes. Idempotent.
func (s *Scheduler) RequestStop() {
	g := s.cell.Lock()
	g.Get().stopRequested = true
	g.Unlock()
	s.cond.Broadcast()
}

// Snapshot reports the ids of currently pending (not yet run, not
// cancelled) jobs, earliest due time first.
func (s *Scheduler) Snapshot() []JobID {
	infos := s.SnapshotInfo()
	ids := make([]JobID, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return ids
}

// JobInfo is a point-in-time, read-only view of a pending job, reported by
// SnapshotInfo for the debug server's /jobs introspection endpoint.
type JobInfo struct {
	ID       JobID
	Deadline time.Time
	Interval time.Duration
	Desc     string
}

// SnapshotInfo is like Snapshot but reports each pending job's deadline,
// interval and description alongside its id, earliest due time first.
func (s *Scheduler) SnapshotInfo() []JobInfo {
	g := s.cell.Lock()
	defer g.Unlock()

	st := g.Get()
	ordered := make(jobHeap, len(st.heap))
	copy(ordered, st.heap)
	heap.Init(&ordered)

	infos := make([]JobInfo, 0, len(ordered))
	for ordered.Len() > 0 {
		j := heap.Pop(&ordered).(*job)
		if !j.cancelled {
			infos = append(infos, JobInfo{ID: j.id, Deadline: j.when, Interval: j.interval, Desc: j.desc})
		}
	}
	return infos
}

// Run drives the worker loop until ctx is cancelled or RequestStop is
// called, whichever comes first, returning ctx.Err() in the former case and
// nil in the latter.
func (s *Scheduler) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.RequestStop()
		case <-stop:
		}
	}()

	for {
		due, waitFor, shouldStop := s.nextAction()
		if shouldStop {
			if err := ctx.Err(); err != nil {
				return err
			}
			return nil
		}
		if due != nil {
			s.runIsolated(due)
			if due.interval > 0 && !due.cancelled {
				s.requeue(due)
			}
			continue
		}

		s.cell.CondWaitUntil(s.cond, waitFor, func(st *state) bool {
			return st.stopRequested || (len(st.heap) > 0 && !st.heap[0].when.After(s.clock.Now()))
		})
	}
}

// requeue re-inserts j, the same job that just ran, for its next interval
// firing, preserving its id — so a handle taken before the first firing
// still cancels a later one — and advancing its deadline by one interval
// from when it was *due* rather than from now, so a slow handler doesn't
// drift the cadence. Only when that deadline has already passed (the
// handler ran long enough to miss it) does it coalesce to now+interval,
// rather than queuing a backlog of immediate catch-up runs.
func (s *Scheduler) requeue(j *job) {
	now := s.clock.Now()
	next := j.when.Add(j.interval)
	if !next.After(now) {
		next = now.Add(j.interval)
	}
	j.when = next

	g := s.cell.Lock()
	st := g.Get()
	st.byID[j.id] = j
	heap.Push(&st.heap, j)
	g.Unlock()

	s.cond.Broadcast()
}

// nextAction inspects the heap once under the lock: it either pops and
// returns a due job, or reports how long to wait for the next one (idleWait
// when the heap is empty, and never more than idleWait otherwise), or
// reports that the loop should stop.
func (s *Scheduler) nextAction() (due *job, waitFor time.Duration, shouldStop bool) {
	g := s.cell.Lock()
	defer g.Unlock()
	st := g.Get()

	if st.stopRequested {
		return nil, 0, true
	}
	if len(st.heap) == 0 {
		return nil, idleWait, false
	}

	now := s.clock.Now()
	earliest := st.heap[0]
	if !earliest.when.After(now) {
		popped := heap.Pop(&st.heap).(*job)
		delete(st.byID, popped.id)
		return popped, 0, false
	}

	w := earliest.when.Sub(now)
	if w > idleWait {
		w = idleWait
	}
	return nil, w, false
}

// runIsolated invokes j.fn, recovering any panic so one misbehaving job
// never takes down the worker loop, reporting it through sink instead.
func (s *Scheduler) runIsolated(j *job) {
	if j.cancelled {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.sink.Error(fmt.Sprintf("Job %d (%s) threw: %v", j.id, j.desc, r))
		}
	}()
	j.fn()
}
