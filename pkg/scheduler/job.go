package scheduler

import "time"

// JobID names a scheduled job, monotonically assigned starting at 1.
type JobID uint32

// job is an internal scheduled unit of work: a one-shot job has interval
// zero; a repeating job is rescheduled interval after it runs, using the
// wall-clock time the job was due rather than the time it actually ran, so
// a slow handler doesn't drift the cadence.
type job struct {
	id        JobID
	when      time.Time
	interval  time.Duration
	fn        func()
	desc      string
	cancelled bool
}

// jobHeap is a container/heap.Interface ordering jobs by (due time, id),
// the id tie-break making the order deterministic for two jobs scheduled for
// the same instant, giving the worker loop O(log n) access to the next job
// to run or wait on.
type jobHeap []*job

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].id < h[j].id
	}
	return h[i].when.Before(h[j].when)
}
func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x any)   { *h = append(*h, x.(*job)) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
