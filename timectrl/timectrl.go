package timectrl

import (
	"container/heap"
	"time"
)

// SimClock is an interface for accessing simulation time. Components that
// only need to read the clock (diagnostics, reporters) depend on this
// rather than on the concrete Scheduler, enabling testability.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// Handle refers to a scheduled event and allows it to be cancelled before
// it fires. Cancelling an already-executed or already-cancelled handle is
// a no-op.
type Handle struct {
	cancelled bool
}

// Cancel prevents the event from firing.
func (h *Handle) Cancel() {
	if h != nil {
		h.cancelled = true
	}
}

// Cancelled reports whether Cancel has been called.
func (h *Handle) Cancelled() bool {
	return h != nil && h.cancelled
}

type event struct {
	at     time.Time
	seq    uint64
	fn     func()
	handle *Handle
}

// eventQueue orders events by time, breaking ties by insertion sequence so
// that events scheduled for the same instant run in scheduling order.
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(*event)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Scheduler is a single-threaded discrete-event scheduler. All callbacks
// run synchronously inside Run, one at a time, in non-decreasing simulated
// time order. It implements SimClock.
type Scheduler struct {
	now     time.Time
	seq     uint64
	queue   eventQueue
	stopped bool
}

// NewScheduler constructs a scheduler starting at the given simulation time.
func NewScheduler(start time.Time) *Scheduler {
	return &Scheduler{now: start}
}

// Now returns the current simulation time. Implements SimClock.
func (s *Scheduler) Now() time.Time { return s.now }

// ScheduleAt registers fn to run at the absolute simulation time t and
// returns a cancellation handle. Times in the past are clamped to now, so
// the event still runs (in scheduling order) rather than being lost.
func (s *Scheduler) ScheduleAt(t time.Time, fn func()) *Handle {
	if t.Before(s.now) {
		t = s.now
	}
	h := &Handle{}
	s.seq++
	heap.Push(&s.queue, &event{at: t, seq: s.seq, fn: fn, handle: h})
	return h
}

// ScheduleAfter registers fn to run d after the current simulation time.
func (s *Scheduler) ScheduleAfter(d time.Duration, fn func()) *Handle {
	return s.ScheduleAt(s.now.Add(d), fn)
}

// Run executes events until the queue drains, an event is scheduled past
// stop, or Stop is called. Events scheduled exactly at stop still run.
// The clock is left at the time of the last executed event.
func (s *Scheduler) Run(stop time.Time) {
	s.stopped = false
	for s.queue.Len() > 0 && !s.stopped {
		e := s.queue[0]
		if e.at.After(stop) {
			return
		}
		heap.Pop(&s.queue)
		if e.handle.Cancelled() {
			continue
		}
		s.now = e.at
		e.fn()
	}
}

// Stop halts Run after the current event finishes. Pending events remain
// queued; a subsequent Run resumes from the same point.
func (s *Scheduler) Stop() { s.stopped = true }

// Pending returns the number of queued (possibly cancelled) events.
func (s *Scheduler) Pending() int { return s.queue.Len() }
