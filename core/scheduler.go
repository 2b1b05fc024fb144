package core

import (
	"container/heap"
	"sync/atomic"
)

// Scheduler is the engine's min-heap of timed events (spec §4.1). It
// guarantees strictly non-decreasing virtual time across pops (spec §3
// invariant 1) and deterministic FIFO tie-breaking via a monotonic
// sequence counter, replacing the teacher's tick-driven
// `SimulationEngine.Run` (core/simulation_engine.go) and generalizing the
// sorted-slice scheduler in the pack's satnet-simulator example
// (internal/engine/simulation.go) into a proper binary heap so that
// Schedule is O(log n) instead of O(n log n) per insert.
type Scheduler struct {
	queue eventHeap
	seq   uint64
	now   float64
	stop  atomic.Bool
}

// NewScheduler returns an empty scheduler with virtual time at 0.
func NewScheduler() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.queue)
	return s
}

// Now returns the current virtual time.
func (s *Scheduler) Now() float64 { return s.now }

// Stop requests cooperative early termination: Run finishes dispatching the
// current event and then exits the loop, per spec §5 "Cancellation". It
// does not interrupt a step in progress.
func (s *Scheduler) Stop() { s.stop.Store(true) }

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool { return s.stop.Load() }

// Schedule assigns the next monotonic sequence number and inserts ev at due.
// It returns the event so callers can later set ev.Superseded to cancel it.
func (s *Scheduler) Schedule(due float64, ev *Event) *Event {
	ev.Due = due
	ev.Seq = s.nextSeq()
	heap.Push(&s.queue, ev)
	return ev
}

func (s *Scheduler) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// Len reports the number of pending (including superseded) events.
func (s *Scheduler) Len() int { return s.queue.Len() }

// Run pops events in (Due, Seq) order, advancing Now to each event's Due
// time, and invokes dispatch for every non-superseded event whose Due does
// not exceed until. It stops when the heap is empty, the next due time
// exceeds until, or Stop() has been called between dispatches.
func (s *Scheduler) Run(until float64, dispatch func(*Event)) {
	for s.queue.Len() > 0 {
		if s.stop.Load() {
			return
		}
		next := s.queue[0]
		if next.Due > until {
			return
		}
		heap.Pop(&s.queue)
		s.now = next.Due
		if next.Superseded {
			continue
		}
		if next.Action != nil {
			next.Action()
			continue
		}
		dispatch(next)
	}
}

// eventHeap implements container/heap.Interface ordering by (Due, Seq).
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Due != h[j].Due {
		return h[i].Due < h[j].Due
	}
	return h[i].Seq < h[j].Seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
