package core

import "github.com/sideshow-paul/astroNS/model"

// Kind identifies what an Event represents (spec §3 "Event").
type Kind int

const (
	// Arrival represents a message landing on a destination node's input
	// queue.
	Arrival Kind = iota
	// Ready represents the end of a node's reservation window, at which
	// point its outputs are dispatched to the link layer.
	Ready
	// Tick is a generic timer event kind. The engine itself never schedules
	// one (real-time pacing and source re-invocation run through Ready), and
	// its dispatch callback ignores a Tick that carries no Action.
	Tick
)

func (k Kind) String() string {
	switch k {
	case Arrival:
		return "Arrival"
	case Ready:
		return "Ready"
	case Tick:
		return "Tick"
	default:
		return "Unknown"
	}
}

// Event is a single scheduled occurrence, ordered by (Due, Seq) per the
// spec's §3 "Event" tuple and §4.1's FIFO tie-break rule.
type Event struct {
	Due  float64
	Seq  uint64
	Kind Kind

	// NodeName is the destination/owning node for Arrival and Ready
	// events.
	NodeName string

	// Message carries the payload for an Arrival event.
	Message *model.Message

	// Superseded marks an event as cancelled; it is skipped on pop
	// instead of being removed from the heap, per spec §4.1's optional
	// cancellation note.
	Superseded bool

	// Action, when non-nil, is invoked directly by Scheduler.Run instead of
	// the dispatch callback. The engine attaches one to every Ready event it schedules (the
	// closure that dispatches the node's outputs), so Event needs no extra
	// field per caller.
	Action func()
}
