package nodelib

import (
	"sort"
	"time"

	"github.com/sideshow-paul/astroNS/core"
	"github.com/sideshow-paul/astroNS/model"
)

// AndGate blocks messages until a set of predicate conditions have all been
// satisfied by some message seen so far, ported from original_source/.../
// nodes/core/network/and_gate.py. Each condition is evaluated independently
// against every arriving message that carries the condition's field (a
// SimTime condition against every message): a condition need not be satisfied by a
// single message, it accumulates true/false across the node's lifetime
// exactly as the Python gate_values list does.
//
// While the gate is closed, arriving messages are either dropped or stored
// (DropBlockedMessages). Once the gate opens, the triggering message and
// any stored messages are released together, ordered FIFO or LIFO by
// arrival (BlockedMessagesFIFO), matching spec S3.
type AndGate struct {
	Conditions          []string
	TimeDelay           time.Duration
	ProcessingDelay     time.Duration
	DropBlockedMessages bool
	BlockedMessagesFIFO bool

	predicates    []core.Predicate
	gateValues    []bool
	gateValuesSet []bool
	stored        []*model.Message
}

// NewAndGate builds an AndGate from resolved config. Condition strings that
// fail to parse are skipped with the gate value left perpetually false for
// that slot, rather than failing the whole node — a load-time predicate
// parse failure (spec §7) should be caught earlier, by the scenario loader
// compiling every condition with ParsePredicate before handing the node to
// the engine.
func NewAndGate(cfg *model.Config, conditions []string) *AndGate {
	ag := &AndGate{
		Conditions:          conditions,
		TimeDelay:           durationSeconds(cfg.Float("time_delay", 0.0)),
		ProcessingDelay:     durationSeconds(cfg.Float("processing_delay", 0.0)),
		DropBlockedMessages: cfg.Bool("drop_blocked_messages", true),
		BlockedMessagesFIFO: cfg.Bool("blocked_messages_FIFO", true),
		gateValues:          make([]bool, len(conditions)),
		gateValuesSet:       make([]bool, len(conditions)),
	}
	for _, c := range conditions {
		pred, err := core.ParsePredicate(c)
		if err != nil {
			pred = func(float64, *model.Message) bool { return false }
		}
		ag.predicates = append(ag.predicates, pred)
	}
	return ag
}

func (a *AndGate) open() bool {
	if len(a.predicates) == 0 {
		return true
	}
	for i := range a.gateValues {
		if !a.gateValuesSet[i] || !a.gateValues[i] {
			return false
		}
	}
	return true
}

func (a *AndGate) Step(ctx *core.StepContext, in *model.Message) (time.Duration, time.Duration, []*model.Message) {
	if in == nil {
		return 0, 0, nil
	}

	for i, pred := range a.predicates {
		field := fieldOf(a.Conditions[i])
		if _, ok := in.Field(field); ok || field == "SimTime" {
			a.gateValues[i] = pred(ctx.Now, in)
			a.gateValuesSet[i] = true
		}
	}

	if !a.open() {
		if !a.DropBlockedMessages {
			a.stored = append(a.stored, in.Clone())
		}
		return a.ProcessingDelay, a.TimeDelay, nil
	}

	if a.DropBlockedMessages {
		return a.ProcessingDelay, a.TimeDelay, []*model.Message{in.Clone()}
	}

	out := append([]*model.Message{in.Clone()}, a.stored...)
	a.stored = nil
	sort.SliceStable(out, func(i, j int) bool {
		if a.BlockedMessagesFIFO {
			return out[i].TimeSent < out[j].TimeSent
		}
		return out[i].TimeSent > out[j].TimeSent
	})
	return a.ProcessingDelay, a.TimeDelay, out
}

// fieldOf extracts the field name a condition string references, reusing
// the same leading-token convention every predicate pattern in
// core/predicate.go agrees on: the field is whatever precedes the first
// operator/keyword. Since core.ParsePredicate already compiled the
// condition, this only needs a cheap heuristic to decide whether a given
// incoming message is even relevant to this slot (the Python original's "if
// field in data_in" short-circuit). Step leaves a slot unchanged for a
// message that lacks the condition's field; SimTime is not a payload field,
// so Step evaluates a SimTime condition against every message.
func fieldOf(condition string) string {
	for i := 0; i < len(condition); i++ {
		if condition[i] == ' ' {
			return condition[:i]
		}
	}
	return condition
}
