package core

import (
	"math/rand"
	"time"

	"github.com/sideshow-paul/astroNS/model"
)

// StepContext is passed to every Behavior.Step call, carrying the
// engine-scoped objects design note 9 calls for ("replace process-wide
// random stream... with explicit engine-scoped objects passed to every node
// at construction: the engine owns the RNG and the clock, nodes hold
// references").
type StepContext struct {
	Now      float64
	Rng      *rand.Rand
	NodeName string
	MetaNode MetaNode
}

// Behavior is the node contract of spec §4.2:
//
//	step(input_msg_or_none) -> (setup_delay, processing_delay, outputs)
//
// Go has no generators, so design note 9's "explicit state enum per node
// type" becomes a stateful struct implementing this interface: AndGate
// keeps its gate_values as struct fields, Maximizer holds no state at all,
// and so on (core/nodelib/*).
type Behavior interface {
	// Step consumes at most one input message (nil for a source's bootstrap
	// or continued-activity re-invocation) and returns the node's
	// reservation delays plus zero or more outputs.
	Step(ctx *StepContext, in *model.Message) (setup, processing time.Duration, outputs []*model.Message)
}

// ActiveSource is implemented by source behaviors that want to be
// re-invoked with nil input at their own ready time for as long as they
// report themselves active (spec §4.2 "Source nodes... Sources that
// declare themselves continuously active are re-invoked at their ready
// time as long as their active flag is true; single-pulse sources exit
// after one emission.").
type ActiveSource interface {
	Active() bool
}

// Edge is one outgoing connection from a node, resolved by the scenario
// loader into a compiled Predicate plus the immutable LinkSpec it was built
// from (spec §3 "Link").
type Edge struct {
	Dest      string
	Predicate Predicate
	Spec      model.LinkSpec
}

// Node wraps a Behavior with the FIFO input queue and reservation clock
// spec §3's Node data model and §4.2's state machine require. It replaces
// ownership of downstream nodes with destination *names* (design note 9,
// "replace ownership cycles... with destination names resolved through an
// engine-owned name -> node table") — Links here carry Dest strings, and
// Engine resolves them through its node table at dispatch time.
type Node struct {
	Name     string
	Behavior Behavior
	MetaNode MetaNode
	Config   *model.Config
	Links    []Edge

	state        model.NodeState
	readyAt      float64
	queue        []queuedMessage
	IsSourceHint bool
}

type queuedMessage struct {
	msg     *model.Message
	arrived float64
}

// NewNode constructs an idle node wrapping behavior, with an optional
// attached meta-node (spec §3 "optional attachment to a meta-node").
func NewNode(name string, behavior Behavior, meta MetaNode, cfg *model.Config) *Node {
	return &Node{
		Name:     name,
		Behavior: behavior,
		MetaNode: meta,
		Config:   cfg,
		state:    model.NodeIdle,
	}
}

// State reports the node's current reservation state.
func (n *Node) State() model.NodeState { return n.state }

// ReadyAt returns the simtime at which a busy node becomes idle again.
func (n *Node) ReadyAt() float64 { return n.readyAt }

// QueueDepth reports the number of messages currently buffered (spec
// design note 9: "per-node queue-depth statistics").
func (n *Node) QueueDepth() int { return len(n.queue) }

// Enqueue appends an arriving message to the FIFO input buffer (spec
// invariant 2: "while reserved, incoming messages queue in FIFO order").
func (n *Node) Enqueue(msg *model.Message, simtime float64) {
	n.queue = append(n.queue, queuedMessage{msg: msg, arrived: simtime})
}

// Dequeue pops the oldest queued message, if any.
func (n *Node) Dequeue() (*model.Message, float64, bool) {
	if len(n.queue) == 0 {
		return nil, 0, false
	}
	qm := n.queue[0]
	n.queue = n.queue[1:]
	return qm.msg, qm.arrived, true
}

// MarkBusy reserves the node until readyAt (spec §4.2 reservation window).
func (n *Node) MarkBusy(readyAt float64) {
	n.state = model.NodeBusy
	n.readyAt = readyAt
}

// MarkIdle releases the node's reservation.
func (n *Node) MarkIdle() {
	n.state = model.NodeIdle
	n.readyAt = 0
}

// IsSource reports whether this node is a bootstrap source, used at
// scenario start to decide which nodes receive the initial nil-input Step
// call (spec §4.2 "Source nodes... driven by a bootstrap: at scenario start
// each source is invoked with None"). IsSourceHint is set explicitly by the
// scenario loader (or by tests constructing a Node directly) rather than
// inferred from absence of inbound edges, since a node can have no inbound
// edges in a disconnected test scenario without being a logical source.
func (n *Node) IsSource() bool { return n.IsSourceHint }
