// Package model holds the plain data types exchanged and configured by the
// simulation engine: messages, link specs, and the node configuration
// coercion helpers. It carries no behavior of its own beyond small value
// methods (Clone, String) so that core, kb, and nodelib can all depend on it
// without import cycles.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Value is the type of a single payload field: a primitive scalar, a short
// list, or a nested map of the same. Scenario authors are free to name
// fields however they like; a handful of conventional names (ID, size_mbits,
// position) are used by the built-in node library.
type Value = any

// Payload is the open, free-form field map carried by a Message.
type Payload map[string]Value

// Message is the envelope passed between nodes. It is immutable by
// convention: node behaviors that want to mutate a payload should copy it
// first via Clone, matching the "deep-copy-on-edge" rule resolved in
// DESIGN.md for the payload-aliasing open question.
type Message struct {
	// ID is a unique identity string for this message. It is preserved
	// across hops so that message history can be reconstructed.
	ID string

	// Payload carries the user-defined fields.
	Payload Payload

	// CreatedAt is the simtime (seconds since epoch) the message was
	// created by a source or a transforming node.
	CreatedAt float64

	// LastNode is the name of the node that most recently emitted this
	// message, empty for a message fresh off a source.
	LastNode string

	// TimeSent is the simtime at which this hop's processing finished and
	// the message was handed to the link layer.
	TimeSent float64

	// WaitTime is how long this message sat in its destination node's
	// input queue before being stepped.
	WaitTime float64

	// ProcessingTime is the setup+processing delay the node reserved for
	// this message.
	ProcessingTime float64

	// NextHopDelay is the link delay applied when this message was last
	// dispatched across an edge.
	NextHopDelay float64
}

// NewMessageID returns a fresh random message identity, used by source
// behaviors that don't supply their own ID field.
func NewMessageID() string {
	return uuid.NewString()
}

// NewMessage constructs a message with the given payload at the given
// creation simtime. If the payload has no "ID" field, a uuid is generated
// and inserted so downstream code can always rely on msg.ID == payload["ID"].
func NewMessage(payload Payload, createdAt float64) *Message {
	if payload == nil {
		payload = Payload{}
	}
	id, ok := payload["ID"].(string)
	if !ok || id == "" {
		id = NewMessageID()
		payload["ID"] = id
	}
	return &Message{
		ID:        id,
		Payload:   payload,
		CreatedAt: createdAt,
	}
}

// Clone returns a deep-enough copy of the message: the envelope fields are
// copied by value and the payload map is copied one level deep (nested
// maps/slices are copied by reference, matching the Python original's
// dict.copy() shallow-copy-per-hop behavior for payload internals while
// still giving every edge its own top-level map so sibling edges cannot see
// each other's field mutations).
func (m *Message) Clone() *Message {
	clone := *m
	clone.Payload = make(Payload, len(m.Payload))
	for k, v := range m.Payload {
		clone.Payload[k] = v
	}
	return &clone
}

// Field returns the named payload field and whether it was present.
func (m *Message) Field(name string) (Value, bool) {
	v, ok := m.Payload[name]
	return v, ok
}

// FieldOr returns the named field, or def if absent.
func (m *Message) FieldOr(name string, def Value) Value {
	if v, ok := m.Payload[name]; ok {
		return v
	}
	return def
}

// SizeMbits returns the message's declared size, reading the field named by
// key (conventionally "size_mbits"), defaulting to 0 if absent or not
// numeric.
func (m *Message) SizeMbits(key string) float64 {
	v, ok := m.Payload[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (m *Message) String() string {
	return fmt.Sprintf("Message{ID:%s, fields:%d, created:%.3f}", m.ID, len(m.Payload), m.CreatedAt)
}

// EpochTime converts a simtime offset to an absolute UTC instant given the
// scenario epoch, per spec invariant 5 (epoch + simtime always yields a
// valid UTC instant).
func EpochTime(epoch time.Time, simtime float64) time.Time {
	return epoch.Add(time.Duration(simtime * float64(time.Second)))
}
