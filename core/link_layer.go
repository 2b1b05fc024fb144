package core

import (
	"math"
	"math/rand"

	"github.com/sideshow-paul/astroNS/model"
)

// mathisC is the TCP-Reno constant in the Mathis throughput bound
// (throughput <= MSS*C / (RTT*sqrt(packet_loss))), matching the 0.93 default
// in original_source/.../network_throughput.py's calculate_throughput_mathis.
const mathisC = 0.93

// ComputeDelay computes an edge's delivery delay for the given message,
// implementing the three delay models SPEC_FULL.md §4.3 makes concrete:
// constant, size/rate, and the TCP-Mathis throughput estimate. Grounded on
// `original_source/.../nodes/core/network/mathis_delay.py` and generalized
// from the teacher's RF-link-budget `TransceiverModel`
// (core/transceiver_model.go) into a model-agnostic bandwidth/loss delay so
// both wired and wireless edges share this one function.
func ComputeDelay(spec model.LinkSpec, msg *model.Message) float64 {
	sizeKey := spec.MsgSizeKey
	if sizeKey == "" {
		sizeKey = "size_mbits"
	}

	switch spec.DelayModel {
	case model.DelaySizeRate:
		if spec.RateMbps <= 0 {
			return spec.LinkDelaySeconds
		}
		return msg.SizeMbits(sizeKey) / spec.RateMbps

	case model.DelayMathis:
		if spec.MSSMbits <= 0 || spec.PacketLoss <= 0 {
			return spec.LinkDelaySeconds
		}
		size := msg.SizeMbits(sizeKey)
		return size * spec.RTTSeconds * math.Sqrt(spec.PacketLoss) / (spec.MSSMbits * mathisC)

	default: // model.DelayConstant
		return spec.LinkDelaySeconds
	}
}

func sizeKeyOr(key string) string {
	if key == "" {
		return "size_mbits"
	}
	return key
}

// NodeLookup resolves a destination node name to its runtime Node, the
// engine-owned name table design note 9 prescribes in place of direct
// ownership references ("replace ownership cycles with destination names
// resolved through an engine-owned name -> node table").
type NodeLookup func(name string) (*Node, bool)

// Scheduled is the engine hook link_layer uses to post an Arrival event;
// Engine supplies this closure so link_layer never needs to see the
// scheduler or event types directly, keeping the dependency order leaf-ward
// (spec §2: "...node runtime -> link layer -> event scheduler ->
// orchestrator").
type Scheduled func(destName string, due float64, msg *model.Message)

// Dispatch enumerates node n's outgoing edges in the order of n.Links for
// every output message, evaluating each edge's predicate and, on a match,
// computing the delivery delay and invoking schedule with a per-edge
// message copy (spec §4.3, invariant 4: "each outgoing message traverses
// every outgoing link independently"). The scenario loader fills n.Links
// sorted by destination name, not in the order the links appear in the
// scenario file, which keeps the order deterministic. rng
// is used to stamp each output message's random_router_value once, before
// fan-out, so every edge's percentage predicate (buildPercentage) sees the
// same bucket for a given message (spec §4.7, matching the Python
// original's NodePipe stamping the field once per message before fanout).
func Dispatch(n *Node, simtime float64, outputs []*model.Message, lookup NodeLookup, schedule Scheduled, stats *Stats, rng *rand.Rand) {
	for _, out := range outputs {
		if len(n.Links) == 0 {
			// A node with zero outgoing edges consumes its outputs
			// silently: no egress, no drop, nothing dispatched.
			continue
		}
		if stats != nil {
			stats.RecordEgress(n.Name)
		}
		if rng != nil {
			StampRouterValue(out, rng)
		}
		for _, edge := range n.Links {
			if !edge.Predicate(simtime, out) {
				if stats != nil {
					stats.RecordEdgeDrop(n.Name, edge.Dest)
				}
				continue
			}
			var destNode *Node
			if lookup != nil {
				var ok bool
				destNode, ok = lookup(edge.Dest)
				if !ok {
					if stats != nil {
						stats.RecordDispatchWarning(n.Name, edge.Dest)
					}
					continue
				}
			}
			if !geometryGateOK(n, destNode, edge.Spec, simtime) {
				if stats != nil {
					stats.RecordEdgeDrop(n.Name, edge.Dest)
				}
				continue
			}

			delay := ComputeDelay(edge.Spec, out)
			hop := out.Clone()
			hop.LastNode = n.Name
			hop.TimeSent = simtime
			hop.NextHopDelay = delay

			if stats != nil {
				stats.History().Record(HistoryEntry{
					SimTime:        simtime,
					Node:           n.Name,
					MessageID:      out.ID,
					SizeMbits:      out.SizeMbits(sizeKeyOr(edge.Spec.MsgSizeKey)),
					WaitTime:       out.WaitTime,
					ProcessingTime: out.ProcessingTime,
					NextHopDelay:   delay,
				})
			}

			schedule(edge.Dest, simtime+delay, hop)
		}
	}
}

// geometryGateOK reports whether a wireless edge's endpoints are currently
// visible to each other, generalizing the teacher's RF-link-budget
// TransceiverModel.MaxRangeKm (core/transceiver_model.go) into a
// model-agnostic range/elevation/line-of-sight gate (spec §4.3 "wireless...
// transceiver range and elevation gating"). An edge with both gating fields
// unset (the default, matching a wired link) always passes; an edge whose
// endpoints carry no attached MetaNode geometry also always passes, since
// there is nothing to gate on. Geometry is sampled at the time the message is
// dispatched, not when it arrives.
func geometryGateOK(src, dest *Node, spec model.LinkSpec, simtime float64) bool {
	if spec.MaxRangeKm <= 0 && spec.MinElevationDeg <= 0 {
		return true
	}
	if dest == nil || src.MetaNode == nil || dest.MetaNode == nil {
		return true
	}

	p1 := src.MetaNode.Coords(simtime)
	p2 := dest.MetaNode.Coords(simtime)

	if spec.MaxRangeKm > 0 && p1.DistanceTo(p2) > spec.MaxRangeKm {
		return false
	}
	if spec.MinElevationDeg > 0 && ElevationDegrees(p1, p2) < spec.MinElevationDeg {
		return false
	}
	return hasLineOfSight(p1, p2)
}
