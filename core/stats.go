package core

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sideshow-paul/astroNS/model"
)

// NodeStats holds per-node counters (spec §3 "Node... per-node statistics
// counters", §4.6). A Stats instance owns one NodeStats per node name plus
// the shared Prometheus collectors (spec §2 domain stack), generalizing the
// teacher's NBICollector/SchedulerCollector pattern
// (internal/observability/metrics.go, scheduler_metrics.go) from gRPC/path
//-computation counters to engine counters.
type NodeStats struct {
	Ingress        int
	Egress         int
	Dropped        int
	EdgeDrops      map[string]int
	TotalWaitTime  float64
	TotalProcessed float64
	MaxQueueDepth  int
}

// Stats aggregates per-node counters and a bounded message-history ring
// (design note 9's "back-pressure... per-node queue-depth statistics").
type Stats struct {
	nodes map[string]*NodeStats
	ring  *HistoryRing

	collector *Collector
}

// NewStats constructs an empty statistics aggregator with a history ring of
// the given capacity (0 disables history recording, spec §6
// "node-stats-history").
func NewStats(historyCapacity int, collector *Collector) *Stats {
	return &Stats{
		nodes:     make(map[string]*NodeStats),
		ring:      NewHistoryRing(historyCapacity),
		collector: collector,
	}
}

func (s *Stats) nodeStats(name string) *NodeStats {
	ns, ok := s.nodes[name]
	if !ok {
		ns = &NodeStats{EdgeDrops: make(map[string]int)}
		s.nodes[name] = ns
	}
	return ns
}

// RecordIngress marks a message as delivered to a node's input queue (spec
// invariant 6: "statistics updates happen atomically with the corresponding
// event transition" — here, the caller records immediately after the queue
// mutation, within the same dispatch, so no other event can interleave).
func (s *Stats) RecordIngress(node string, queueDepth int) {
	ns := s.nodeStats(node)
	ns.Ingress++
	if queueDepth > ns.MaxQueueDepth {
		ns.MaxQueueDepth = queueDepth
	}
	if s.collector != nil {
		s.collector.Ingress.WithLabelValues(node).Inc()
		s.collector.QueueDepth.WithLabelValues(node).Set(float64(queueDepth))
	}
}

// RecordStep records a completed step's wait time and reserved processing
// time.
func (s *Stats) RecordStep(node string, waitTime, processingTime float64) {
	ns := s.nodeStats(node)
	ns.TotalWaitTime += waitTime
	ns.TotalProcessed++
	if s.collector != nil {
		s.collector.WaitSeconds.WithLabelValues(node).Observe(waitTime)
		s.collector.ProcessingSeconds.WithLabelValues(node).Observe(processingTime)
	}
}

// RecordEgress records one output message leaving a node. Dispatch calls it
// once per output of a node that has at least one outgoing edge, before any
// edge is tried, so the count does not depend on how many edges the message
// matches.
func (s *Stats) RecordEgress(node string) {
	ns := s.nodeStats(node)
	ns.Egress++
	if s.collector != nil {
		s.collector.Egress.WithLabelValues(node).Inc()
	}
}

// RecordEdgeDrop records a drop on a specific edge: a false predicate, or a
// failed range/elevation/line-of-sight check (spec §4.3 "increment per-edge
// drop counter").
func (s *Stats) RecordEdgeDrop(node, dest string) {
	ns := s.nodeStats(node)
	ns.EdgeDrops[dest]++
	ns.Dropped++
	if s.collector != nil {
		s.collector.EdgeDrops.WithLabelValues(node, dest).Inc()
	}
}

// RecordDispatchWarning records an output aimed at a destination node name
// that does not exist (spec §7 "Dispatch warning").
func (s *Stats) RecordDispatchWarning(node, dest string) {
	ns := s.nodeStats(node)
	ns.Dropped++
	if s.collector != nil {
		s.collector.DispatchWarnings.WithLabelValues(node, dest).Inc()
	}
}

// Snapshot returns a copy of all per-node counters keyed by node name. The
// result is a map, so it carries no order; callers that need deterministic
// output sort the names themselves.
func (s *Stats) Snapshot() map[string]NodeStats {
	out := make(map[string]NodeStats, len(s.nodes))
	for name, ns := range s.nodes {
		edgeDrops := make(map[string]int, len(ns.EdgeDrops))
		for k, v := range ns.EdgeDrops {
			edgeDrops[k] = v
		}
		cp := *ns
		cp.EdgeDrops = edgeDrops
		out[name] = cp
	}
	return out
}

// History returns the bounded message-history ring (spec §6 "msg_history").
func (s *Stats) History() *HistoryRing { return s.ring }

// HistoryEntry is one row of recorded message history (spec §6
// "node_log.txt: SimTime, Node, Data_ID, Data_Size, Wait_time,
// Processing_time, Delay_to_Next").
type HistoryEntry struct {
	SimTime        float64
	Node           string
	MessageID      string
	SizeMbits      float64
	WaitTime       float64
	ProcessingTime float64
	NextHopDelay   float64
}

// HistoryRing is a fixed-capacity ring buffer of HistoryEntry, recording the
// most recent N entries (design note 9's bounded-queue statistics extended
// to message history, spec §6 "node-stats-history").
type HistoryRing struct {
	capacity int
	entries  []HistoryEntry
	next     int
	full     bool
}

// NewHistoryRing constructs a ring of the given capacity; capacity <= 0
// disables recording (Record becomes a no-op).
func NewHistoryRing(capacity int) *HistoryRing {
	if capacity < 0 {
		capacity = 0
	}
	return &HistoryRing{capacity: capacity, entries: make([]HistoryEntry, capacity)}
}

// Record appends an entry, evicting the oldest when at capacity.
func (r *HistoryRing) Record(e HistoryEntry) {
	if r.capacity == 0 {
		return
	}
	r.entries[r.next] = e
	r.next = (r.next + 1) % r.capacity
	if r.next == 0 {
		r.full = true
	}
}

// Entries returns the recorded entries in chronological order.
func (r *HistoryRing) Entries() []HistoryEntry {
	if r.capacity == 0 {
		return nil
	}
	if !r.full {
		return append([]HistoryEntry(nil), r.entries[:r.next]...)
	}
	out := make([]HistoryEntry, 0, r.capacity)
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}

// RecordFromMessage is a convenience wrapper building a HistoryEntry from a
// dispatched message's hop-accounting fields.
func RecordFromMessage(ring *HistoryRing, node string, simtime float64, msg *model.Message, sizeKey string) {
	ring.Record(HistoryEntry{
		SimTime:        simtime,
		Node:           node,
		MessageID:      msg.ID,
		SizeMbits:      msg.SizeMbits(sizeKey),
		WaitTime:       msg.WaitTime,
		ProcessingTime: msg.ProcessingTime,
		NextHopDelay:   msg.NextHopDelay,
	})
}

// Collector bundles the Prometheus metrics exported by the simulation
// engine, grounded on the teacher's NBICollector/SchedulerCollector
// registration pattern (internal/observability/metrics.go,
// scheduler_metrics.go) but retargeted from gRPC/path-computation counters
// to per-node simulation counters.
type Collector struct {
	Ingress           *prometheus.CounterVec
	Egress            *prometheus.CounterVec
	EdgeDrops         *prometheus.CounterVec
	DispatchWarnings  *prometheus.CounterVec
	QueueDepth        *prometheus.GaugeVec
	WaitSeconds       *prometheus.HistogramVec
	ProcessingSeconds *prometheus.HistogramVec
}

// NewCollector registers engine metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ingress := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astrons_node_ingress_total",
		Help: "Total messages delivered to a node's input queue.",
	}, []string{"node"})
	if err := reg.Register(ingress); err != nil {
		if existing, ok := asExisting[*prometheus.CounterVec](err); ok {
			ingress = existing
		} else {
			return nil, fmt.Errorf("register astrons_node_ingress_total: %w", err)
		}
	}

	egress := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astrons_node_egress_total",
		Help: "Total messages dispatched from a node across all outgoing edges.",
	}, []string{"node"})
	if err := reg.Register(egress); err != nil {
		if existing, ok := asExisting[*prometheus.CounterVec](err); ok {
			egress = existing
		} else {
			return nil, fmt.Errorf("register astrons_node_egress_total: %w", err)
		}
	}

	edgeDrops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astrons_edge_drops_total",
		Help: "Total messages dropped on an edge due to a false predicate or a failed geometry check.",
	}, []string{"node", "dest"})
	if err := reg.Register(edgeDrops); err != nil {
		if existing, ok := asExisting[*prometheus.CounterVec](err); ok {
			edgeDrops = existing
		} else {
			return nil, fmt.Errorf("register astrons_edge_drops_total: %w", err)
		}
	}

	dispatchWarnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "astrons_dispatch_warnings_total",
		Help: "Total outputs aimed at a destination node name that does not exist.",
	}, []string{"node", "dest"})
	if err := reg.Register(dispatchWarnings); err != nil {
		if existing, ok := asExisting[*prometheus.CounterVec](err); ok {
			dispatchWarnings = existing
		} else {
			return nil, fmt.Errorf("register astrons_dispatch_warnings_total: %w", err)
		}
	}

	queueDepth := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "astrons_node_queue_depth",
		Help: "Current input queue depth for a node.",
	}, []string{"node"})
	if err := reg.Register(queueDepth); err != nil {
		if existing, ok := asExisting[*prometheus.GaugeVec](err); ok {
			queueDepth = existing
		} else {
			return nil, fmt.Errorf("register astrons_node_queue_depth: %w", err)
		}
	}

	waitSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astrons_node_wait_seconds",
		Help:    "Simulated seconds a message waited in a node's input queue before being stepped.",
		Buckets: []float64{0, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"node"})
	if err := reg.Register(waitSeconds); err != nil {
		if existing, ok := asExisting[*prometheus.HistogramVec](err); ok {
			waitSeconds = existing
		} else {
			return nil, fmt.Errorf("register astrons_node_wait_seconds: %w", err)
		}
	}

	processingSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astrons_node_processing_seconds",
		Help:    "Simulated setup+processing seconds reserved by a node's step.",
		Buckets: []float64{0, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}, []string{"node"})
	if err := reg.Register(processingSeconds); err != nil {
		if existing, ok := asExisting[*prometheus.HistogramVec](err); ok {
			processingSeconds = existing
		} else {
			return nil, fmt.Errorf("register astrons_node_processing_seconds: %w", err)
		}
	}

	return &Collector{
		Ingress:           ingress,
		Egress:            egress,
		EdgeDrops:         edgeDrops,
		DispatchWarnings:  dispatchWarnings,
		QueueDepth:        queueDepth,
		WaitSeconds:       waitSeconds,
		ProcessingSeconds: processingSeconds,
	}, nil
}

// asExisting recovers an already-registered collector of type T from a
// prometheus.AlreadyRegisteredError, the same re-registration tolerance the
// teacher's registerCounterVec/registerGauge helpers provide
// (internal/observability/metrics.go).
func asExisting[T any](err error) (T, bool) {
	var zero T
	are, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		return zero, false
	}
	existing, ok := are.ExistingCollector.(T)
	return existing, ok
}
