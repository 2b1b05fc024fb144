package core

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/sideshow-paul/astroNS/model"
)

func TestComputeDelayConstant(t *testing.T) {
	spec := model.LinkSpec{DelayModel: model.DelayConstant, LinkDelaySeconds: 5}
	msg := model.NewMessage(model.Payload{}, 0)
	if d := ComputeDelay(spec, msg); d != 5 {
		t.Fatalf("constant delay = %v, want 5", d)
	}
}

func TestComputeDelaySizeRate(t *testing.T) {
	spec := model.LinkSpec{DelayModel: model.DelaySizeRate, RateMbps: 2}
	msg := model.NewMessage(model.Payload{"size_mbits": 10.0}, 0)
	if d := ComputeDelay(spec, msg); d != 5 {
		t.Fatalf("size/rate delay = %v, want 5", d)
	}
}

func TestComputeDelayMathis(t *testing.T) {
	spec := model.LinkSpec{
		DelayModel: model.DelayMathis,
		RTTSeconds: 0.1,
		MSSMbits:   0.012,
		PacketLoss: 0.01,
	}
	msg := model.NewMessage(model.Payload{"size_mbits": 1.0}, 0)

	// Hand-computed from the Mathis throughput bound
	// (throughput <= MSS*C/(RTT*sqrt(packet_loss)), C=0.93) inverted to a
	// delay: size/throughput = size*RTT*sqrt(packet_loss)/(MSS*C)
	// = 1.0 * 0.1 * sqrt(0.01) / (0.012 * 0.93)
	// = 0.01 / 0.01116 ~= 0.8960573476702509.
	const want = 0.8960573476702509
	if d := ComputeDelay(spec, msg); math.Abs(d-want) > 1e-9 {
		t.Fatalf("mathis delay = %v, want %v", d, want)
	}
}

// TestComputeDelayMathisIncreasesWithPacketLoss guards against the formula
// regressing to the inverted expression (which made delay decrease as loss
// increased): holding size/RTT/MSS fixed, higher loss must mean a longer
// delay, matching the Mathis bound's throughput dropping as sqrt(loss) grows
// in the denominator.
func TestComputeDelayMathisIncreasesWithPacketLoss(t *testing.T) {
	base := model.LinkSpec{DelayModel: model.DelayMathis, RTTSeconds: 0.1, MSSMbits: 0.012, PacketLoss: 0.01}
	lossy := base
	lossy.PacketLoss = 0.5
	msg := model.NewMessage(model.Payload{"size_mbits": 1.0}, 0)

	dBase := ComputeDelay(base, msg)
	dLossy := ComputeDelay(lossy, msg)
	if dLossy <= dBase {
		t.Fatalf("higher packet loss must increase delay: loss=0.01 -> %v, loss=0.5 -> %v", dBase, dLossy)
	}
}

func TestDispatchFanOutWithPredicate(t *testing.T) {
	redAlways, _ := ParsePredicate(`color == "red"`)
	blueAlways, _ := ParsePredicate(`color == "blue"`)

	src := &Node{Name: "src", Links: []Edge{
		{Dest: "R", Predicate: redAlways, Spec: model.LinkSpec{}},
		{Dest: "B", Predicate: blueAlways, Spec: model.LinkSpec{}},
	}}

	nodes := map[string]*Node{"R": {Name: "R"}, "B": {Name: "B"}}
	lookup := func(name string) (*Node, bool) { n, ok := nodes[name]; return n, ok }

	var scheduled []string
	schedule := func(dest string, due float64, msg *model.Message) {
		scheduled = append(scheduled, dest)
	}

	a := model.NewMessage(model.Payload{"ID": "a", "color": "red"}, 1)
	Dispatch(src, 1, []*model.Message{a}, lookup, schedule, nil, nil)

	if len(scheduled) != 1 || scheduled[0] != "R" {
		t.Fatalf("expected only R to receive the red message, got %v", scheduled)
	}
}

// TestDispatchStampsRouterValueForPercentagePredicate guards the "<start>
// <=> <end>" percentage predicate actually being reachable: Dispatch must
// stamp random_router_value onto every output message before evaluating
// edge predicates, or a percentage-gated edge could never fire.
func TestDispatchStampsRouterValueForPercentagePredicate(t *testing.T) {
	low, _ := ParsePredicate("0 <=> 49")
	high, _ := ParsePredicate("50 <=> 99")

	src := &Node{Name: "src", Links: []Edge{
		{Dest: "low", Predicate: low},
		{Dest: "high", Predicate: high},
	}}
	nodes := map[string]*Node{"low": {Name: "low"}, "high": {Name: "high"}}
	lookup := func(name string) (*Node, bool) { n, ok := nodes[name]; return n, ok }

	var scheduled []string
	schedule := func(dest string, due float64, msg *model.Message) {
		scheduled = append(scheduled, dest)
	}

	msg := model.NewMessage(model.Payload{}, 0)
	Dispatch(src, 0, []*model.Message{msg}, lookup, schedule, nil, rand.New(rand.NewSource(1)))

	if len(scheduled) != 1 {
		t.Fatalf("expected exactly one percentage bucket to match, got %v", scheduled)
	}
}

// TestDispatchDropsEdgeBeyondMaxRange guards the wireless range gate wired
// into geometryGateOK: two ground stations on opposite sides of the globe
// are far beyond any plausible MaxRangeKm, so the edge must be dropped
// rather than scheduled.
func TestDispatchDropsEdgeBeyondMaxRange(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	near := NewGeopoint(epoch, 0, 0, 0)
	far := NewGeopoint(epoch, 0, 180, 0)

	always := AlwaysTrue
	src := &Node{Name: "src", MetaNode: near, Links: []Edge{
		{Dest: "dst", Predicate: always, Spec: model.LinkSpec{MaxRangeKm: 1000}},
	}}
	nodes := map[string]*Node{"dst": {Name: "dst", MetaNode: far}}
	lookup := func(name string) (*Node, bool) { n, ok := nodes[name]; return n, ok }

	stats := NewStats(0, nil)
	called := false
	schedule := func(dest string, due float64, msg *model.Message) { called = true }

	Dispatch(src, 0, []*model.Message{model.NewMessage(model.Payload{}, 0)}, lookup, schedule, stats, nil)

	if called {
		t.Fatalf("edge beyond MaxRangeKm must not be scheduled")
	}
	if snap := stats.Snapshot()["src"]; snap.Dropped != 1 {
		t.Fatalf("expected one edge drop recorded, got %d", snap.Dropped)
	}
}

// TestDispatchAllowsEdgeWithinRangeAndElevation is the positive counterpart:
// two nearby ground stations, directly overlooking each other, must still
// dispatch when geometry gating is configured.
func TestDispatchAllowsEdgeWithinRangeAndElevation(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewGeopoint(epoch, 0, 0, 0)
	b := NewGeopoint(epoch, 0, 0.01, 0)

	always := AlwaysTrue
	src := &Node{Name: "src", MetaNode: a, Links: []Edge{
		{Dest: "dst", Predicate: always, Spec: model.LinkSpec{MaxRangeKm: 5000}},
	}}
	nodes := map[string]*Node{"dst": {Name: "dst", MetaNode: b}}
	lookup := func(name string) (*Node, bool) { n, ok := nodes[name]; return n, ok }

	var scheduled []string
	schedule := func(dest string, due float64, msg *model.Message) { scheduled = append(scheduled, dest) }

	Dispatch(src, 0, []*model.Message{model.NewMessage(model.Payload{}, 0)}, lookup, schedule, nil, nil)

	if len(scheduled) != 1 || scheduled[0] != "dst" {
		t.Fatalf("expected the nearby edge to dispatch, got %v", scheduled)
	}
}

// TestGeometryGateOKPassesWithoutGeometryConfigured guards the default case:
// an edge with no MaxRangeKm/MinElevationDeg set must never be gated, even
// when neither endpoint carries a MetaNode.
func TestGeometryGateOKPassesWithoutGeometryConfigured(t *testing.T) {
	src := &Node{Name: "src"}
	dst := &Node{Name: "dst"}
	if !geometryGateOK(src, dst, model.LinkSpec{}, 0) {
		t.Fatalf("an edge with no geometry gating configured must always pass")
	}
}

func TestDispatchDropsOnUnknownDestination(t *testing.T) {
	always := AlwaysTrue
	src := &Node{Name: "src", Links: []Edge{{Dest: "ghost", Predicate: always}}}

	lookup := func(string) (*Node, bool) { return nil, false }

	stats := NewStats(0, nil)
	called := false
	schedule := func(dest string, due float64, msg *model.Message) { called = true }

	Dispatch(src, 0, []*model.Message{model.NewMessage(model.Payload{}, 0)}, lookup, schedule, stats, nil)

	if called {
		t.Fatalf("schedule should not be invoked for a nonexistent destination")
	}
	snap := stats.Snapshot()["src"]
	if snap.Dropped != 1 {
		t.Fatalf("expected one dropped-dispatch stat, got %d", snap.Dropped)
	}
}

func TestDispatchZeroOutgoingEdgesIsSilent(t *testing.T) {
	sink := &Node{Name: "sink"}
	stats := NewStats(0, nil)
	Dispatch(sink, 0, []*model.Message{model.NewMessage(model.Payload{}, 0)}, nil, func(string, float64, *model.Message) {
		t.Fatalf("schedule should never be called for a node with no outgoing edges")
	}, stats, nil)

	snap := stats.Snapshot()["sink"]
	if snap.Egress != 0 {
		t.Fatalf("expected no egress recorded for a node with no outgoing edges, got %d", snap.Egress)
	}
}
