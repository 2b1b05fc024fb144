package nodelib

import (
	"math/rand"
	"testing"
	"time"

	"github.com/sideshow-paul/astroNS/core"
	"github.com/sideshow-paul/astroNS/model"
)

func testCtx(now float64) *core.StepContext {
	return &core.StepContext{Now: now, Rng: rand.New(rand.NewSource(1)), NodeName: "n"}
}

func TestRandomSourceEmitsWithinConfiguredBounds(t *testing.T) {
	cfg := model.NewConfig(map[string]model.Value{
		"random_size_min":  10.0,
		"random_size_max":  20.0,
		"random_delay_min": 1.0,
		"random_delay_max": 2.0,
		"single_pulse":     true,
	})
	src := NewRandomSource(cfg)
	ctx := testCtx(0)

	_, processing, outputs := src.Step(ctx, nil)
	if len(outputs) != 1 {
		t.Fatalf("expected exactly one emission, got %d", len(outputs))
	}
	size := outputs[0].SizeMbits("size_mbits")
	if size < 10 || size > 20 {
		t.Fatalf("size %v out of configured bounds", size)
	}
	if processing < time.Second || processing > 2*time.Second {
		t.Fatalf("processing delay %v out of configured bounds", processing)
	}
	if src.Active() {
		t.Fatalf("single_pulse source should deactivate after its first emission")
	}
}

func TestAddKeyValueTagsPayload(t *testing.T) {
	cfg := model.NewConfig(map[string]model.Value{"key": "collected", "value": 200.0})
	node := NewAddKeyValue(cfg)

	in := model.NewMessage(model.Payload{"ID": "m1"}, 0)
	_, _, out := node.Step(testCtx(0), in)
	if got := out[0].FieldOr("collected", nil); got != 200.0 {
		t.Fatalf("expected collected=200, got %v", got)
	}
	if _, ok := in.Field("collected"); ok {
		t.Fatalf("AddKeyValue must not mutate its input in place")
	}
}

func TestDelayTimeReflectsInputAfterFixedDelay(t *testing.T) {
	cfg := model.NewConfig(map[string]model.Value{"time_delay": 5.0})
	node := NewDelayTime(cfg)

	in := model.NewMessage(model.Payload{"ID": "m1"}, 0)
	_, processing, out := node.Step(testCtx(0), in)
	if processing != 5*time.Second {
		t.Fatalf("expected processing delay of 5s, got %v", processing)
	}
	if out[0].ID != "m1" {
		t.Fatalf("expected message identity preserved, got %q", out[0].ID)
	}
}

func TestDelaySizeScalesWithMessageSize(t *testing.T) {
	cfg := model.NewConfig(map[string]model.Value{"rate_per_mbit": 10.0})
	node := NewDelaySize(cfg)

	in := model.NewMessage(model.Payload{"ID": "m1", "size_mbits": 100.0}, 0)
	_, processing, _ := node.Step(testCtx(0), in)
	if processing != 10*time.Second {
		t.Fatalf("expected 100/10=10s delay, got %v", processing)
	}
}

func TestKeyDelayTimeUsesAbsoluteSimtimeField(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := model.NewConfig(map[string]model.Value{"delay_key": "due_at"})
	node := NewKeyDelayTime(epoch, cfg)

	in := model.NewMessage(model.Payload{"ID": "m1", "due_at": 30.0}, 0)
	_, processing, _ := node.Step(testCtx(10), in)
	if processing != 20*time.Second {
		t.Fatalf("expected delay=due_at-now=20s, got %v", processing)
	}
}

// TestAndGateStoresAndReleasesOnFIFO covers spec S3: a gate with two
// conditions that must each be satisfied (possibly by different messages)
// before any message passes through, with blocked messages stored and
// released in arrival order once the gate opens.
func TestAndGateStoresAndReleasesOnFIFO(t *testing.T) {
	cfg := model.NewConfig(map[string]model.Value{
		"drop_blocked_messages": false,
		"blocked_messages_FIFO": true,
	})
	conditions := []string{"SimTime >= 10", `ready == "true"`}
	gate := NewAndGate(cfg, conditions)

	blocked := model.NewMessage(model.Payload{"ID": "early"}, 0)
	blocked.TimeSent = 1
	_, _, out := gate.Step(testCtx(1), blocked)
	if out != nil {
		t.Fatalf("expected gate closed at t=1, got outputs %v", out)
	}

	trigger := model.NewMessage(model.Payload{"ID": "trigger", "ready": "true"}, 0)
	trigger.TimeSent = 12
	_, _, out = gate.Step(testCtx(12), trigger)
	if len(out) != 2 {
		t.Fatalf("expected both the stored and triggering message released, got %d", len(out))
	}
	if out[0].ID != "early" || out[1].ID != "trigger" {
		t.Fatalf("expected FIFO order [early trigger], got [%s %s]", out[0].ID, out[1].ID)
	}
}

func TestAndGateDropsWhenClosedAndConfiguredToDrop(t *testing.T) {
	cfg := model.NewConfig(map[string]model.Value{"drop_blocked_messages": true})
	gate := NewAndGate(cfg, []string{"SimTime >= 10"})

	in := model.NewMessage(model.Payload{"ID": "m1"}, 0)
	_, _, out := gate.Step(testCtx(1), in)
	if out != nil {
		t.Fatalf("expected message dropped while gate closed, got %v", out)
	}
}

// TestMinimizerAndMaximizerReduceListField covers spec S4.
func TestMinimizerAndMaximizerReduceListField(t *testing.T) {
	cfg := model.NewConfig(map[string]model.Value{"key": "samples"})
	in := model.NewMessage(model.Payload{"ID": "m1", "samples": []any{5.0, 1.0, 9.0}}, 0)

	min := NewMinimizer(cfg)
	_, _, minOut := min.Step(testCtx(0), in)
	if minOut[0].FieldOr("samples", nil) != 1.0 {
		t.Fatalf("expected minimum 1.0, got %v", minOut[0].FieldOr("samples", nil))
	}

	max := NewMaximizer(cfg)
	_, _, maxOut := max.Step(testCtx(0), in)
	if maxOut[0].FieldOr("samples", nil) != 9.0 {
		t.Fatalf("expected maximum 9.0, got %v", maxOut[0].FieldOr("samples", nil))
	}
}

type fixedMetaNode struct{}

func (fixedMetaNode) Position(simtime float64) core.Position { return core.Position{} }
func (fixedMetaNode) Coords(simtime float64) core.Vec3        { return core.Vec3{X: simtime, Y: 0, Z: 0} }

// TestPropagatorSamplesAttachedMetaNode covers spec S5's requirement that a
// propagator attach (t, x, y, z) samples for its attached meta-node over the
// configured window.
func TestPropagatorSamplesAttachedMetaNode(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := model.NewConfig(map[string]model.Value{
		"max_duration_s": 180.0,
		"time_step_s":    60.0,
	})
	prop := NewPropagator(epoch, cfg)

	ctx := testCtx(0)
	ctx.MetaNode = fixedMetaNode{}

	in := model.NewMessage(model.Payload{"ID": "m1"}, 0)
	_, _, out := prop.Step(ctx, in)

	samples, ok := out[0].FieldOr("Propagator_Results", nil).([]Sample)
	if !ok {
		t.Fatalf("expected []Sample stored under default storage key")
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples over a 180s window at 60s steps, got %d", len(samples))
	}
}

func TestSinkCountsArrivals(t *testing.T) {
	sink := NewSink()
	in := model.NewMessage(model.Payload{"ID": "m1"}, 0)
	sink.Step(testCtx(0), in)
	sink.Step(testCtx(1), in)
	if sink.Received() != 2 {
		t.Fatalf("expected 2 received, got %d", sink.Received())
	}
}
