package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/sideshow-paul/astroNS/core"
)

const andGateScenario = `
trigger:
  type: random_source
  random_size_min: 1
  random_size_max: 1
  random_delay_min: 1
  random_delay_max: 1
  single_pulse: true
  early: "~"
early:
  type: add_key_value
  key: ready
  value: "true"
  gate: "~"
gate:
  type: and_gate
  conditions:
    - "ready == \"true\""
    - "size_mbits > 0"
  drop_blocked_messages: false
  blocked_messages_FIFO: true
  sink: "~"
sink:
  type: sink
`

func TestBuildWiresAndGateScenarioEndToEnd(t *testing.T) {
	doc, err := Parse([]byte(andGateScenario), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loader := &Loader{Epoch: epoch, Seed: 7, Stats: core.NewStats(16, nil)}
	registry, engine, err := loader.Build(doc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if registry.Len() != 4 {
		t.Fatalf("expected 4 registered nodes, got %d", registry.Len())
	}

	engine.Bootstrap()
	if err := engine.Run(context.Background(), 100); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := engine.Stats().Snapshot()["sink"]
	if snap.Ingress != 1 {
		t.Fatalf("expected the gate to eventually release one message to sink, got ingress=%d", snap.Ingress)
	}
}

func TestBuildRejectsUndeclaredLinkDestination(t *testing.T) {
	const bad = `
a:
  type: sink
  ghost: "~"
`
	doc, err := Parse([]byte(bad), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	loader := &Loader{Epoch: time.Now()}
	if _, _, err := loader.Build(doc); err == nil {
		t.Fatalf("expected an error for a link to an undeclared destination")
	}
}

func TestBuildRejectsUnknownNodeType(t *testing.T) {
	const bad = `
a:
  type: not_a_real_type
`
	doc, err := Parse([]byte(bad), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	loader := &Loader{Epoch: time.Now()}
	if _, _, err := loader.Build(doc); err == nil {
		t.Fatalf("expected an error for an unknown node type")
	}
}

func TestDumpParseRoundTripIsIsomorphic(t *testing.T) {
	doc, err := Parse([]byte(andGateScenario), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	raw, err := Dump(doc)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	reloaded, err := Parse(raw, FormatJSON)
	if err != nil {
		t.Fatalf("re-Parse dumped JSON: %v", err)
	}

	if !equalStrings(doc.Order, reloaded.Order) {
		t.Fatalf("expected node order to survive round-trip: %v vs %v", doc.Order, reloaded.Order)
	}
	for _, name := range doc.Order {
		if doc.Nodes[name].Type != reloaded.Nodes[name].Type {
			t.Fatalf("node %q: type changed across round-trip: %q vs %q", name, doc.Nodes[name].Type, reloaded.Nodes[name].Type)
		}
		if len(doc.Nodes[name].Links) != len(reloaded.Nodes[name].Links) {
			t.Fatalf("node %q: link count changed across round-trip", name)
		}
	}

	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loader := &Loader{Epoch: epoch, Seed: 1}
	if _, _, err := loader.Build(reloaded); err != nil {
		t.Fatalf("Build on reloaded document: %v", err)
	}
}
