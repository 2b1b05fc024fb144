package scenario

import "testing"

const sampleYAML = `
DEFAULT:
  time_delay: 0.5
source:
  type: random_source
  random_size_min: 1
  random_size_max: 2
  single_pulse: true
  sink: "~"
sink:
  type: sink
`

func TestParseYAMLPreservesOrderAndSplitsLinksFromConfig(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"source", "sink"}; !equalStrings(doc.Order, want) {
		t.Fatalf("expected node order %v, got %v", want, doc.Order)
	}
	if doc.Defaults["time_delay"] != 0.5 {
		t.Fatalf("expected DEFAULT.time_delay=0.5, got %v", doc.Defaults["time_delay"])
	}

	src := doc.Nodes["source"]
	if src.Type != "random_source" {
		t.Fatalf("expected source type random_source, got %q", src.Type)
	}
	if _, isLink := src.Config["sink"]; isLink {
		t.Fatalf("expected `sink` key to be parsed as a link, not forwarded into Config")
	}
	if _, isConfig := src.Links["sink"]; !isConfig {
		t.Fatalf("expected a link to `sink`")
	}
	if src.Config["single_pulse"] != true {
		t.Fatalf("expected single_pulse config to survive, got %v", src.Config["single_pulse"])
	}
}

func TestParseJSONAgreesWithYAMLForEquivalentDocument(t *testing.T) {
	const sampleJSON = `{
		"DEFAULT": {"time_delay": 0.5},
		"source": {"type": "random_source", "random_size_min": 1, "random_size_max": 2, "single_pulse": true, "sink": "~"},
		"sink": {"type": "sink"}
	}`
	doc, err := Parse([]byte(sampleJSON), FormatJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := []string{"source", "sink"}; !equalStrings(doc.Order, want) {
		t.Fatalf("expected node order %v, got %v", want, doc.Order)
	}
	if doc.Nodes["source"].Type != "random_source" {
		t.Fatalf("expected source type random_source, got %q", doc.Nodes["source"].Type)
	}
}

func TestParseRejectsNodeEntryMissingType(t *testing.T) {
	const badYAML = `
orphan:
  random_size_min: 1
`
	if _, err := Parse([]byte(badYAML), FormatYAML); err == nil {
		t.Fatalf("expected an error for a node entry missing `type`")
	}
}

func TestParseLinkAttributeMapResolvesDelayModel(t *testing.T) {
	const withAttrs = `
a:
  type: sink
  b:
    predicate: "size_mbits > 1"
    rate_mbps: 10
    delay_model: size_rate
b:
  type: sink
`
	doc, err := Parse([]byte(withAttrs), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ld := doc.Nodes["a"].Links["b"]
	if ld.Predicate != "size_mbits > 1" {
		t.Fatalf("expected predicate to survive, got %q", ld.Predicate)
	}
	if ld.RateMbps != 10 {
		t.Fatalf("expected rate_mbps=10, got %v", ld.RateMbps)
	}
}

func TestParseLinkAttributeMapResolvesGeometryGating(t *testing.T) {
	const withAttrs = `
a:
  type: sink
  b:
    predicate: "~"
    max_range_km: 2500
    min_elevation_deg: 10
b:
  type: sink
`
	doc, err := Parse([]byte(withAttrs), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ld := doc.Nodes["a"].Links["b"]
	if ld.MaxRangeKm != 2500 {
		t.Fatalf("expected max_range_km=2500, got %v", ld.MaxRangeKm)
	}
	if ld.MinElevationDeg != 10 {
		t.Fatalf("expected min_elevation_deg=10, got %v", ld.MinElevationDeg)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
