package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sideshow-paul/astroNS/model"
	"gopkg.in/yaml.v3"
)

// Format selects which decoder reads the raw scenario file.
type Format int

const (
	// FormatYAML parses the scenario as YAML, the primary authoring format
	// (spec §6).
	FormatYAML Format = iota
	// FormatJSON parses the scenario as JSON, used for loaded_network.json
	// round-tripping (spec §8) and for scenario files authored directly in
	// JSON.
	FormatJSON
)

// defaultsKey is the reserved top-level mapping that supplies fallback
// config values for every node (spec §6 "a top-level DEFAULT mapping
// provides fallback config values merged before handing the graph to the
// engine").
const defaultsKey = "DEFAULT"

// Reserved per-node keys that are never interpreted as a link destination.
const (
	typeKey   = "type"
	metaKey   = "meta"
	sourceKey = "source"
)

// NodeDoc is one node's parsed scenario entry: its behavior type, optional
// MetaNode attachment, resolved config (DEFAULT already excluded — merging
// happens in Build), and outgoing links keyed by destination node name.
type NodeDoc struct {
	Type      string
	Meta      map[string]model.Value
	Source    *bool
	Config    map[string]model.Value
	Links     map[string]LinkDoc
	LinkOrder []string
}

// LinkDoc is one outgoing edge's scenario-level attributes, resolved into a
// model.LinkSpec by Build.
type LinkDoc struct {
	Predicate        string
	DelayModel       model.DelayModel
	LinkDelaySeconds float64
	RateMbps         float64
	RTTSeconds       float64
	MSSMbits         float64
	PacketLoss       float64
	MaxRangeKm       float64
	MinElevationDeg  float64
	MsgSizeKey       string
}

// Document is a fully parsed scenario file: the DEFAULT mapping plus every
// declared node, in the order they appeared in the source file (design note
// 9's "collections holding node/edge order use insertion-ordered
// structures" applies equally to the graph the loader builds from them).
type Document struct {
	Defaults map[string]model.Value
	Nodes    map[string]NodeDoc
	Order    []string
}

// Parse decodes raw scenario bytes in the given format into a Document,
// preserving top-level node declaration order (YAML/JSON map iteration
// order is otherwise unspecified in Go, but bootstrap order and dump
// stability both depend on it).
func Parse(raw []byte, format Format) (*Document, error) {
	keys, values, err := decodeOrdered(raw, format)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Defaults: map[string]model.Value{},
		Nodes:    map[string]NodeDoc{},
	}

	nodeNames := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k != defaultsKey {
			nodeNames[k] = true
		}
	}

	for i, name := range keys {
		entry, ok := values[i].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("scenario entry %q: expected a mapping, got %T", name, values[i])
		}
		if name == defaultsKey {
			for k, v := range entry {
				doc.Defaults[k] = v
			}
			continue
		}
		nd, err := parseNodeEntry(entry, nodeNames)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		doc.Nodes[name] = nd
		doc.Order = append(doc.Order, name)
	}

	return doc, nil
}

func parseNodeEntry(entry map[string]any, nodeNames map[string]bool) (NodeDoc, error) {
	nd := NodeDoc{
		Config: map[string]model.Value{},
		Links:  map[string]LinkDoc{},
	}

	linkKeys := make([]string, 0)
	for k, v := range entry {
		if k != typeKey && k != metaKey && k != sourceKey && (nodeNames[k] || looksLikeLink(v)) {
			linkKeys = append(linkKeys, k)
		}
	}
	sort.Strings(linkKeys)

	for k, v := range entry {
		switch {
		case k == typeKey:
			s, ok := v.(string)
			if !ok {
				return nd, fmt.Errorf("%q must be a string", typeKey)
			}
			nd.Type = s
		case k == metaKey:
			m, ok := v.(map[string]any)
			if !ok {
				return nd, fmt.Errorf("%q must be a mapping", metaKey)
			}
			nd.Meta = m
		case k == sourceKey:
			b, ok := v.(bool)
			if !ok {
				return nd, fmt.Errorf("%q must be a bool", sourceKey)
			}
			nd.Source = &b
		case nodeNames[k] || looksLikeLink(v):
			ld, err := parseLinkValue(v)
			if err != nil {
				return nd, fmt.Errorf("link to %q: %w", k, err)
			}
			nd.Links[k] = ld
		default:
			nd.Config[k] = v
		}
	}
	nd.LinkOrder = linkKeys

	if nd.Type == "" {
		return nd, fmt.Errorf("missing required %q field", typeKey)
	}
	return nd, nil
}

// looksLikeLink reports whether a key's value unambiguously takes one of
// the link forms spec §6 describes (the "~" sentinel, or a nested
// attribute map) even when the key does not happen to match a node name
// already seen in this document — this is what lets Build report "reference
// to undeclared destination" (spec §7) for a typo'd or simply wrong edge
// target, rather than silently swallowing it as a config value. A bare
// predicate string or a bool true is only recognized as a link when its key
// matches a declared node name, since an arbitrary config option can just
// as easily be string- or bool-valued.
func looksLikeLink(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "~"
	case map[string]any:
		return true
	default:
		return false
	}
}

// parseLinkValue accepts the three forms spec §6 allows for a link value:
// an always-true sentinel (bool true, or the string "~"), a bare predicate
// string, or a nested map of link attributes (optionally itself carrying a
// "predicate" key alongside delay/bandwidth/MSS/RTT/packet-loss).
func parseLinkValue(v any) (LinkDoc, error) {
	switch t := v.(type) {
	case bool:
		if !t {
			return LinkDoc{}, fmt.Errorf("link value `false` is not meaningful; omit the edge instead")
		}
		return LinkDoc{Predicate: "~", MsgSizeKey: "size_mbits"}, nil
	case string:
		return LinkDoc{Predicate: t, MsgSizeKey: "size_mbits"}, nil
	case map[string]any:
		return parseLinkAttrs(t)
	default:
		return LinkDoc{}, fmt.Errorf("unsupported link value type %T", v)
	}
}

func parseLinkAttrs(attrs map[string]any) (LinkDoc, error) {
	ld := LinkDoc{Predicate: "~", MsgSizeKey: "size_mbits"}
	if p, ok := attrs["predicate"]; ok {
		s, ok := p.(string)
		if !ok {
			return ld, fmt.Errorf("%q must be a string", "predicate")
		}
		ld.Predicate = s
	}
	if s, ok := attrs["size_key"].(string); ok {
		ld.MsgSizeKey = s
	}
	ld.LinkDelaySeconds = floatAttr(attrs, "link_delay")
	ld.RateMbps = floatAttr(attrs, "rate_mbps")
	ld.RTTSeconds = floatAttr(attrs, "rtt_seconds")
	ld.MSSMbits = floatAttr(attrs, "mss_mbits")
	ld.PacketLoss = floatAttr(attrs, "packet_loss")
	ld.MaxRangeKm = floatAttr(attrs, "max_range_km")
	ld.MinElevationDeg = floatAttr(attrs, "min_elevation_deg")

	switch dm, _ := attrs["delay_model"].(string); dm {
	case "", "constant", "size_rate", "mathis":
		ld.DelayModel = dModel(attrs, dm)
	default:
		return ld, fmt.Errorf("unknown delay_model %q", dm)
	}
	return ld, nil
}

func dModel(attrs map[string]any, name string) model.DelayModel {
	switch name {
	case "size_rate":
		return model.DelaySizeRate
	case "mathis":
		return model.DelayMathis
	default:
		if _, hasRate := attrs["rate_mbps"]; hasRate {
			if _, hasDelay := attrs["link_delay"]; !hasDelay {
				return model.DelaySizeRate
			}
		}
		return model.DelayConstant
	}
}

func floatAttr(attrs map[string]any, key string) float64 {
	v, ok := attrs[key]
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

// decodeOrdered decodes raw into a parallel (keys, values) slice pair
// preserving the source document's top-level key order.
func decodeOrdered(raw []byte, format Format) ([]string, []any, error) {
	switch format {
	case FormatYAML:
		return decodeOrderedYAML(raw)
	case FormatJSON:
		return decodeOrderedJSON(raw)
	default:
		return nil, nil, fmt.Errorf("unknown scenario format %v", format)
	}
}

func decodeOrderedYAML(raw []byte) ([]string, []any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil, nil
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("scenario document root must be a mapping")
	}

	keys := make([]string, 0, len(mapping.Content)/2)
	values := make([]any, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keys = append(keys, mapping.Content[i].Value)
		var v any
		if err := mapping.Content[i+1].Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("decode %q: %w", mapping.Content[i].Value, err)
		}
		values = append(values, normalizeYAMLValue(v))
	}
	return keys, values, nil
}

// normalizeYAMLValue recursively rewrites the map[string]interface{} trees
// yaml.v3 already produces so nested structures carry the same Go types the
// JSON decoder would have produced (notably, yaml.v3 decodes integral
// scalars as int, which the rest of the loader treats interchangeably with
// JSON's float64 via model.Config's coercion helpers, so no rewrite is
// needed there beyond recursing into nested maps/slices).
func normalizeYAMLValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = normalizeYAMLValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = normalizeYAMLValue(vv)
		}
		return out
	default:
		return v
	}
}

func decodeOrderedJSON(raw []byte) ([]string, []any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("decode json: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, nil, fmt.Errorf("scenario document root must be an object")
	}

	var keys []string
	var values []any
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decode json: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("scenario document keys must be strings")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("decode %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, v)
	}
	return keys, values, nil
}
