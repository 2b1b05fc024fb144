package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sideshow-paul/astroNS/model"
)

// Dump serializes doc back into the same node-keyed JSON shape Parse reads,
// used both for loaded_network.json (spec §6 persisted artifacts) and for
// the round-trip property spec §8 requires: "loading a scenario and
// emitting loaded_network.json and re-loading that JSON produces an
// isomorphic graph." Link values are always emitted in their canonical
// (attribute-map) form, so a scenario authored with a bare predicate string
// or the bool-true sentinel dumps to an equivalent, not byte-identical,
// representation — Parse(Dump(Parse(x))) reproduces the same graph Build
// would construct from x, which is what the property actually asks for.
func Dump(doc *Document) ([]byte, error) {
	keys, values := []string{}, []any{}

	if len(doc.Defaults) > 0 {
		keys, values = append(keys, defaultsKey), append(values, doc.Defaults)
	}

	for _, name := range doc.Order {
		nd := doc.Nodes[name]
		entry := make(map[string]any, len(nd.Config)+len(nd.Links)+3)
		entry[typeKey] = nd.Type
		if nd.Meta != nil {
			entry[metaKey] = nd.Meta
		}
		if nd.Source != nil {
			entry[sourceKey] = *nd.Source
		}
		for k, v := range nd.Config {
			entry[k] = v
		}
		for _, dest := range nd.LinkOrder {
			entry[dest] = linkAttrMap(nd.Links[dest])
		}
		keys, values = append(keys, name), append(values, entry)
	}

	// Top-level entries are written in declaration order (DEFAULT first), so
	// Parse recovers the same doc.Order from the dump.
	parts := make([]string, 0, len(keys))
	for i, key := range keys {
		k, _ := json.Marshal(key)
		v, err := json.MarshalIndent(values[i], "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal scenario entry %q: %w", key, err)
		}
		parts = append(parts, "  "+string(k)+": "+string(v))
	}
	return []byte("{\n" + strings.Join(parts, ",\n") + "\n}"), nil
}

func linkAttrMap(ld LinkDoc) map[string]any {
	attrs := map[string]any{
		"predicate": ld.Predicate,
		"size_key":  ld.MsgSizeKey,
	}
	switch ld.DelayModel {
	case model.DelaySizeRate:
		attrs["delay_model"] = "size_rate"
	case model.DelayMathis:
		attrs["delay_model"] = "mathis"
	default:
		attrs["delay_model"] = "constant"
	}
	if ld.LinkDelaySeconds != 0 {
		attrs["link_delay"] = ld.LinkDelaySeconds
	}
	if ld.RateMbps != 0 {
		attrs["rate_mbps"] = ld.RateMbps
	}
	if ld.RTTSeconds != 0 {
		attrs["rtt_seconds"] = ld.RTTSeconds
	}
	if ld.MSSMbits != 0 {
		attrs["mss_mbits"] = ld.MSSMbits
	}
	if ld.PacketLoss != 0 {
		attrs["packet_loss"] = ld.PacketLoss
	}
	if ld.MaxRangeKm != 0 {
		attrs["max_range_km"] = ld.MaxRangeKm
	}
	if ld.MinElevationDeg != 0 {
		attrs["min_elevation_deg"] = ld.MinElevationDeg
	}
	return attrs
}
