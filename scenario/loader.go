package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/sideshow-paul/astroNS/core"
	"github.com/sideshow-paul/astroNS/core/nodelib"
	"github.com/sideshow-paul/astroNS/internal/logging"
	"github.com/sideshow-paul/astroNS/kb"
	"github.com/sideshow-paul/astroNS/model"
)

// Loader builds a kb.Registry and a core.Engine from a parsed Document. It
// replaces the teacher's core/scenario_loader.go (deleted — see DESIGN.md),
// which built a KnowledgeBase of PlatformDefinition/NetworkNode for a
// connectivity-service control plane; this loader builds the node/link
// graph the event-driven engine runs instead.
type Loader struct {
	Epoch time.Time
	Seed  int64
	Stats *core.Stats
	Log   logging.Logger

	// CZML is injected by the caller (cmd/astrons) and wired into every
	// propagator node, so the scenario package never has to import the
	// output package that implements it (see nodelib.CZMLWriter).
	CZML nodelib.CZMLWriter
}

// Build constructs the registry and engine described by doc. Any node
// referencing an undeclared destination or an unparseable predicate aborts
// the load (spec §7 "reference to undeclared destination", "Predicate
// parse failure").
func (l *Loader) Build(doc *Document) (*kb.Registry, *core.Engine, error) {
	registry := kb.NewRegistry()
	engine := core.NewEngine(l.Epoch, l.Seed, l.Stats, l.log())

	for _, name := range doc.Order {
		nd := doc.Nodes[name]
		merged := model.MergeDefaults(nd.Config, doc.Defaults)
		cfg := model.NewConfig(merged)

		behavior, isSource, err := l.buildBehavior(nd.Type, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", name, err)
		}
		meta, err := buildMetaNode(l.Epoch, nd.Meta)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", name, err)
		}

		n := core.NewNode(name, behavior, meta, cfg)
		if nd.Source != nil {
			n.IsSourceHint = *nd.Source
		} else {
			n.IsSourceHint = isSource
		}

		if err := registry.Register(n); err != nil {
			return nil, nil, err
		}
		engine.AddNode(n)

		for _, w := range cfg.Warnings() {
			l.log().Warn(context.Background(), "scenario config warning", logging.String("node", name), logging.String("warning", w))
		}
	}

	for _, name := range doc.Order {
		nd := doc.Nodes[name]
		n, _ := registry.Get(name)
		for _, dest := range nd.LinkOrder {
			ld := nd.Links[dest]
			if !registry.Has(dest) {
				return nil, nil, fmt.Errorf("node %q: link references undeclared destination %q", name, dest)
			}
			pred, err := core.ParsePredicate(ld.Predicate)
			if err != nil {
				return nil, nil, fmt.Errorf("node %q -> %q: %w", name, dest, err)
			}
			n.Links = append(n.Links, core.Edge{
				Dest:      dest,
				Predicate: pred,
				Spec: model.LinkSpec{
					Predicate:        ld.Predicate,
					DelayModel:       ld.DelayModel,
					LinkDelaySeconds: ld.LinkDelaySeconds,
					RateMbps:         ld.RateMbps,
					RTTSeconds:       ld.RTTSeconds,
					MSSMbits:         ld.MSSMbits,
					PacketLoss:       ld.PacketLoss,
					MaxRangeKm:       ld.MaxRangeKm,
					MinElevationDeg:  ld.MinElevationDeg,
					MsgSizeKey:       ld.MsgSizeKey,
				},
			})
		}
	}

	return registry, engine, nil
}

func (l *Loader) log() logging.Logger {
	if l.Log == nil {
		return logging.Noop()
	}
	return l.Log
}

// buildBehavior dispatches a node's declared type onto the built-in
// behavior library (core/nodelib), reporting whether the type bootstraps as
// a source by default (spec §4.2); a scenario's explicit "source" key
// always overrides this default.
func (l *Loader) buildBehavior(typeName string, cfg *model.Config) (core.Behavior, bool, error) {
	switch typeName {
	case "random_source":
		return nodelib.NewRandomSource(cfg), true, nil
	case "add_key_value":
		return nodelib.NewAddKeyValue(cfg), false, nil
	case "delay_time":
		return nodelib.NewDelayTime(cfg), false, nil
	case "delay_size":
		return nodelib.NewDelaySize(cfg), false, nil
	case "key_delay_time":
		return nodelib.NewKeyDelayTime(l.Epoch, cfg), false, nil
	case "and_gate":
		conditions := cfg.StringSlice("conditions", nil)
		for _, c := range conditions {
			if _, err := core.ParsePredicate(c); err != nil {
				return nil, false, fmt.Errorf("and_gate condition %q: %w", c, err)
			}
		}
		return nodelib.NewAndGate(cfg, conditions), false, nil
	case "minimizer":
		return nodelib.NewMinimizer(cfg), false, nil
	case "maximizer":
		return nodelib.NewMaximizer(cfg), false, nil
	case "propagator":
		p := nodelib.NewPropagator(l.Epoch, cfg)
		p.CZML = l.CZML
		return p, false, nil
	case "sink":
		return nodelib.NewSink(), false, nil
	default:
		return nil, false, fmt.Errorf("unknown node type %q", typeName)
	}
}

// buildMetaNode attaches a Geopoint or Orbital position provider from a
// node's optional "meta" mapping (spec §3 "optional attachment to a
// meta-node", §4.5). A nil/empty meta mapping leaves the node unattached.
func buildMetaNode(epoch time.Time, meta map[string]model.Value) (core.MetaNode, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	cfg := model.NewConfig(meta)
	switch kind := cfg.String("kind", ""); kind {
	case "geopoint":
		return core.NewGeopoint(epoch, cfg.Float("lat", 0), cfg.Float("lon", 0), cfg.Float("alt_km", 0)), nil
	case "orbital":
		line1 := cfg.String("tle_line1", "")
		line2 := cfg.String("tle_line2", "")
		if line1 == "" || line2 == "" {
			return nil, fmt.Errorf("orbital meta requires tle_line1 and tle_line2")
		}
		return core.NewOrbital(epoch, line1, line2), nil
	default:
		return nil, fmt.Errorf("unknown meta kind %q", kind)
	}
}
