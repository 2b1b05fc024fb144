package nodelib

import (
	"time"

	"github.com/sideshow-paul/astroNS/core"
	"github.com/sideshow-paul/astroNS/model"
)

// reduceListField reduces a list-valued payload field to a single scalar,
// shared by Minimizer and Maximizer (original_source/.../nodes/core/
// network/minimizer.py; the Python original's companion maximizer.py is not
// in the retrieval pack but inverts the same min() call to max(), so
// Maximizer here is grounded on the same file with the comparison flipped).
func reduceListField(payload model.Payload, key string, pickMax bool) (float64, bool) {
	raw, ok := payload[key]
	if !ok {
		return 0, false
	}
	values, ok := asFloatSlice(raw)
	if !ok || len(values) == 0 {
		return 0, false
	}
	best := values[0]
	for _, v := range values[1:] {
		if (pickMax && v > best) || (!pickMax && v < best) {
			best = v
		}
	}
	return best, true
}

func asFloatSlice(raw model.Value) ([]float64, bool) {
	switch list := raw.(type) {
	case []float64:
		return list, true
	case []any:
		out := make([]float64, 0, len(list))
		for _, item := range list {
			f, ok := asFloat(item)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	default:
		return nil, false
	}
}

// Minimizer replaces a list-valued field with its minimum value.
type Minimizer struct {
	Key       string
	TimeDelay time.Duration
}

func NewMinimizer(cfg *model.Config) *Minimizer {
	return &Minimizer{
		Key:       cfg.String("key", "KEY"),
		TimeDelay: durationSeconds(cfg.Float("time_delay", 0.0)),
	}
}

func (m *Minimizer) Step(ctx *core.StepContext, in *model.Message) (time.Duration, time.Duration, []*model.Message) {
	if in == nil {
		return 0, 0, nil
	}
	out := in.Clone()
	if v, ok := reduceListField(in.Payload, m.Key, false); ok {
		out.Payload[m.Key] = v
	}
	return 0, m.TimeDelay, []*model.Message{out}
}

// Maximizer replaces a list-valued field with its maximum value.
type Maximizer struct {
	Key       string
	TimeDelay time.Duration
}

func NewMaximizer(cfg *model.Config) *Maximizer {
	return &Maximizer{
		Key:       cfg.String("key", "KEY"),
		TimeDelay: durationSeconds(cfg.Float("time_delay", 0.0)),
	}
}

func (m *Maximizer) Step(ctx *core.StepContext, in *model.Message) (time.Duration, time.Duration, []*model.Message) {
	if in == nil {
		return 0, 0, nil
	}
	out := in.Clone()
	if v, ok := reduceListField(in.Payload, m.Key, true); ok {
		out.Payload[m.Key] = v
	}
	return 0, m.TimeDelay, []*model.Message{out}
}
