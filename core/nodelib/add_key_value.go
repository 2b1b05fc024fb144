package nodelib

import (
	"time"

	"github.com/sideshow-paul/astroNS/core"
	"github.com/sideshow-paul/astroNS/model"
)

// AddKeyValue tags a payload field with a fixed value, ported from
// original_source/.../nodes/core/message_sources/add_key_value.py. A nil
// Key is a no-op pass-through (the Python original's "failed configuration
// as key is None" branch, which still forwards the message unchanged rather
// than dropping it).
type AddKeyValue struct {
	Key       string
	Value     model.Value
	TimeDelay time.Duration
}

// NewAddKeyValue builds an AddKeyValue from resolved config.
func NewAddKeyValue(cfg *model.Config) *AddKeyValue {
	var value model.Value
	if v, ok := cfg.Raw("value"); ok {
		value = v
	}
	return &AddKeyValue{
		Key:       cfg.String("key", ""),
		Value:     value,
		TimeDelay: durationSeconds(cfg.Float("time_delay", 0.0)),
	}
}

func (a *AddKeyValue) Step(ctx *core.StepContext, in *model.Message) (time.Duration, time.Duration, []*model.Message) {
	if in == nil {
		return 0, 0, nil
	}
	out := in.Clone()
	if a.Key != "" {
		out.Payload[a.Key] = a.Value
	}
	return 0, a.TimeDelay, []*model.Message{out}
}
