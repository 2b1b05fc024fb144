package nodelib

import (
	"time"

	"github.com/sideshow-paul/astroNS/core"
	"github.com/sideshow-paul/astroNS/model"
)

// KeyDelayTime computes a message's onward delay from a payload field
// rather than a fixed constant, ported from original_source/.../nodes/
// core/network/keydelaytime.py. The field's value is interpreted as an
// absolute simtime, a Unix timestamp, or an ISO-8601 datetime string
// depending on configuration, and the delay is the difference between that
// target time and the current simtime. A negative delay (the target has
// already passed) is clamped to zero, so the message leaves at the current
// simtime and virtual time never moves backwards.
type KeyDelayTime struct {
	Epoch              time.Time
	DelayKey           string
	ConvertUnixTime    bool
	ConvertISODatetime bool
}

func NewKeyDelayTime(epoch time.Time, cfg *model.Config) *KeyDelayTime {
	return &KeyDelayTime{
		Epoch:              epoch,
		DelayKey:           cfg.String("delay_key", "key"),
		ConvertUnixTime:    cfg.Bool("convert_unix_time", false),
		ConvertISODatetime: cfg.Bool("convert_iso_datetime", false),
	}
}

func (k *KeyDelayTime) Step(ctx *core.StepContext, in *model.Message) (time.Duration, time.Duration, []*model.Message) {
	if in == nil {
		return 0, 0, nil
	}
	delay := k.resolveDelay(ctx.Now, in)
	if delay < 0 {
		delay = 0
	}
	out := in.Clone()
	return 0, durationSeconds(delay), []*model.Message{out}
}

func (k *KeyDelayTime) resolveDelay(now float64, in *model.Message) float64 {
	raw, ok := in.Field(k.DelayKey)
	if !ok {
		return 0
	}
	switch {
	case k.ConvertUnixTime:
		unixSeconds, ok := asFloat(raw)
		if !ok {
			return 0
		}
		target := time.Unix(0, 0).UTC().Add(durationSeconds(unixSeconds))
		return target.Sub(k.Epoch).Seconds() - now
	case k.ConvertISODatetime:
		s, ok := raw.(string)
		if !ok {
			return 0
		}
		target, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return 0
		}
		return target.UTC().Sub(k.Epoch).Seconds() - now
	default:
		targetSimtime, ok := asFloat(raw)
		if !ok {
			return 0
		}
		return targetSimtime - now
	}
}

func asFloat(v model.Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
