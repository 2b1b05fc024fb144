package nodelib

import (
	"time"

	"github.com/sideshow-paul/astroNS/core"
	"github.com/sideshow-paul/astroNS/model"
)

// DelayTime reflects its input back out after a fixed processing delay,
// ported from original_source/.../nodes/core/network/delaytime.py. All of
// the delay is returned as processing time with zero setup time, and the
// engine keeps the node reserved for the processing time, so the node takes
// no other message until the delay has elapsed.
type DelayTime struct {
	TimeDelay time.Duration
}

func NewDelayTime(cfg *model.Config) *DelayTime {
	return &DelayTime{TimeDelay: durationSeconds(cfg.Float("time_delay", 0.01))}
}

func (d *DelayTime) Step(ctx *core.StepContext, in *model.Message) (time.Duration, time.Duration, []*model.Message) {
	if in == nil {
		return 0, 0, nil
	}
	return 0, d.TimeDelay, []*model.Message{in.Clone()}
}

// DelaySize computes a processing delay proportional to the message's
// declared size, ported from original_source/.../nodes/core/network/
// delaysize.py ("delay = size / rate_per_mbit").
type DelaySize struct {
	RateMbitsPerSec float64
	SizeKey         string
}

func NewDelaySize(cfg *model.Config) *DelaySize {
	return &DelaySize{
		RateMbitsPerSec: cfg.Float("rate_per_mbit", 100.0),
		SizeKey:         "size_mbits",
	}
}

func (d *DelaySize) Step(ctx *core.StepContext, in *model.Message) (time.Duration, time.Duration, []*model.Message) {
	if in == nil {
		return 0, 0, nil
	}
	rate := d.RateMbitsPerSec
	if rate <= 0 {
		rate = 1
	}
	delay := durationSeconds(in.SizeMbits(d.SizeKey) / rate)
	return 0, delay, []*model.Message{in.Clone()}
}
