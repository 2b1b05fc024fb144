// Package nodelib is the built-in node behavior library spec §1 calls out
// of scope beyond "the contract is specified" — a complete repo still needs
// concrete Behavior implementations to exercise and test core's node
// runtime, link layer, and predicate evaluator against, the same way the
// teacher ships concrete platform/node types alongside its abstract motion
// and geometry interfaces. Each type here is grounded on a corresponding
// node in original_source/source/astroNS/nodes/.
package nodelib

import (
	"math/rand"
	"time"

	"github.com/sideshow-paul/astroNS/core"
	"github.com/sideshow-paul/astroNS/model"
)

// RandomSource is an active, continuously-emitting message source with a
// configurable message size range and inter-emission delay range, ported
// from original_source/.../nodes/core/message_sources/random_data_source.py.
// Unlike the Python original it draws from the engine-owned RNG
// (StepContext.Rng) rather than the process-global random module, per
// design note 9's "explicit engine-scoped objects... the engine owns the
// RNG".
type RandomSource struct {
	SizeMinMbits float64
	SizeMaxMbits float64
	DelayMin     time.Duration
	DelayMax     time.Duration
	SinglePulse  bool
	SizeKey      string

	active bool
}

// NewRandomSource builds a RandomSource from resolved config, matching the
// Python original's random_size_min/random_size_max/random_delay_min/
// random_delay_max/single_pulse/start_node_active options and their
// defaults.
func NewRandomSource(cfg *model.Config) *RandomSource {
	sizeKey := "size_mbits"
	return &RandomSource{
		SizeMinMbits: cfg.Float("random_size_min", 10),
		SizeMaxMbits: cfg.Float("random_size_max", 100),
		DelayMin:     durationSeconds(cfg.Float("random_delay_min", 1.0)),
		DelayMax:     durationSeconds(cfg.Float("random_delay_max", 10.0)),
		SinglePulse:  cfg.Bool("single_pulse", false),
		SizeKey:      sizeKey,
		active:       cfg.Bool("start_node_active", true),
	}
}

// Active reports whether the source should keep being re-invoked, matching
// the Python original's self._active flag cleared by set_node_inactive()
// after a single-pulse emission.
func (s *RandomSource) Active() bool { return s.active }

// Step emits one message with a uniformly random size, then schedules its
// own next wake-up via the returned processing delay (the Python original's
// "cooldown" yield value). A single-pulse source deactivates after its
// first emission.
func (s *RandomSource) Step(ctx *core.StepContext, in *model.Message) (time.Duration, time.Duration, []*model.Message) {
	if !s.active {
		return 0, 0, nil
	}
	size := s.SizeMinMbits + ctx.Rng.Float64()*(s.SizeMaxMbits-s.SizeMinMbits)
	msg := model.NewMessage(model.Payload{s.SizeKey: size}, ctx.Now)

	if s.SinglePulse {
		s.active = false
	}
	cooldown := randomDuration(ctx.Rng, s.DelayMin, s.DelayMax)
	return 0, cooldown, []*model.Message{msg}
}

func durationSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func randomDuration(rng *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Int63n(int64(max-min)))
}
