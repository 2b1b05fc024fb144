package nodelib

import (
	"time"

	"github.com/sideshow-paul/astroNS/core"
	"github.com/sideshow-paul/astroNS/model"
)

// Sample is one time-tagged Cartesian position, the Go analogue of the
// Python original's flattened (t, x, y, z) tuple list.
type Sample struct {
	SimTime float64
	X, Y, Z float64
}

// CZMLWriter is the narrow interface Propagator uses to emit a visualization
// track; it is satisfied by output.CZMLBuilder so that nodelib never needs
// to import the output package (spec §4.5/§6, SPEC_FULL §4.7's CZML
// supplement).
type CZMLWriter interface {
	WriteTrack(nodeName string, epoch time.Time, start, stop time.Time, samples []Sample) error
}

// Propagator samples its attached MetaNode's position over a window
// starting at the simtime it receives a message, storing the samples under
// a configurable payload key and optionally emitting a CZML track, ported
// from original_source/.../nodes/aerospace/propagator.py. The reservation
// delays are independent of the sampling window: ProcessingDelay reserves
// the node (modeling, e.g., an orbit analyst generating an ephemeris file),
// TimeDelay only delays the outgoing message.
type Propagator struct {
	ProcessingDelay time.Duration
	TimeDelay       time.Duration
	StorageKey      string
	MaxDuration     time.Duration
	TimeStep        time.Duration
	MaxVizTime      time.Duration

	Epoch time.Time
	CZML  CZMLWriter
}

func NewPropagator(epoch time.Time, cfg *model.Config) *Propagator {
	return &Propagator{
		ProcessingDelay: durationSeconds(cfg.Float("time_processing", 0.0)),
		TimeDelay:       durationSeconds(cfg.Float("time_delay", 0.0)),
		StorageKey:      cfg.String("storage_key", "Propagator_Results"),
		MaxDuration:     durationSeconds(cfg.Float("max_duration_s", 0)),
		TimeStep:        durationSeconds(cfg.Float("time_step_s", 60)),
		MaxVizTime:      durationSeconds(cfg.Float("max_viz_time_s", 0)),
		Epoch:           epoch,
	}
}

func (p *Propagator) Step(ctx *core.StepContext, in *model.Message) (time.Duration, time.Duration, []*model.Message) {
	if in == nil {
		return 0, 0, nil
	}
	out := in.Clone()

	if p.MaxDuration <= 0 || ctx.MetaNode == nil {
		return p.ProcessingDelay, p.TimeDelay, []*model.Message{out}
	}

	start := ctx.Now
	stop := start + p.MaxDuration.Seconds()
	step := p.TimeStep.Seconds()
	if step <= 0 {
		step = 60
	}

	samples := make([]Sample, 0, int(p.MaxDuration.Seconds()/step)+1)
	for t := start; t < stop; t += step {
		coords := ctx.MetaNode.Coords(t)
		samples = append(samples, Sample{SimTime: t, X: coords.X * 1000, Y: coords.Y * 1000, Z: coords.Z * 1000})
	}
	out.Payload[p.StorageKey] = samples

	if p.MaxVizTime > 0 && p.CZML != nil {
		vizStop := stop
		if vizWindow := start + p.MaxVizTime.Seconds(); vizWindow < vizStop {
			vizStop = vizWindow
		}
		vizSamples := make([]Sample, 0, len(samples))
		for _, s := range samples {
			if s.SimTime <= vizStop {
				vizSamples = append(vizSamples, s)
			}
		}
		absStart := model.EpochTime(p.Epoch, start)
		absStop := model.EpochTime(p.Epoch, vizStop)
		_ = p.CZML.WriteTrack(ctx.NodeName, p.Epoch, absStart, absStop, vizSamples)
	}

	return p.ProcessingDelay, p.TimeDelay, []*model.Message{out}
}
