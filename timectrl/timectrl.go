// Package timectrl paces the simulation engine's virtual clock against wall
// clock time when real-time mode is requested (spec §4.1 "Real-time mode").
// It replaces the teacher's tick-listener TimeController
// (push-based, fires a callback every fixed Tick) with a pull-based pacer
// the engine calls once per event: WaitFor(due_simtime) blocks until wall
// clock has caught up with epoch + due_simtime/factor, or reports an
// overrun, matching the event-driven (not tick-driven) scheduling model
// this engine uses.
package timectrl

import (
	"fmt"
	"sync"
	"time"
)

// Mode selects how a Pacer behaves when it falls behind wall clock (spec
// §4.1 "strict"/"non-strict" real-time mode).
type Mode int

const (
	// NonStrict logs a warning on the first overrun and continues at best
	// effort.
	NonStrict Mode = iota
	// Strict aborts the run once wall clock has fallen behind the target
	// by more than Slack.
	Strict
)

// Pacer paces Engine.Run against wall clock: Factor seconds of simtime
// advance per second of wall clock, e.g. Factor=2 runs the simulation
// twice as fast as real time. StartWall anchors simtime 0 to a wall-clock
// instant, normally time.Now() captured when the run begins.
type Pacer struct {
	mu sync.Mutex

	StartWall time.Time
	Factor    float64
	Mode      Mode
	Slack     time.Duration

	warned bool
	sleep  func(time.Duration)
	now    func() time.Time
}

// NewPacer constructs a Pacer anchored at startWall, advancing factor
// seconds of simtime per wall-clock second. slack bounds how far behind
// wall clock the run may drift before strict mode aborts (spec §8 S6:
// "configure real-time strict mode with factor 1.0... on a machine
// artificially slowed; expected: run aborts").
func NewPacer(startWall time.Time, factor float64, mode Mode, slack time.Duration) *Pacer {
	if factor <= 0 {
		factor = 1
	}
	return &Pacer{
		StartWall: startWall,
		Factor:    factor,
		Mode:      mode,
		Slack:     slack,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// WaitFor blocks until wall clock has reached the target instant for
// dueSimtime, or returns an error if the run has overrun strict slack. In
// non-strict mode an overrun never returns an error; it is logged once by
// the caller via Overran below and the run continues at best
// effort (spec §4.1, §7 "Real-time overrun... non-strict: warning on first
// occurrence only").
func (p *Pacer) WaitFor(dueSimtime float64) error {
	target := p.targetWall(dueSimtime)
	now := p.now()

	if now.Before(target) {
		p.sleep(target.Sub(now))
		return nil
	}

	behind := now.Sub(target)
	if behind <= p.Slack {
		return nil
	}

	if p.Mode == Strict {
		return &OverrunError{SimTime: dueSimtime, Behind: behind}
	}

	p.mu.Lock()
	alreadyWarned := p.warned
	p.warned = true
	p.mu.Unlock()
	if !alreadyWarned {
		// Caller (engine) is expected to log this via Overran(); Pacer
		// itself carries no logger to avoid a dependency cycle with
		// internal/logging call sites that already have their own Logger.
	}
	return nil
}

// Overran reports whether WaitFor has ever recorded a non-strict overrun,
// for the engine to emit its once-only warning (spec §7 "non-strict:
// warning on first occurrence only").
func (p *Pacer) Overran() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.warned
}

func (p *Pacer) targetWall(dueSimtime float64) time.Time {
	offset := time.Duration((dueSimtime / p.Factor) * float64(time.Second))
	return p.StartWall.Add(offset)
}

// OverrunError is returned by WaitFor in strict mode once wall clock has
// fallen behind the paced target by more than the configured slack.
type OverrunError struct {
	SimTime float64
	Behind  time.Duration
}

func (e *OverrunError) Error() string {
	return fmt.Sprintf("simulation too slow: %.3fs behind real-time pace at simtime=%.6f", e.Behind.Seconds(), e.SimTime)
}
