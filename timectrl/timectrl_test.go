package timectrl

import (
	"testing"
	"time"
)

func TestWaitForSleepsUntilTargetWhenAhead(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := NewPacer(start, 1.0, NonStrict, 0)

	var slept time.Duration
	p.sleep = func(d time.Duration) { slept = d }
	p.now = func() time.Time { return start }

	if err := p.WaitFor(5); err != nil {
		t.Fatalf("WaitFor returned error: %v", err)
	}
	if slept != 5*time.Second {
		t.Fatalf("expected to sleep 5s to reach target, slept %v", slept)
	}
}

func TestWaitForHonorsFactor(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := NewPacer(start, 2.0, NonStrict, 0)

	var slept time.Duration
	p.sleep = func(d time.Duration) { slept = d }
	p.now = func() time.Time { return start }

	if err := p.WaitFor(10); err != nil {
		t.Fatalf("WaitFor returned error: %v", err)
	}
	if slept != 5*time.Second {
		t.Fatalf("factor=2 should halve wall-clock wait: expected 5s, got %v", slept)
	}
}

func TestWaitForNonStrictWarnsOnceAndContinues(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := NewPacer(start, 1.0, NonStrict, 0)
	p.sleep = func(time.Duration) {}
	p.now = func() time.Time { return start.Add(10 * time.Second) }

	if p.Overran() {
		t.Fatalf("expected no overrun before any WaitFor call")
	}
	if err := p.WaitFor(1); err != nil {
		t.Fatalf("non-strict mode must never return an error, got %v", err)
	}
	if !p.Overran() {
		t.Fatalf("expected Overran() to report true after falling behind")
	}
}

func TestWaitForStrictReturnsOverrunError(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := NewPacer(start, 1.0, Strict, 0)
	p.sleep = func(time.Duration) {}
	p.now = func() time.Time { return start.Add(10 * time.Second) }

	err := p.WaitFor(1)
	if err == nil {
		t.Fatalf("expected strict mode to return an OverrunError")
	}
	var overrun *OverrunError
	if !asOverrunError(err, &overrun) {
		t.Fatalf("expected *OverrunError, got %T", err)
	}
	if overrun.SimTime != 1 {
		t.Fatalf("expected SimTime=1 in OverrunError, got %v", overrun.SimTime)
	}
}

func TestWaitForWithinSlackIsNotAnOverrun(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	p := NewPacer(start, 1.0, Strict, 2*time.Second)
	p.sleep = func(time.Duration) {}
	p.now = func() time.Time { return start.Add(1 * time.Second) }

	if err := p.WaitFor(0); err != nil {
		t.Fatalf("expected slack to absorb a 1s drift, got error %v", err)
	}
}

func asOverrunError(err error, out **OverrunError) bool {
	oe, ok := err.(*OverrunError)
	if ok {
		*out = oe
	}
	return ok
}
