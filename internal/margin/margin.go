// Package margin implements margin time: once a match has run for the margin
// period the score needed per attack unit starts shrinking at fixed intervals.
package margin

import (
	"math"
	"time"
)

const (
	// FirstFactor scales the target on the first reduction.
	FirstFactor = 0.75
	// Interval separates every reduction after the first.
	Interval = 16 * time.Second
	// MaxReductions caps the number of reductions in one match.
	MaxReductions = 15
)

// Clock is the margin state carried by a match. The zero value is unarmed.
type Clock struct {
	Anchor     time.Time `json:"anchor"`
	Started    bool      `json:"started"`
	Reductions int       `json:"reductions"`
}

// Reduction records one applied step.
type Reduction struct {
	At    time.Time `json:"at"`
	From  int       `json:"from"`
	To    int       `json:"to"`
	Count int       `json:"count"`
	First bool      `json:"first"`
}

// Armed reports whether the clock has an anchor.
func (c Clock) Armed() bool { return !c.Anchor.IsZero() }

// Frozen reports whether no further reduction can fire for target.
func (c Clock) Frozen(target int) bool {
	return c.Started && (target <= 1 || c.Reductions >= MaxReductions)
}

// Arm returns a fresh clock anchored at now.
func Arm(now time.Time) Clock {
	return Clock{Anchor: now}
}

// Step is the pure transition function. Given the clock, the margin period,
// the current target and the time now, it returns the next clock, the next
// target and the reductions applied on the way.
//
// The anchor moves by whole periods only, so calling Step often or rarely
// lands on the same state for the same now. An unarmed clock is armed at now
// and nothing is applied. The target never drops below 1.
func Step(c Clock, marginTime time.Duration, target int, now time.Time) (Clock, int, []Reduction) {
	if !c.Armed() {
		return Arm(now), target, nil
	}
	return advance(c, marginTime, target, now)
}

// advance applies every reduction due by now to a clock anchored at
// c.Anchor, whatever that anchor is.
func advance(c Clock, marginTime time.Duration, target int, now time.Time) (Clock, int, []Reduction) {
	var applied []Reduction
	if !c.Started {
		if now.Sub(c.Anchor) < marginTime {
			return c, target, nil
		}
		next := max(1, int(math.Floor(float64(target)*FirstFactor)))
		c.Started = true
		c.Reductions++
		c.Anchor = c.Anchor.Add(marginTime)
		applied = append(applied, Reduction{At: c.Anchor, From: target, To: next, Count: c.Reductions, First: true})
		target = next
	}

	for now.Sub(c.Anchor) >= Interval && target > 1 && c.Reductions < MaxReductions {
		next := target / 2
		c.Reductions++
		c.Anchor = c.Anchor.Add(Interval)
		applied = append(applied, Reduction{At: c.Anchor, From: target, To: next, Count: c.Reductions})
		target = next
	}
	return c, target, applied
}

// Schedule lists every reduction a match starting at start would see, in
// order, until the clock freezes. Any start is accepted, the zero time
// included.
func Schedule(start time.Time, marginTime time.Duration, target int) []Reduction {
	c := Clock{Anchor: start}
	var out []Reduction
	now := start.Add(marginTime)
	for {
		var step []Reduction
		c, target, step = advance(c, marginTime, target, now)
		if len(step) == 0 {
			return out
		}
		out = append(out, step...)
		now = c.Anchor.Add(Interval)
	}
}
