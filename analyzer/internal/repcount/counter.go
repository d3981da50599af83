package repcount

import (
	"fmt"
	"time"
)

// Phase is a position in the repetition cycle.
type Phase int

const (
	Top Phase = iota
	Descending
	Bottom
	Ascending
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case Top:
		return "top"
	case Descending:
		return "descending"
	case Bottom:
		return "bottom"
	case Ascending:
		return "ascending"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase as its name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for _, ph := range []Phase{Top, Descending, Bottom, Ascending} {
		if string(b) == ph.String() {
			*p = ph
			return nil
		}
	}
	return fmt.Errorf("repcount: unknown phase %q", b)
}

// rearmSteps is the number of consecutive steps in the expected direction
// that re-arm a phase after the trigger reversed within it.
const rearmSteps = 2

// Cycle defines the thresholds of one repetition. Angles are in the trigger
// metric's units.
type Cycle struct {
	// Trigger names the metric that drives the machine.
	Trigger string

	DescendBelow float64
	BottomBelow  float64
	TopAbove     float64

	// MinBottomRise is how far the value must climb above its bottom minimum
	// before Ascending is accepted.
	MinBottomRise float64

	// MinBottomDwell is the observed time that must be spent at the bottom
	// before Ascending is accepted. Zero disables the check.
	MinBottomDwell time.Duration
}

// Validate checks the thresholds describe a reachable cycle.
func (c Cycle) Validate() error {
	switch {
	case c.Trigger == "":
		return fmt.Errorf("trigger metric is required")
	case c.BottomBelow >= c.DescendBelow:
		return fmt.Errorf("bottom_below (%v) must be below descend_below (%v)", c.BottomBelow, c.DescendBelow)
	case c.BottomBelow >= c.TopAbove:
		return fmt.Errorf("bottom_below (%v) must be below top_above (%v)", c.BottomBelow, c.TopAbove)
	case c.MinBottomRise < 0:
		return fmt.Errorf("min_bottom_rise must not be negative")
	case c.MinBottomDwell < 0:
		return fmt.Errorf("min_bottom_dwell must not be negative")
	}
	return nil
}

// State is a read-only snapshot of a Counter.
type State struct {
	Phase          Phase
	Count          int
	LastTransition time.Time
	Suspended      bool
}

// Counter is the repetition state machine for one session.
//
// Counter is not safe for concurrent use.
type Counter struct {
	cycle Cycle

	phase          Phase
	count          int
	lastTransition time.Time

	prev     float64
	hasPrev  bool
	lastSeen time.Time

	bottomMin   float64
	bottomDwell time.Duration

	// reversed is set once the trigger moved against the phase's expected
	// direction since the last transition. streak counts consecutive steps
	// in the expected direction since then.
	reversed bool
	streak   int

	suspended bool
	lostAt    time.Time
}

// New returns a Counter in the Top phase with a zero count.
func New(c Cycle) *Counter {
	return &Counter{cycle: c}
}

// Cycle returns the thresholds the counter was built with.
func (c *Counter) Cycle() Cycle { return c.cycle }

// Count returns the number of completed repetitions.
func (c *Counter) Count() int { return c.count }

// Phase returns the current phase.
func (c *Counter) Phase() Phase { return c.phase }

// State returns a snapshot of the counter.
func (c *Counter) State() State {
	return State{
		Phase:          c.phase,
		Count:          c.count,
		LastTransition: c.lastTransition,
		Suspended:      c.suspended,
	}
}

// Update feeds one trigger value observed at t and reports whether it
// completed a repetition.
func (c *Counter) Update(v float64, t time.Time) bool {
	var elapsed time.Duration
	if c.hasPrev {
		// Time without tracking is not observed time.
		until := t
		if c.suspended {
			until = c.lostAt
		}
		if d := until.Sub(c.lastSeen); d > 0 {
			elapsed = d
		}
	}
	prev, hasPrev := c.prev, c.hasPrev
	c.prev, c.hasPrev, c.lastSeen = v, true, t
	c.suspended = false

	falling := hasPrev && v < prev
	rising := hasPrev && v > prev
	cy := c.cycle

	switch c.phase {
	case Top:
		c.progress(falling, rising)
		if v < cy.DescendBelow && falling && c.armed() {
			c.transition(Descending, t)
		}

	case Descending:
		c.progress(falling, rising)
		switch {
		case v >= cy.TopAbove:
			c.transition(Top, t)
		case v <= cy.BottomBelow && falling && c.armed():
			c.transition(Bottom, t)
			c.bottomMin = v
			c.bottomDwell = 0
		}

	case Bottom:
		c.bottomDwell += elapsed
		if v < c.bottomMin {
			// A new low restarts the climb.
			c.bottomMin = v
			c.reversed, c.streak = false, 0
		} else {
			c.progress(rising, falling)
		}
		if rising && c.armed() && v >= c.bottomMin+cy.MinBottomRise && c.bottomDwell >= cy.MinBottomDwell {
			c.transition(Ascending, t)
		}

	case Ascending:
		c.progress(rising, falling)
		switch {
		case v <= cy.BottomBelow:
			if v < c.bottomMin {
				c.bottomMin = v
			}
			c.transition(Bottom, t)
		case v >= cy.TopAbove && rising && c.armed():
			c.count++
			c.transition(Top, t)
			return true
		}
	}
	return false
}

// progress records one step of the trigger relative to the current phase's
// expected direction.
func (c *Counter) progress(forward, backward bool) {
	switch {
	case forward:
		c.streak++
	case backward:
		c.reversed = true
		c.streak = 0
	}
}

// armed reports whether the trigger has moved monotonically in the expected
// direction since the last transition, or has done so for rearmSteps steps
// since it last reversed.
func (c *Counter) armed() bool {
	return !c.reversed || c.streak >= rearmSteps
}

// Suspend marks the subject as untracked at t. The phase, count and last
// trigger value are kept; the next Update resumes from them. Repeated calls
// keep the first loss time.
func (c *Counter) Suspend(t time.Time) {
	if c.suspended {
		return
	}
	c.suspended = true
	c.lostAt = t
}

// Reset returns the counter to its initial state.
func (c *Counter) Reset() {
	*c = Counter{cycle: c.cycle}
}

func (c *Counter) transition(p Phase, t time.Time) {
	c.phase = p
	c.lastTransition = t
	c.reversed = false
	c.streak = 0
}
