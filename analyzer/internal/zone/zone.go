// Package zone maps a smoothed metric value to a safety level using
// inclusive threshold bands, and aggregates levels worst-first.
//
// Band membership is checked in order: the safe range, then each caution
// range, otherwise unsafe. The caution ranges are the buffer between safe and
// unsafe; there is no temporal debounce here since the values arriving have
// already been smoothed.
package zone

import "fmt"

// Level is a safety zone. Levels are ordered Safe < Caution < Unsafe so the
// worst of several levels is their maximum.
type Level int

const (
	Safe Level = iota
	Caution
	Unsafe
)

// String returns the lowercase zone name.
func (l Level) String() string {
	switch l {
	case Safe:
		return "safe"
	case Caution:
		return "caution"
	case Unsafe:
		return "unsafe"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// MarshalText encodes the level as its name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "safe":
		*l = Safe
	case "caution":
		*l = Caution
	case "unsafe":
		*l = Unsafe
	default:
		return fmt.Errorf("zone: unknown level %q", b)
	}
	return nil
}

// Levels lists every level in ascending order.
var Levels = []Level{Safe, Caution, Unsafe}

// Range is an inclusive [Lo, Hi] interval.
type Range struct {
	Lo, Hi float64
}

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool {
	return r.Lo <= v && v <= r.Hi
}

// Valid reports whether the range is well-formed.
func (r Range) Valid() bool {
	return r.Lo <= r.Hi
}

// Bands are the thresholds for one metric.
type Bands struct {
	Safe    Range
	Caution []Range
}

// Classify returns the zone of v.
func (b Bands) Classify(v float64) Level {
	if b.Safe.Contains(v) {
		return Safe
	}
	for _, r := range b.Caution {
		if r.Contains(v) {
			return Caution
		}
	}
	return Unsafe
}

// Validate checks that every range is well-formed.
func (b Bands) Validate() error {
	if !b.Safe.Valid() {
		return fmt.Errorf("safe range [%v, %v] has lo > hi", b.Safe.Lo, b.Safe.Hi)
	}
	for i, r := range b.Caution {
		if !r.Valid() {
			return fmt.Errorf("caution range %d [%v, %v] has lo > hi", i, r.Lo, r.Hi)
		}
	}
	return nil
}

// Worst returns the highest level among levels, or Safe when there are none.
// A single unsafe joint marks the whole frame unsafe.
func Worst(levels ...Level) Level {
	w := Safe
	for _, l := range levels {
		if l > w {
			w = l
		}
	}
	return w
}
