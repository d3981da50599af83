// Package smooth damps frame-to-frame jitter in derived metrics with an
// exponential moving average kept per metric name.
package smooth

import "fmt"

// EMA holds one exponential moving average per metric name.
//
// EMA is not safe for concurrent use; one instance belongs to one tracked
// subject.
type EMA struct {
	alpha float64
	state map[string]float64
}

// New returns an EMA with the given smoothing factor. alpha must be in (0, 1];
// higher values track the raw signal faster with less smoothing.
func New(alpha float64) (*EMA, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, fmt.Errorf("smooth: alpha %v outside (0, 1]", alpha)
	}
	return &EMA{alpha: alpha, state: make(map[string]float64)}, nil
}

// Alpha returns the smoothing factor.
func (e *EMA) Alpha() float64 { return e.alpha }

// Apply folds raw into the average for key and returns the smoothed value.
// The first observation for a key is returned unchanged.
func (e *EMA) Apply(key string, raw float64) float64 {
	prev, ok := e.state[key]
	if !ok {
		e.state[key] = raw
		return raw
	}
	s := e.alpha*raw + (1-e.alpha)*prev
	e.state[key] = s
	return s
}

// Value returns the current smoothed value for key, if one exists.
func (e *EMA) Value(key string) (float64, bool) {
	v, ok := e.state[key]
	return v, ok
}

// ResetKey forgets the average for key only.
func (e *EMA) ResetKey(key string) {
	delete(e.state, key)
}

// Reset forgets every average.
func (e *EMA) Reset() {
	clear(e.state)
}
