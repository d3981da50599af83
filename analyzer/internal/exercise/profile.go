package exercise

import (
	"github.com/formcheck/formcheck/analyzer/internal/repcount"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
	"github.com/formcheck/formcheck/pkg/types"
)

// Exercise is one movement plugged into the analyzer.
type Exercise interface {
	// Name is the registry key, e.g. "squats".
	Name() string

	// Profile returns the immutable thresholds and cycle definition.
	Profile() Profile

	// DeriveMetrics computes every configured angle from sk. It returns false
	// if a required landmark is missing from sk.
	DeriveMetrics(sk types.Skeleton) (map[string]float64, bool)
}

// MetricSpec holds the thresholds for one metric.
type MetricSpec struct {
	Name string

	// Bands is meaningful only when Classified is true; metrics without bands
	// are reported but excluded from the worst-zone aggregation.
	Bands      zone.Bands
	Classified bool

	// Reason is the operator-facing message when the metric is out of its
	// safe range.
	Reason string
}

// Profile is the immutable configuration of one exercise. Callers must not
// modify its slices.
type Profile struct {
	Name      string
	Landmarks []string
	Metrics   []MetricSpec
	Cycle     repcount.Cycle
}

// Metric looks up the spec for name.
func (p Profile) Metric(name string) (MetricSpec, bool) {
	for _, m := range p.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return MetricSpec{}, false
}

// Classify returns the zone of value for metric, or false if the metric has
// no configured bands.
func (p Profile) Classify(metric string, value float64) (zone.Level, bool) {
	m, ok := p.Metric(metric)
	if !ok || !m.Classified {
		return zone.Safe, false
	}
	return m.Bands.Classify(value), true
}

// angleExercise is an Exercise whose metrics are all joint angles.
type angleExercise struct {
	profile Profile
	angles  []AngleDef
}

func (e *angleExercise) Name() string { return e.profile.Name }

func (e *angleExercise) Profile() Profile { return e.profile }

func (e *angleExercise) DeriveMetrics(sk types.Skeleton) (map[string]float64, bool) {
	out := make(map[string]float64, len(e.angles))
	for _, d := range e.angles {
		v, ok := d.Measure(sk)
		if !ok {
			return nil, false
		}
		out[d.Name] = v
	}
	return out, true
}
