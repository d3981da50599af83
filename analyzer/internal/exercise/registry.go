package exercise

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/formcheck/formcheck/analyzer/internal/repcount"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
)

// Definition is everything a new exercise supplies: which angles to measure,
// the default bands per metric, and the default repetition cycle.
type Definition struct {
	Name    string
	Angles  []AngleDef
	Bands   map[string]zone.Bands
	Reasons map[string]string
	Cycle   repcount.Cycle
}

// Factory returns a fresh Definition. It is called once per Build.
type Factory func() Definition

// Override carries configuration that replaces an exercise's defaults.
// Zero or nil fields keep the default.
type Override struct {
	Bands   map[string]zone.Bands
	Reasons map[string]string

	Trigger        string
	DescendBelow   *float64
	BottomBelow    *float64
	TopAbove       *float64
	MinBottomRise  *float64
	MinBottomDwell *time.Duration
}

// Registry maps exercise names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Builtin returns a Registry holding every exercise shipped with the analyzer.
func Builtin() *Registry {
	r := NewRegistry()
	r.MustRegister(SquatsName, Squats)
	r.MustRegister(LungesName, Lunges)
	return r
}

// Register adds a factory under name. Names are case-insensitive.
func (r *Registry) Register(name string, f Factory) error {
	key := normalize(name)
	if key == "" {
		return fmt.Errorf("exercise: empty name")
	}
	if _, dup := r.factories[key]; dup {
		return fmt.Errorf("exercise: %q already registered", key)
	}
	r.factories[key] = f
	return nil
}

// MustRegister is Register for package-level setup; it panics on error.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Names returns the registered exercise names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[normalize(name)]
	return ok
}

// Build returns the exercise registered under name with ov applied.
// An unknown name or invalid resulting thresholds yield a *ConfigurationError;
// the registry is never modified.
func (r *Registry) Build(name string, ov Override) (Exercise, error) {
	key := normalize(name)
	f, ok := r.factories[key]
	if !ok {
		return nil, configErr(name, "unknown exercise (available: %s)", strings.Join(r.Names(), ", "))
	}
	return build(f(), ov)
}

func build(def Definition, ov Override) (Exercise, error) {
	known := make(map[string]bool, len(def.Angles))
	for _, a := range def.Angles {
		known[a.Name] = true
	}

	bands := maps.Clone(def.Bands)
	if bands == nil {
		bands = make(map[string]zone.Bands)
	}
	for metric, b := range ov.Bands {
		if !known[metric] {
			return nil, configErr(def.Name, "thresholds for unknown metric %q", metric)
		}
		bands[metric] = b
	}
	reasons := maps.Clone(def.Reasons)
	if reasons == nil {
		reasons = make(map[string]string)
	}
	for metric, msg := range ov.Reasons {
		if !known[metric] {
			return nil, configErr(def.Name, "reason for unknown metric %q", metric)
		}
		reasons[metric] = msg
	}

	cy := def.Cycle
	if ov.Trigger != "" {
		cy.Trigger = ov.Trigger
	}
	setIf(&cy.DescendBelow, ov.DescendBelow)
	setIf(&cy.BottomBelow, ov.BottomBelow)
	setIf(&cy.TopAbove, ov.TopAbove)
	setIf(&cy.MinBottomRise, ov.MinBottomRise)
	setIf(&cy.MinBottomDwell, ov.MinBottomDwell)

	if !known[cy.Trigger] {
		return nil, configErr(def.Name, "rep trigger %q is not a metric of this exercise", cy.Trigger)
	}
	if err := cy.Validate(); err != nil {
		return nil, configErr(def.Name, "rep cycle: %v", err)
	}

	specs := make([]MetricSpec, 0, len(def.Angles))
	for _, a := range def.Angles {
		spec := MetricSpec{Name: a.Name, Reason: reasons[a.Name]}
		if b, ok := bands[a.Name]; ok {
			if err := b.Validate(); err != nil {
				return nil, configErr(def.Name, "metric %q: %v", a.Name, err)
			}
			spec.Bands = b
			spec.Classified = true
		}
		if spec.Reason == "" {
			spec.Reason = a.Name + " angle out of range"
		}
		specs = append(specs, spec)
	}

	return &angleExercise{
		profile: Profile{
			Name:      def.Name,
			Landmarks: landmarksOf(def.Angles),
			Metrics:   specs,
			Cycle:     cy,
		},
		angles: slices.Clone(def.Angles),
	}, nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
