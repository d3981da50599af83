package exercise

import (
	"github.com/formcheck/formcheck/analyzer/internal/geometry"
	"github.com/formcheck/formcheck/pkg/types"
)

// Anchor resolves one angle endpoint from a frame's landmarks.
type Anchor interface {
	// Resolve returns the anchor position, or false if a landmark it needs
	// is missing.
	Resolve(sk types.Skeleton) (geometry.Point, bool)

	// Landmarks lists the landmark names the anchor reads.
	Landmarks() []string
}

// Joint anchors on a single named landmark.
type Joint string

func (j Joint) Resolve(sk types.Skeleton) (geometry.Point, bool) {
	l, ok := sk[string(j)]
	if !ok {
		return geometry.Point{}, false
	}
	return geometry.Point{X: l.X, Y: l.Y}, true
}

func (j Joint) Landmarks() []string { return []string{string(j)} }

// Mid anchors halfway between two landmarks, e.g. the centre of the shoulders.
type Mid struct {
	A, B Joint
}

func (m Mid) Resolve(sk types.Skeleton) (geometry.Point, bool) {
	a, okA := m.A.Resolve(sk)
	b, okB := m.B.Resolve(sk)
	if !okA || !okB {
		return geometry.Point{}, false
	}
	return geometry.Midpoint(a, b), true
}

func (m Mid) Landmarks() []string { return []string{string(m.A), string(m.B)} }

// Vertical anchors a fixed distance straight up from another anchor. It is
// the reference ray for lean angles; the distance does not affect the angle.
type Vertical struct {
	From Anchor
}

// verticalOffset is in normalized image units.
const verticalOffset = 0.1

func (v Vertical) Resolve(sk types.Skeleton) (geometry.Point, bool) {
	p, ok := v.From.Resolve(sk)
	if !ok {
		return geometry.Point{}, false
	}
	return geometry.Above(p, verticalOffset), true
}

func (v Vertical) Landmarks() []string { return v.From.Landmarks() }

// AngleDef measures metric Name as the angle at B between B→A and B→C.
type AngleDef struct {
	Name    string
	A, B, C Anchor
}

// Measure resolves the anchors and returns the angle.
func (d AngleDef) Measure(sk types.Skeleton) (float64, bool) {
	a, okA := d.A.Resolve(sk)
	b, okB := d.B.Resolve(sk)
	c, okC := d.C.Resolve(sk)
	if !okA || !okB || !okC {
		return 0, false
	}
	return geometry.Angle(a, b, c), true
}

// landmarksOf returns the distinct landmark names used by defs, in first-use
// order.
func landmarksOf(defs []AngleDef) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range defs {
		for _, an := range []Anchor{d.A, d.B, d.C} {
			for _, n := range an.Landmarks() {
				if !seen[n] {
					seen[n] = true
					out = append(out, n)
				}
			}
		}
	}
	return out
}
