package geometry

import (
	"math"
	"math/rand"
	"testing"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestAngle_KnownValues(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Point
		want    float64
	}{
		{"right angle", Point{1, 0}, Point{0, 0}, Point{0, 1}, 90},
		{"straight line", Point{-1, 0}, Point{0, 0}, Point{1, 0}, 180},
		{"same direction", Point{2, 0}, Point{0, 0}, Point{5, 0}, 0},
		{"45 degrees", Point{1, 0}, Point{0, 0}, Point{1, 1}, 45},
		{"obtuse 135", Point{1, 0}, Point{0, 0}, Point{-1, 1}, 135},
		{"offset vertex", Point{10, 5}, Point{10, 10}, Point{15, 10}, 90},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Angle(tc.a, tc.b, tc.c); !almostEqual(got, tc.want, 1e-9) {
				t.Errorf("Angle = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAngle_Degenerate(t *testing.T) {
	b := Point{3.5, -2}
	tests := []struct {
		name string
		a, c Point
	}{
		{"a equals b", b, Point{7, 1}},
		{"c equals b", Point{0, 0}, b},
		{"all equal", b, b},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Angle(tc.a, b, tc.c); got != 0 {
				t.Errorf("Angle = %v, want 0", got)
			}
		})
	}
}

func TestAngle_SymmetricAndInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pt := func() Point { return Point{rng.Float64()*200 - 100, rng.Float64()*200 - 100} }

	for i := 0; i < 1000; i++ {
		a, b, c := pt(), pt(), pt()
		ab := Angle(a, b, c)
		cb := Angle(c, b, a)
		if ab != cb {
			t.Fatalf("Angle(a,b,c)=%v != Angle(c,b,a)=%v for %v %v %v", ab, cb, a, b, c)
		}
		if ab < 0 || ab > 180 || math.IsNaN(ab) {
			t.Fatalf("Angle = %v out of [0,180] for %v %v %v", ab, a, b, c)
		}
	}
}

func TestAngle_NearCollinearDoesNotNaN(t *testing.T) {
	// Cosine lands a hair outside [-1, 1] without the clamp.
	a := Point{1e-8, 1}
	b := Point{0, 0}
	c := Point{-1e-8, -1}
	if got := Angle(a, b, c); math.IsNaN(got) || !almostEqual(got, 180, 1e-6) {
		t.Errorf("Angle = %v, want ~180", got)
	}
}

func TestMidpointAboveDistance(t *testing.T) {
	m := Midpoint(Point{0, 0}, Point{4, 2})
	if m != (Point{2, 1}) {
		t.Errorf("Midpoint = %v, want {2 1}", m)
	}
	if got := Above(Point{2, 1}, 0.5); got != (Point{2, 0.5}) {
		t.Errorf("Above = %v, want {2 0.5}", got)
	}
	if got := Distance(Point{0, 0}, Point{3, 4}); got != 5 {
		t.Errorf("Distance = %v, want 5", got)
	}
}
