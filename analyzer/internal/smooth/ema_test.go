package smooth

import (
	"math"
	"testing"
)

func TestNew_RejectsBadAlpha(t *testing.T) {
	for _, a := range []float64{0, -0.1, 1.01, math.NaN()} {
		if _, err := New(a); err == nil {
			t.Errorf("New(%v): expected error, got nil", a)
		}
	}
	for _, a := range []float64{0.01, 0.5, 1} {
		if _, err := New(a); err != nil {
			t.Errorf("New(%v): unexpected error %v", a, err)
		}
	}
}

func TestApply_FirstObservationPassesThrough(t *testing.T) {
	e, _ := New(0.2)
	if got := e.Apply("knee", 137.5); got != 137.5 {
		t.Errorf("first Apply = %v, want 137.5", got)
	}
}

func TestApply_Formula(t *testing.T) {
	e, _ := New(0.5)
	e.Apply("knee", 170)
	if got := e.Apply("knee", 150); got != 160 {
		t.Errorf("second Apply = %v, want 160", got)
	}
	if got := e.Apply("knee", 100); got != 130 {
		t.Errorf("third Apply = %v, want 130", got)
	}
}

// ulpSlack absorbs float rounding once the average has reached the goal.
const ulpSlack = 1e-9

func TestApply_ConvergesMonotonicallyWithoutOvershoot(t *testing.T) {
	tests := []struct {
		name        string
		start, goal float64
	}{
		{"rising", 90, 170},
		{"falling", 170, 90},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, _ := New(0.3)
			prev := e.Apply("m", tc.start)
			for i := 0; i < 200; i++ {
				s := e.Apply("m", tc.goal)
				if math.Abs(tc.goal-s) > math.Abs(tc.goal-prev)+ulpSlack {
					t.Fatalf("step %d moved away from goal: %v -> %v", i, prev, s)
				}
				if (tc.goal > tc.start && s > tc.goal+ulpSlack) || (tc.goal < tc.start && s < tc.goal-ulpSlack) {
					t.Fatalf("step %d overshot goal %v: %v", i, tc.goal, s)
				}
				prev = s
			}
			if math.Abs(prev-tc.goal) > 1e-6 {
				t.Errorf("after 200 steps = %v, want ~%v", prev, tc.goal)
			}
		})
	}
}

func TestApply_AlphaOneTracksRaw(t *testing.T) {
	e, _ := New(1)
	e.Apply("hip", 10)
	if got := e.Apply("hip", 99); got != 99 {
		t.Errorf("Apply = %v, want 99", got)
	}
}

func TestResetKey_LeavesOtherKeys(t *testing.T) {
	e, _ := New(0.5)
	e.Apply("knee", 100)
	e.Apply("hip", 150)

	e.ResetKey("knee")

	if _, ok := e.Value("knee"); ok {
		t.Error("knee should be cleared")
	}
	if v, ok := e.Value("hip"); !ok || v != 150 {
		t.Errorf("hip = (%v, %v), want (150, true)", v, ok)
	}
	if got := e.Apply("knee", 42); got != 42 {
		t.Errorf("Apply after ResetKey = %v, want 42", got)
	}
}

func TestReset_ClearsAll(t *testing.T) {
	e, _ := New(0.5)
	e.Apply("knee", 100)
	e.Apply("hip", 150)
	e.Reset()
	if _, ok := e.Value("knee"); ok {
		t.Error("knee should be cleared")
	}
	if _, ok := e.Value("hip"); ok {
		t.Error("hip should be cleared")
	}
}
