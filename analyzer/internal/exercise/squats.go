package exercise

import (
	"time"

	"github.com/formcheck/formcheck/analyzer/internal/repcount"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
)

// SquatsName is the registry key of the squat exercise.
const SquatsName = "squats"

// Squats measures the left-side knee and hip and the torso lean.
//
//	knee  = angle(hip, knee, ankle)
//	hip   = angle(shoulder centre, hip, knee)
//	torso = angle(vertical above shoulder centre, shoulder centre, hip)
func Squats() Definition {
	shoulders := Mid{A: "left_shoulder", B: "right_shoulder"}
	return Definition{
		Name: SquatsName,
		Angles: []AngleDef{
			{Name: "knee", A: Joint("left_hip"), B: Joint("left_knee"), C: Joint("left_ankle")},
			{Name: "hip", A: shoulders, B: Joint("left_hip"), C: Joint("left_knee")},
			{Name: "torso", A: Vertical{From: shoulders}, B: shoulders, C: Joint("left_hip")},
		},
		Bands: map[string]zone.Bands{
			"knee":  {Safe: zone.Range{Lo: 90, Hi: 180}, Caution: []zone.Range{{Lo: 80, Hi: 90}}},
			"hip":   {Safe: zone.Range{Lo: 160, Hi: 180}, Caution: []zone.Range{{Lo: 140, Hi: 160}}},
			"torso": {Safe: zone.Range{Lo: 160, Hi: 180}, Caution: []zone.Range{{Lo: 140, Hi: 160}}},
		},
		Reasons: map[string]string{
			"knee":  "Knee angle out of range",
			"hip":   "Hip angle out of range",
			"torso": "Torso alignment off",
		},
		Cycle: repcount.Cycle{
			Trigger:        "knee",
			DescendBelow:   150,
			BottomBelow:    110,
			TopAbove:       150,
			MinBottomRise:  8,
			MinBottomDwell: 50 * time.Millisecond,
		},
	}
}
