package exercise

import (
	"time"

	"github.com/formcheck/formcheck/analyzer/internal/repcount"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
)

// LungesName is the registry key of the lunge exercise.
const LungesName = "lunges"

// Lunges treats the left leg as the front leg.
func Lunges() Definition {
	shoulders := Mid{A: "left_shoulder", B: "right_shoulder"}
	hips := Mid{A: "left_hip", B: "right_hip"}
	return Definition{
		Name: LungesName,
		Angles: []AngleDef{
			{Name: "front_knee", A: Joint("left_hip"), B: Joint("left_knee"), C: Joint("left_ankle")},
			{Name: "back_knee", A: Joint("right_hip"), B: Joint("right_knee"), C: Joint("right_ankle")},
			{Name: "torso", A: Vertical{From: shoulders}, B: shoulders, C: hips},
		},
		Bands: map[string]zone.Bands{
			"front_knee": {Safe: zone.Range{Lo: 90, Hi: 180}, Caution: []zone.Range{{Lo: 75, Hi: 90}}},
			"back_knee":  {Safe: zone.Range{Lo: 80, Hi: 180}, Caution: []zone.Range{{Lo: 65, Hi: 80}}},
			"torso":      {Safe: zone.Range{Lo: 150, Hi: 180}, Caution: []zone.Range{{Lo: 130, Hi: 150}}},
		},
		Reasons: map[string]string{
			"front_knee": "Front knee past safe depth",
			"back_knee":  "Back knee angle out of range",
			"torso":      "Torso leaning too far",
		},
		Cycle: repcount.Cycle{
			Trigger:        "front_knee",
			DescendBelow:   150,
			BottomBelow:    110,
			TopAbove:       150,
			MinBottomRise:  8,
			MinBottomDwell: 50 * time.Millisecond,
		},
	}
}
