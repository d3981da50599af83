package pipeline

import (
	"time"

	"github.com/formcheck/formcheck/analyzer/internal/repcount"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
)

// FrameResult is the analysis of one frame, ready for rendering.
type FrameResult struct {
	SessionID string    `json:"session_id"`
	Exercise  string    `json:"exercise"`
	Timestamp time.Time `json:"timestamp"`

	// TrackingLost is set when a required landmark was missing or not
	// confident enough. Missing names the first such landmark. Metrics and
	// zones are empty on these frames.
	TrackingLost bool   `json:"tracking_lost"`
	Missing      string `json:"missing,omitempty"`

	RawMetrics map[string]float64    `json:"raw_metrics,omitempty"`
	Metrics    map[string]float64    `json:"metrics,omitempty"`
	Zones      map[string]zone.Level `json:"zones,omitempty"`
	WorstZone  zone.Level            `json:"worst_zone"` // meaningless when TrackingLost
	Reasons    []string              `json:"reasons,omitempty"`

	Phase         repcount.Phase `json:"phase"`
	RepCount      int            `json:"rep_count"`
	CorrectReps   int            `json:"correct_reps"`
	IncorrectReps int            `json:"incorrect_reps"`

	// RepCompleted is set on the frame that finished a repetition.
	RepCompleted bool `json:"rep_completed"`
}
