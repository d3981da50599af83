package api

import (
	"github.com/formcheck/formcheck/analyzer/internal/pipeline"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State        string `json:"state"` // idle | tracking | tracking_lost
	SessionCount int    `json:"session_count"`
	Exercise     string `json:"exercise"`
}

// SessionResponse is the payload for GET /api/v1/session and one entry of
// the WebSocket snapshot.
type SessionResponse struct {
	pipeline.FrameResult

	// WorstZone shadows the embedded field and is omitted while tracking is
	// lost, so an overlay never paints an untracked subject as safe.
	WorstZone *zone.Level `json:"worst_zone,omitempty"`

	Hints    []Hint `json:"hints"`
	LastSeen string `json:"last_seen"` // RFC3339
}

// SnapshotResponse is the full set of live sessions pushed to renderers.
type SnapshotResponse struct {
	Sessions    []SessionResponse `json:"sessions"`
	GeneratedAt string            `json:"generated_at"` // RFC3339
}

// ExerciseResponse describes one registered exercise.
type ExerciseResponse struct {
	Name      string           `json:"name"`
	Active    bool             `json:"active"`
	Landmarks []string         `json:"landmarks"`
	Metrics   []MetricResponse `json:"metrics"`
	Rep       RepResponse      `json:"rep"`
}

// MetricResponse is the band configuration of one metric.
type MetricResponse struct {
	Name    string       `json:"name"`
	Safe    *[2]float64  `json:"safe,omitempty"`
	Caution [][2]float64 `json:"caution,omitempty"`
	Reason  string       `json:"reason,omitempty"`
}

// RepResponse is the repetition cycle of an exercise.
type RepResponse struct {
	Trigger          string  `json:"trigger"`
	DescendBelow     float64 `json:"descend_below"`
	BottomBelow      float64 `json:"bottom_below"`
	TopAbove         float64 `json:"top_above"`
	MinBottomRise    float64 `json:"min_bottom_rise"`
	MinBottomDwellMs int64   `json:"min_bottom_dwell_ms"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
