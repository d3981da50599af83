// Package summary folds a session's frame results into an end-of-session
// report: rep grading, time spent per zone, tracking loss and per-metric
// statistics of the smoothed angles.
package summary

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/formcheck/formcheck/analyzer/internal/pipeline"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
)

// MetricStats describes the distribution of one smoothed metric.
type MetricStats struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Summary is the report for one session segment.
type Summary struct {
	SessionID string    `json:"session_id"`
	Exercise  string    `json:"exercise"`
	Started   time.Time `json:"started"`
	Ended     time.Time `json:"ended"`

	Frames        int `json:"frames"`
	TrackedFrames int `json:"tracked_frames"`

	Reps      int `json:"reps"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`

	// TimeInZone attributes each inter-frame interval to the worst zone of
	// the earlier frame. Intervals that start on a tracking-lost frame go to
	// TrackingLost instead.
	TimeInZone   map[zone.Level]time.Duration `json:"time_in_zone"`
	TrackingLost time.Duration                `json:"tracking_lost"`

	Metrics map[string]MetricStats `json:"metrics"`
}

// Duration is the wall time between the first and last frame.
func (s Summary) Duration() time.Duration { return s.Ended.Sub(s.Started) }

// LogValue renders the summary as a compact slog group.
func (s Summary) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("session_id", s.SessionID),
		slog.String("exercise", s.Exercise),
		slog.Duration("duration", s.Duration()),
		slog.Int("frames", s.Frames),
		slog.Int("reps", s.Reps),
		slog.Int("correct", s.Correct),
		slog.Int("incorrect", s.Incorrect),
		slog.Duration("tracking_lost", s.TrackingLost),
	}
	for _, lvl := range zone.Levels {
		attrs = append(attrs, slog.Duration("time_"+lvl.String(), s.TimeInZone[lvl]))
	}
	return slog.GroupValue(attrs...)
}

// Accumulator builds a Summary incrementally. It is not safe for
// concurrent use; the runner owns it alongside the session.
type Accumulator struct {
	sessionID string
	exercise  string
	started   time.Time

	frames  int
	tracked int
	seen    bool
	last    pipeline.FrameResult

	inZone  map[zone.Level]time.Duration
	lost    time.Duration
	samples map[string][]float64
}

// New returns an empty Accumulator for a session segment.
func New(sessionID, exercise string, started time.Time) *Accumulator {
	return &Accumulator{
		sessionID: sessionID,
		exercise:  exercise,
		started:   started,
		inZone:    make(map[zone.Level]time.Duration, len(zone.Levels)),
		samples:   make(map[string][]float64),
	}
}

// Add folds one frame result in. Results must arrive in timestamp order.
func (a *Accumulator) Add(res pipeline.FrameResult) {
	if a.seen {
		if dt := res.Timestamp.Sub(a.last.Timestamp); dt > 0 {
			if a.last.TrackingLost {
				a.lost += dt
			} else {
				a.inZone[a.last.WorstZone] += dt
			}
		}
	} else if a.started.IsZero() {
		a.started = res.Timestamp
	}

	a.frames++
	if !res.TrackingLost {
		a.tracked++
		for name, v := range res.Metrics {
			a.samples[name] = append(a.samples[name], v)
		}
	}

	a.last = res
	a.seen = true
}

// Frames returns how many results have been added.
func (a *Accumulator) Frames() int { return a.frames }

// Summary returns the report so far. It may be called repeatedly.
func (a *Accumulator) Summary() Summary {
	s := Summary{
		SessionID:     a.sessionID,
		Exercise:      a.exercise,
		Started:       a.started,
		Ended:         a.started,
		Frames:        a.frames,
		TrackedFrames: a.tracked,
		TimeInZone:    make(map[zone.Level]time.Duration, len(zone.Levels)),
		TrackingLost:  a.lost,
		Metrics:       make(map[string]MetricStats, len(a.samples)),
	}
	if a.seen {
		s.Ended = a.last.Timestamp
		s.Reps = a.last.RepCount
		s.Correct = a.last.CorrectReps
		s.Incorrect = a.last.IncorrectReps
	}
	for _, lvl := range zone.Levels {
		s.TimeInZone[lvl] = a.inZone[lvl]
	}

	names := make([]string, 0, len(a.samples))
	for name := range a.samples {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Metrics[name] = describe(a.samples[name])
	}
	return s
}

func describe(xs []float64) MetricStats {
	if len(xs) == 0 {
		return MetricStats{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}
	return MetricStats{
		Samples: len(xs),
		Mean:    mean,
		StdDev:  std,
		Min:     floats.Min(xs),
		Max:     floats.Max(xs),
	}
}
