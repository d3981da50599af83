package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/formcheck/formcheck/analyzer/internal/exercise"
	"github.com/formcheck/formcheck/analyzer/internal/repcount"
	"github.com/formcheck/formcheck/analyzer/internal/smooth"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
	"github.com/formcheck/formcheck/pkg/types"
)

// Default option values.
const (
	DefaultAlpha         = 0.4
	DefaultMinVisibility = 0.5
)

// Options tune a Pipeline.
type Options struct {
	// Alpha is the EMA smoothing factor in (0, 1].
	Alpha float64

	// MinVisibility is the confidence below which a landmark counts as absent.
	MinVisibility float64
}

// Pipeline binds an exercise to its smoothing and tracking options.
type Pipeline struct {
	ex      exercise.Exercise
	profile exercise.Profile
	opts    Options
}

// New returns a Pipeline for ex.
func New(ex exercise.Exercise, opts Options) (*Pipeline, error) {
	if !(opts.Alpha > 0 && opts.Alpha <= 1) {
		return nil, fmt.Errorf("pipeline: alpha %v outside (0, 1]", opts.Alpha)
	}
	if opts.MinVisibility < 0 || opts.MinVisibility > 1 {
		return nil, fmt.Errorf("pipeline: min_visibility %v outside [0, 1]", opts.MinVisibility)
	}
	return &Pipeline{ex: ex, profile: ex.Profile(), opts: opts}, nil
}

// Exercise returns the exercise the pipeline analyses.
func (p *Pipeline) Exercise() exercise.Exercise { return p.ex }

// Options returns the pipeline options.
func (p *Pipeline) Options() Options { return p.opts }

// Session is the carried state for one tracked subject.
type Session struct {
	ID       string
	Exercise string
	Started  time.Time

	ema     *smooth.EMA
	counter *repcount.Counter

	// cycleWorst is the worst zone seen since the current rep left Top.
	cycleWorst zone.Level
	correct    int
	incorrect  int
}

// NewSession starts a session with a fresh random ID.
func (p *Pipeline) NewSession(started time.Time) *Session {
	// Options were validated in New.
	ema, _ := smooth.New(p.opts.Alpha)
	return &Session{
		ID:       uuid.NewString(),
		Exercise: p.profile.Name,
		Started:  started,
		ema:      ema,
		counter:  repcount.New(p.profile.Cycle),
	}
}

// Reset zeroes the smoother, the counter and rep grading together. The ID
// is kept; Started moves to now.
func (s *Session) Reset(now time.Time) {
	s.ema.Reset()
	s.counter.Reset()
	s.cycleWorst = zone.Safe
	s.correct = 0
	s.incorrect = 0
	s.Started = now
}

// RepState returns the counter snapshot.
func (s *Session) RepState() repcount.State { return s.counter.State() }

// Process analyses one frame and advances s.
func (p *Pipeline) Process(s *Session, f types.Frame) FrameResult {
	res := FrameResult{
		SessionID: s.ID,
		Exercise:  p.profile.Name,
		Timestamp: f.Timestamp,
	}

	sk := f.Skeleton()
	raw, ok := p.derive(sk, &res)
	if !ok {
		s.counter.Suspend(f.Timestamp)
		p.fillReps(s, &res)
		return res
	}

	res.RawMetrics = raw
	res.Metrics = make(map[string]float64, len(raw))
	for _, m := range p.profile.Metrics {
		res.Metrics[m.Name] = s.ema.Apply(m.Name, raw[m.Name])
	}

	res.Zones = make(map[string]zone.Level, len(res.Metrics))
	for _, m := range p.profile.Metrics {
		if lvl, ok := p.profile.Classify(m.Name, res.Metrics[m.Name]); ok {
			res.Zones[m.Name] = lvl
			res.WorstZone = zone.Worst(res.WorstZone, lvl)
		}
	}
	if res.WorstZone != zone.Safe {
		for _, m := range p.profile.Metrics {
			if lvl, ok := res.Zones[m.Name]; ok && lvl == res.WorstZone {
				res.Reasons = append(res.Reasons, m.Reason)
			}
		}
	}

	before := s.counter.Phase()
	res.RepCompleted = s.counter.Update(res.Metrics[p.profile.Cycle.Trigger], f.Timestamp)
	after := s.counter.Phase()

	if before != repcount.Top || after != repcount.Top {
		s.cycleWorst = zone.Worst(s.cycleWorst, res.WorstZone)
	}
	switch {
	case res.RepCompleted:
		if s.cycleWorst == zone.Unsafe {
			s.incorrect++
		} else {
			s.correct++
		}
		s.cycleWorst = zone.Safe
	case after == repcount.Top:
		// Back at the top without a rep: the partial dip is not graded.
		s.cycleWorst = zone.Safe
	}

	p.fillReps(s, &res)
	return res
}

// derive checks landmark visibility and computes raw metrics. On failure it
// marks res as tracking-lost.
func (p *Pipeline) derive(sk types.Skeleton, res *FrameResult) (map[string]float64, bool) {
	if missing, ok := sk.Visible(p.profile.Landmarks, p.opts.MinVisibility); !ok {
		res.TrackingLost = true
		res.Missing = missing
		return nil, false
	}
	raw, ok := p.ex.DeriveMetrics(sk)
	if !ok {
		res.TrackingLost = true
		return nil, false
	}
	return raw, true
}

func (p *Pipeline) fillReps(s *Session, res *FrameResult) {
	st := s.counter.State()
	res.Phase = st.Phase
	res.RepCount = st.Count
	res.CorrectReps = s.correct
	res.IncorrectReps = s.incorrect
}
