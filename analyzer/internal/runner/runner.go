package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/formcheck/formcheck/analyzer/internal/config"
	"github.com/formcheck/formcheck/analyzer/internal/exercise"
	"github.com/formcheck/formcheck/analyzer/internal/pipeline"
	"github.com/formcheck/formcheck/analyzer/internal/store"
	"github.com/formcheck/formcheck/analyzer/internal/summary"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
	"github.com/formcheck/formcheck/pkg/types"
)

// Saver persists finished session summaries.
type Saver interface {
	Save(ctx context.Context, s summary.Summary) (string, error)
}

// Options configure a Runner.
type Options struct {
	// FrameSkip processes every FrameSkip+1-th frame.
	FrameSkip int

	// Store receives every frame result. Optional.
	Store *store.Store

	// History receives the summary of every finished segment. Optional.
	History Saver
}

// Build validates every configured exercise against reg and returns the
// pipeline for the session exercise.
func Build(cfg *config.Config, reg *exercise.Registry) (*pipeline.Pipeline, error) {
	for name := range cfg.Exercises {
		if _, err := reg.Build(name, overrideFor(cfg, name)); err != nil {
			return nil, err
		}
	}
	active, err := reg.Build(cfg.Session.Exercise, overrideFor(cfg, cfg.Session.Exercise))
	if err != nil {
		return nil, err
	}
	return pipeline.New(active, pipeline.Options{
		Alpha:         cfg.Session.Alpha,
		MinVisibility: cfg.Session.MinVisibility,
	})
}

// overrideFor converts the config section for name into registry overrides.
// Exercise names match case-insensitively.
func overrideFor(cfg *config.Config, name string) exercise.Override {
	var ec config.ExerciseConfig
	found := false
	for k, v := range cfg.Exercises {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(name)) {
			ec, found = v, true
			break
		}
	}
	if !found {
		return exercise.Override{}
	}

	ov := exercise.Override{
		Trigger:        ec.Rep.Trigger,
		DescendBelow:   ec.Rep.DescendBelow,
		BottomBelow:    ec.Rep.BottomBelow,
		TopAbove:       ec.Rep.TopAbove,
		MinBottomRise:  ec.Rep.MinBottomRise,
		MinBottomDwell: ec.Rep.MinBottomDwell,
	}
	for metric, m := range ec.Metrics {
		if m.Safe == nil {
			continue
		}
		if ov.Bands == nil {
			ov.Bands = make(map[string]zone.Bands)
		}
		b := zone.Bands{Safe: zone.Range{Lo: m.Safe.Lo, Hi: m.Safe.Hi}}
		for _, c := range m.Caution {
			b.Caution = append(b.Caution, zone.Range{Lo: c.Lo, Hi: c.Hi})
		}
		ov.Bands[metric] = b
		if m.Reason != "" {
			if ov.Reasons == nil {
				ov.Reasons = make(map[string]string)
			}
			ov.Reasons[metric] = m.Reason
		}
	}
	return ov
}

// pending is a reloaded configuration waiting for the next reset.
type pending struct {
	pipe      *pipeline.Pipeline
	frameSkip int
}

// Runner processes frames for one subject.
type Runner struct {
	store   *store.Store
	history Saver
	now     func() time.Time // injectable for deterministic tests

	resetCh chan struct{}

	// mu guards everything below against readers on other goroutines.
	mu        sync.Mutex
	pipe      *pipeline.Pipeline
	sess      *pipeline.Session
	acc       *summary.Accumulator
	frameSkip int
	seen      int
	lastTS    time.Time
	next      *pending
}

// New returns a Runner that analyses frames with p.
func New(p *pipeline.Pipeline, opts Options) *Runner {
	r := &Runner{
		store:     opts.Store,
		history:   opts.History,
		now:       time.Now,
		resetCh:   make(chan struct{}, 1),
		pipe:      p,
		frameSkip: opts.FrameSkip,
	}
	r.sess = p.NewSession(r.now())
	r.acc = summary.New(r.sess.ID, r.sess.Exercise, time.Time{})
	return r
}

// Run processes frames until the channel closes or ctx is cancelled. Queued
// resets are applied between frames. The current segment is not saved on
// return; call Finish for that.
func (r *Runner) Run(ctx context.Context, frames <-chan types.Frame) error {
	slog.Info("runner: started",
		"exercise", r.Profile().Name, "session_id", r.SessionID(), "frame_skip", r.frameSkip)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.resetCh:
			r.reset(ctx)
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			r.Process(f)
		}
	}
}

// Process analyses one frame, honouring frame skip. It returns false for a
// skipped frame.
func (r *Runner) Process(f types.Frame) (pipeline.FrameResult, bool) {
	r.mu.Lock()
	n := r.seen
	r.seen++
	if n%(r.frameSkip+1) != 0 {
		r.mu.Unlock()
		return pipeline.FrameResult{}, false
	}
	res := r.pipe.Process(r.sess, f)
	r.acc.Add(res)
	r.lastTS = f.Timestamp
	r.mu.Unlock()

	if r.store != nil {
		r.store.Put(res)
	}
	if res.RepCompleted {
		slog.Info("runner: rep completed",
			"session_id", res.SessionID,
			"reps", res.RepCount,
			"correct", res.CorrectReps,
			"incorrect", res.IncorrectReps,
		)
	}
	return res, true
}

// RequestReset queues a reset for Run to apply before the next frame.
// Requests made while one is already queued coalesce.
func (r *Runner) RequestReset() {
	select {
	case r.resetCh <- struct{}{}:
	default:
	}
}

// Reload builds a pipeline from cfg and parks it until the next reset. The
// session ID survives the swap unless the exercise changes. On error the
// current and any previously parked pipeline are kept.
func (r *Runner) Reload(cfg *config.Config, reg *exercise.Registry) error {
	p, err := Build(cfg, reg)
	if err != nil {
		return fmt.Errorf("runner: reload: %w", err)
	}
	r.mu.Lock()
	r.next = &pending{pipe: p, frameSkip: cfg.Session.FrameSkip}
	r.mu.Unlock()
	slog.Info("runner: new configuration applies at next reset",
		"exercise", p.Exercise().Name(), "alpha", p.Options().Alpha)
	return nil
}

// Profile returns the active exercise profile.
func (r *Runner) Profile() exercise.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipe.Exercise().Profile()
}

// SessionID returns the active session's ID.
func (r *Runner) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess.ID
}

// Summary returns the running summary of the current segment.
func (r *Runner) Summary() summary.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acc.Summary()
}

// Finish returns the current segment's summary and saves it to history if
// any frame was analysed.
func (r *Runner) Finish(ctx context.Context) (summary.Summary, error) {
	s := r.Summary()
	return s, r.save(ctx, s)
}

func (r *Runner) reset(ctx context.Context) {
	r.mu.Lock()
	done := r.acc.Summary()
	at := r.lastTS
	if at.IsZero() {
		at = r.now()
	}
	next := r.next
	r.next = nil
	if next != nil {
		prev := r.sess
		r.pipe = next.pipe
		r.frameSkip = next.frameSkip
		r.sess = r.pipe.NewSession(at)
		// Only a change of exercise starts a new session.
		if r.sess.Exercise == prev.Exercise {
			r.sess.ID = prev.ID
		}
	} else {
		r.sess.Reset(at)
	}
	r.acc = summary.New(r.sess.ID, r.sess.Exercise, time.Time{})
	r.seen = 0
	id, name := r.sess.ID, r.sess.Exercise
	r.mu.Unlock()

	slog.Info("runner: session reset",
		"session_id", id, "exercise", name, "reloaded", next != nil,
		"previous", done)
	if err := r.save(ctx, done); err != nil {
		slog.Error("runner: save summary failed", "session_id", done.SessionID, "err", err)
	}
}

func (r *Runner) save(ctx context.Context, s summary.Summary) error {
	if r.history == nil || s.Frames == 0 {
		return nil
	}
	id, err := r.history.Save(ctx, s)
	if err != nil {
		return err
	}
	slog.Info("runner: summary saved", "record_id", id, "session_id", s.SessionID, "reps", s.Reps)
	return nil
}
