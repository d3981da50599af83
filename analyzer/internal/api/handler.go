package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/formcheck/formcheck/analyzer/internal/exercise"
	"github.com/formcheck/formcheck/analyzer/internal/history"
	"github.com/formcheck/formcheck/analyzer/internal/store"
	"github.com/formcheck/formcheck/analyzer/internal/summary"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// Session is the running analysis the API reports on and controls.
type Session interface {
	// Profile returns the active exercise profile.
	Profile() exercise.Profile

	// Summary returns the running summary of the current segment.
	Summary() summary.Summary

	// RequestReset asks for a reset before the next frame. It never blocks.
	RequestReset()
}

// History is read access to stored session summaries.
type History interface {
	List(ctx context.Context, limit int) ([]history.Record, error)
	Get(ctx context.Context, id string) (history.Record, error)
}

// Handler is the HTTP handler for all /api/v1/* endpoints and /metrics.
type Handler struct {
	store    *store.Store
	session  Session
	registry *exercise.Registry
	history  History
	mux      *http.ServeMux
}

// New creates a Handler and registers all routes. hist may be nil when
// history is disabled.
func New(st *store.Store, sess Session, reg *exercise.Registry, hist History) *Handler {
	h := &Handler{
		store:    st,
		session:  sess,
		registry: reg,
		history:  hist,
		mux:      http.NewServeMux(),
	}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/session", h.getSession)
	h.mux.HandleFunc("/api/v1/session/reset", h.reset)
	h.mux.HandleFunc("/api/v1/summary", h.summary)
	h.mux.HandleFunc("/api/v1/exercises", h.exercises)
	h.mux.HandleFunc("/api/v1/history", h.listHistory)
	h.mux.HandleFunc("/api/v1/history/", h.getHistory) // subtree, extracts {id}
	h.mux.HandleFunc("/metrics", h.metrics)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		State:        "idle",
		SessionCount: len(h.store.List()),
		Exercise:     h.session.Profile().Name,
	}
	if e, ok := h.store.Latest(); ok {
		resp.State = "tracking"
		if e.Result.TrackingLost {
			resp.State = "tracking_lost"
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// getSession returns GET /api/v1/session: the latest live result, or the
// session named by ?id=.
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var (
		e  store.Entry
		ok bool
	)
	if id := r.URL.Query().Get("id"); id != "" {
		e, ok = h.store.Get(id)
	} else {
		e, ok = h.store.Latest()
	}
	if !ok {
		jsonErr(w, http.StatusNotFound, "no live session")
		return
	}
	jsonResp(w, http.StatusOK, toSessionResponse(e))
}

// reset handles POST /api/v1/session/reset.
func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.session.RequestReset()
	jsonResp(w, http.StatusAccepted, map[string]string{"status": "reset requested"})
}

// summary returns GET /api/v1/summary.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.session.Summary())
}

// exercises returns GET /api/v1/exercises. The active exercise reports its
// configured thresholds; the others report registry defaults.
func (h *Handler) exercises(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	active := h.session.Profile()
	names := h.registry.Names()
	out := make([]ExerciseResponse, 0, len(names))
	for _, name := range names {
		if name == active.Name {
			out = append(out, toExerciseResponse(active, true))
			continue
		}
		ex, err := h.registry.Build(name, exercise.Override{})
		if err != nil {
			jsonErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		out = append(out, toExerciseResponse(ex.Profile(), false))
	}
	jsonResp(w, http.StatusOK, out)
}

// listHistory returns GET /api/v1/history.
func (h *Handler) listHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.history == nil {
		jsonErr(w, http.StatusNotFound, "history disabled")
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxHistoryLimit {
			jsonErr(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	recs, err := h.history.List(r.Context(), limit)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}
	jsonResp(w, http.StatusOK, recs)
}

// getHistory returns GET /api/v1/history/{id}.
func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/history/")
	if id == "" {
		h.listHistory(w, r)
		return
	}
	if h.history == nil {
		jsonErr(w, http.StatusNotFound, "history disabled")
		return
	}

	rec, err := h.history.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		jsonErr(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, rec)
}

// --- helpers ----------------------------------------------------------------

// BuildSnapshot assembles every live session for broadcast.
func BuildSnapshot(st *store.Store) SnapshotResponse {
	entries := st.List()
	sessions := make([]SessionResponse, 0, len(entries))
	for _, e := range entries {
		sessions = append(sessions, toSessionResponse(e))
	}
	return SnapshotResponse{
		Sessions:    sessions,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func toSessionResponse(e store.Entry) SessionResponse {
	resp := SessionResponse{
		FrameResult: e.Result,
		Hints:       computeHints(e.Result),
		LastSeen:    e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !e.Result.TrackingLost {
		worst := e.Result.WorstZone
		resp.WorstZone = &worst
	}
	return resp
}

func toExerciseResponse(p exercise.Profile, active bool) ExerciseResponse {
	resp := ExerciseResponse{
		Name:      p.Name,
		Active:    active,
		Landmarks: p.Landmarks,
		Metrics:   make([]MetricResponse, 0, len(p.Metrics)),
		Rep: RepResponse{
			Trigger:          p.Cycle.Trigger,
			DescendBelow:     p.Cycle.DescendBelow,
			BottomBelow:      p.Cycle.BottomBelow,
			TopAbove:         p.Cycle.TopAbove,
			MinBottomRise:    p.Cycle.MinBottomRise,
			MinBottomDwellMs: p.Cycle.MinBottomDwell.Milliseconds(),
		},
	}
	for _, m := range p.Metrics {
		mr := MetricResponse{Name: m.Name}
		if m.Classified {
			mr.Safe = &[2]float64{m.Bands.Safe.Lo, m.Bands.Safe.Hi}
			for _, c := range m.Bands.Caution {
				mr.Caution = append(mr.Caution, [2]float64{c.Lo, c.Hi})
			}
			mr.Reason = m.Reason
		}
		resp.Metrics = append(resp.Metrics, mr)
	}
	return resp
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
