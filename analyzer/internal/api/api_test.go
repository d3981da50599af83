package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/common/expfmt"

	"github.com/formcheck/formcheck/analyzer/internal/api"
	"github.com/formcheck/formcheck/analyzer/internal/exercise"
	"github.com/formcheck/formcheck/analyzer/internal/history"
	"github.com/formcheck/formcheck/analyzer/internal/pipeline"
	"github.com/formcheck/formcheck/analyzer/internal/store"
	"github.com/formcheck/formcheck/analyzer/internal/summary"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
)

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// --- test helpers -----------------------------------------------------------

type fakeSession struct {
	profile exercise.Profile
	sum     summary.Summary
	resets  int
}

func (f *fakeSession) Profile() exercise.Profile { return f.profile }
func (f *fakeSession) Summary() summary.Summary  { return f.sum }
func (f *fakeSession) RequestReset()             { f.resets++ }

type fakeHistory struct {
	recs []history.Record
}

func (f *fakeHistory) List(_ context.Context, limit int) ([]history.Record, error) {
	if limit < len(f.recs) {
		return f.recs[:limit], nil
	}
	return f.recs, nil
}

func (f *fakeHistory) Get(_ context.Context, id string) (history.Record, error) {
	for _, r := range f.recs {
		if r.ID == id {
			return r, nil
		}
	}
	return history.Record{}, history.ErrNotFound
}

func newSession(t *testing.T) *fakeSession {
	t.Helper()
	ex, err := exercise.Builtin().Build(exercise.SquatsName, exercise.Override{})
	if err != nil {
		t.Fatalf("Build squats: %v", err)
	}
	return &fakeSession{
		profile: ex.Profile(),
		sum: summary.Summary{
			SessionID:     "s1",
			Exercise:      "squats",
			Frames:        100,
			TrackedFrames: 90,
			Reps:          3,
			Correct:       2,
			Incorrect:     1,
			TimeInZone: map[zone.Level]time.Duration{
				zone.Safe:    2 * time.Second,
				zone.Caution: 500 * time.Millisecond,
				zone.Unsafe:  250 * time.Millisecond,
			},
			TrackingLost: 300 * time.Millisecond,
		},
	}
}

func result(id string, knee float64, lvl zone.Level) pipeline.FrameResult {
	return pipeline.FrameResult{
		SessionID: id,
		Exercise:  "squats",
		Timestamp: baseTime,
		Metrics:   map[string]float64{"knee": knee, "hip": 170, "torso": 175},
		Zones:     map[string]zone.Level{"knee": lvl, "hip": zone.Safe, "torso": zone.Safe},
		WorstZone: lvl,
	}
}

func newStore(results ...pipeline.FrameResult) *store.Store {
	st := store.New(5 * time.Minute)
	for _, r := range results {
		st.Put(r)
	}
	return st
}

func newHandler(t *testing.T, st *store.Store, hist api.History) (*api.Handler, *fakeSession) {
	t.Helper()
	sess := newSession(t)
	return api.New(st, sess, exercise.Builtin(), hist), sess
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth(t *testing.T) {
	lost := pipeline.FrameResult{SessionID: "s2", TrackingLost: true, Missing: "left_ankle"}
	tests := []struct {
		name      string
		results   []pipeline.FrameResult
		wantState string
		wantCount int
	}{
		{"empty store", nil, "idle", 0},
		{"tracking", []pipeline.FrameResult{result("s1", 150, zone.Safe)}, "tracking", 1},
		{"latest lost", []pipeline.FrameResult{result("s1", 150, zone.Safe), lost}, "tracking_lost", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHandler(t, newStore(tt.results...), nil)
			rr := get(t, h, "/api/v1/health")
			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rr.Code)
			}
			var resp api.HealthResponse
			decode(t, rr, &resp)
			if resp.State != tt.wantState {
				t.Errorf("state: got %q, want %q", resp.State, tt.wantState)
			}
			if resp.SessionCount != tt.wantCount {
				t.Errorf("session_count: got %d, want %d", resp.SessionCount, tt.wantCount)
			}
			if resp.Exercise != "squats" {
				t.Errorf("exercise: got %q, want squats", resp.Exercise)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newHandler(t, newStore(), nil)
	for _, path := range []string{"/api/v1/health", "/api/v1/session", "/api/v1/summary", "/api/v1/exercises", "/metrics"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("DELETE %s: got %d, want 405", path, rr.Code)
		}
	}
	rr := get(t, h, "/api/v1/session/reset")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET reset: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/session --------------------------------------------------------

func TestSession_NotFound(t *testing.T) {
	h, _ := newHandler(t, newStore(), nil)
	if rr := get(t, h, "/api/v1/session"); rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rr.Code)
	}
}

func TestSession_LatestWithHints(t *testing.T) {
	h, _ := newHandler(t, newStore(result("s1", 85, zone.Caution)), nil)
	rr := get(t, h, "/api/v1/session")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	var resp api.SessionResponse
	decode(t, rr, &resp)
	if resp.SessionID != "s1" {
		t.Errorf("session_id: got %q", resp.SessionID)
	}
	if resp.WorstZone == nil || *resp.WorstZone != zone.Caution {
		t.Errorf("worst_zone: got %v, want caution", resp.WorstZone)
	}
	if len(resp.Hints) != 1 || resp.Hints[0].Key != "knee_caution" || resp.Hints[0].Level != "warning" {
		t.Fatalf("hints: got %+v, want one knee_caution warning", resp.Hints)
	}
	if v := resp.Hints[0].Value; v == nil || *v != 85 {
		t.Errorf("hint value: got %v, want 85", v)
	}
	if resp.LastSeen == "" {
		t.Error("last_seen empty")
	}
}

func TestSession_ByID(t *testing.T) {
	h, _ := newHandler(t, newStore(result("a", 170, zone.Safe), result("b", 60, zone.Unsafe)), nil)

	rr := get(t, h, "/api/v1/session?id=a")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.SessionResponse
	decode(t, rr, &resp)
	if resp.SessionID != "a" {
		t.Errorf("session_id: got %q, want a", resp.SessionID)
	}
	if len(resp.Hints) != 1 || resp.Hints[0].Key != "good_form" {
		t.Errorf("hints: got %+v, want good_form", resp.Hints)
	}

	if rr := get(t, h, "/api/v1/session?id=zzz"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown id: got %d, want 404", rr.Code)
	}
}

func TestSession_TrackingLostHint(t *testing.T) {
	lost := pipeline.FrameResult{SessionID: "s1", TrackingLost: true, Missing: "left_ankle"}
	h, _ := newHandler(t, newStore(lost), nil)

	var resp api.SessionResponse
	decode(t, get(t, h, "/api/v1/session"), &resp)
	if len(resp.Hints) != 1 || resp.Hints[0].Key != "tracking_lost" {
		t.Fatalf("hints: got %+v, want tracking_lost", resp.Hints)
	}
	if !strings.Contains(resp.Hints[0].Detail, "left_ankle") {
		t.Errorf("detail %q does not name the missing landmark", resp.Hints[0].Detail)
	}
}

func TestSession_TrackingLostOmitsWorstZone(t *testing.T) {
	lost := pipeline.FrameResult{SessionID: "s1", TrackingLost: true, Missing: "left_knee"}
	h, _ := newHandler(t, newStore(lost), nil)

	var raw map[string]any
	decode(t, get(t, h, "/api/v1/session"), &raw)
	if v, ok := raw["worst_zone"]; ok {
		t.Errorf("worst_zone: got %v, want absent while tracking is lost", v)
	}
	if raw["tracking_lost"] != true {
		t.Errorf("tracking_lost: got %v, want true", raw["tracking_lost"])
	}

	h, _ = newHandler(t, newStore(result("s1", 170, zone.Safe)), nil)
	raw = nil
	decode(t, get(t, h, "/api/v1/session"), &raw)
	if raw["worst_zone"] != "safe" {
		t.Errorf("tracked worst_zone: got %v, want safe", raw["worst_zone"])
	}
}

func TestSession_HintsOrderedBySeverity(t *testing.T) {
	r := result("s1", 60, zone.Unsafe)
	r.Zones["torso"] = zone.Caution
	r.RepCompleted = true
	r.RepCount = 4
	h, _ := newHandler(t, newStore(r), nil)

	var resp api.SessionResponse
	decode(t, get(t, h, "/api/v1/session"), &resp)
	var keys []string
	for _, hint := range resp.Hints {
		keys = append(keys, hint.Key)
	}
	want := "knee_unsafe,torso_caution,rep_completed"
	if got := strings.Join(keys, ","); got != want {
		t.Errorf("hint order: got %s, want %s", got, want)
	}
}

// --- /api/v1/session/reset --------------------------------------------------

func TestReset(t *testing.T) {
	h, sess := newHandler(t, newStore(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/session/reset", nil))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", rr.Code)
	}
	if sess.resets != 1 {
		t.Errorf("resets: got %d, want 1", sess.resets)
	}
}

// --- /api/v1/summary --------------------------------------------------------

func TestSummary(t *testing.T) {
	h, _ := newHandler(t, newStore(), nil)
	rr := get(t, h, "/api/v1/summary")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp map[string]any
	decode(t, rr, &resp)
	if resp["reps"].(float64) != 3 {
		t.Errorf("reps: got %v, want 3", resp["reps"])
	}
	tiz, ok := resp["time_in_zone"].(map[string]any)
	if !ok {
		t.Fatalf("time_in_zone: got %T", resp["time_in_zone"])
	}
	if _, ok := tiz["caution"]; !ok {
		t.Errorf("time_in_zone keys: got %v, want zone names", tiz)
	}
}

// --- /api/v1/exercises ------------------------------------------------------

func TestExercises(t *testing.T) {
	h, _ := newHandler(t, newStore(), nil)
	rr := get(t, h, "/api/v1/exercises")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp []api.ExerciseResponse
	decode(t, rr, &resp)
	if len(resp) != 2 {
		t.Fatalf("exercises: got %d, want 2", len(resp))
	}
	// Names are sorted: lunges, squats.
	if resp[0].Name != "lunges" || resp[0].Active {
		t.Errorf("exercises[0]: got %s active=%v", resp[0].Name, resp[0].Active)
	}
	sq := resp[1]
	if sq.Name != "squats" || !sq.Active {
		t.Errorf("exercises[1]: got %s active=%v", sq.Name, sq.Active)
	}
	if sq.Rep.Trigger != "knee" {
		t.Errorf("squats trigger: got %q, want knee", sq.Rep.Trigger)
	}
	var knee *api.MetricResponse
	for i := range sq.Metrics {
		if sq.Metrics[i].Name == "knee" {
			knee = &sq.Metrics[i]
		}
	}
	if knee == nil || knee.Safe == nil || *knee.Safe != [2]float64{90, 180} {
		t.Errorf("squats knee safe: got %+v", knee)
	}
}

// --- /api/v1/history --------------------------------------------------------

func TestHistory_Disabled(t *testing.T) {
	h, _ := newHandler(t, newStore(), nil)
	if rr := get(t, h, "/api/v1/history"); rr.Code != http.StatusNotFound {
		t.Errorf("list: got %d, want 404", rr.Code)
	}
	if rr := get(t, h, "/api/v1/history/abc"); rr.Code != http.StatusNotFound {
		t.Errorf("get: got %d, want 404", rr.Code)
	}
}

func TestHistory_ListAndGet(t *testing.T) {
	hist := &fakeHistory{recs: []history.Record{
		{ID: "r2", Summary: summary.Summary{SessionID: "s1", Reps: 8}},
		{ID: "r1", Summary: summary.Summary{SessionID: "s1", Reps: 5}},
	}}
	h, _ := newHandler(t, newStore(), hist)

	var list []history.Record
	decode(t, get(t, h, "/api/v1/history?limit=1"), &list)
	if len(list) != 1 || list[0].ID != "r2" {
		t.Errorf("list limit=1: got %+v", list)
	}

	rr := get(t, h, "/api/v1/history/r1")
	if rr.Code != http.StatusOK {
		t.Fatalf("get r1: got %d, want 200", rr.Code)
	}
	var rec history.Record
	decode(t, rr, &rec)
	if rec.Reps != 5 {
		t.Errorf("r1 reps: got %d, want 5", rec.Reps)
	}

	if rr := get(t, h, "/api/v1/history/nope"); rr.Code != http.StatusNotFound {
		t.Errorf("unknown record: got %d, want 404", rr.Code)
	}
}

func TestHistory_BadLimit(t *testing.T) {
	h, _ := newHandler(t, newStore(), &fakeHistory{})
	for _, q := range []string{"0", "-3", "abc", "501"} {
		if rr := get(t, h, "/api/v1/history?limit="+q); rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: got %d, want 400", q, rr.Code)
		}
	}
}

func TestHistory_EmptyIsArray(t *testing.T) {
	h, _ := newHandler(t, newStore(), &fakeHistory{})
	rr := get(t, h, "/api/v1/history")
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("body: got %s, want []", body)
	}
}

// --- /metrics ---------------------------------------------------------------

func TestMetrics_Exposition(t *testing.T) {
	h, _ := newHandler(t, newStore(result("s1", 120, zone.Safe)), nil)
	rr := get(t, h, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content-type: got %q", ct)
	}

	var parser expfmt.TextParser
	fams, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}

	if got := fams["formcheck_frames_total"].GetMetric()[0].GetCounter().GetValue(); got != 100 {
		t.Errorf("frames_total: got %v, want 100", got)
	}
	if got := fams["formcheck_frames_tracking_lost_total"].GetMetric()[0].GetCounter().GetValue(); got != 10 {
		t.Errorf("frames_tracking_lost_total: got %v, want 10", got)
	}

	grades := map[string]float64{}
	for _, m := range fams["formcheck_reps_total"].GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "grade" {
				grades[lp.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	if grades["correct"] != 2 || grades["incorrect"] != 1 {
		t.Errorf("reps_total by grade: got %v", grades)
	}

	zones := map[string]float64{}
	for _, m := range fams["formcheck_zone_seconds_total"].GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "zone" {
				zones[lp.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	if zones["safe"] != 2 || zones["caution"] != 0.5 || zones["unsafe"] != 0.25 {
		t.Errorf("zone_seconds_total: got %v", zones)
	}

	angles, ok := fams["formcheck_angle_degrees"]
	if !ok {
		t.Fatal("formcheck_angle_degrees missing")
	}
	if n := len(angles.GetMetric()); n != 3 {
		t.Errorf("angle series: got %d, want 3", n)
	}
	if got := fams["formcheck_live_sessions"].GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Errorf("live_sessions: got %v, want 1", got)
	}
}

func TestMetrics_NoAnglesWhenTrackingLost(t *testing.T) {
	h, _ := newHandler(t, newStore(pipeline.FrameResult{SessionID: "s1", TrackingLost: true}), nil)
	var parser expfmt.TextParser
	fams, err := parser.TextToMetricFamilies(get(t, h, "/metrics").Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}
	if _, ok := fams["formcheck_angle_degrees"]; ok {
		t.Error("formcheck_angle_degrees present while tracking is lost")
	}
}
