package api

import (
	"log/slog"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/formcheck/formcheck/analyzer/internal/zone"
)

// metrics serves GET /metrics in the Prometheus text format.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	for _, mf := range h.metricFamilies() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			slog.Error("api: write metrics", "family", mf.GetName(), "err", err)
			return
		}
	}
}

func (h *Handler) metricFamilies() []*dto.MetricFamily {
	s := h.session.Summary()
	ex := s.Exercise

	zoneSeconds := make([]*dto.Metric, 0, len(zone.Levels))
	for _, lvl := range zone.Levels {
		zoneSeconds = append(zoneSeconds,
			counter(s.TimeInZone[lvl].Seconds(), "exercise", ex, "zone", lvl.String()))
	}

	fams := []*dto.MetricFamily{
		family("formcheck_frames_total", "Frames analysed in the current session.",
			dto.MetricType_COUNTER, counter(float64(s.Frames), "exercise", ex)),
		family("formcheck_frames_tracking_lost_total", "Frames where a required landmark was not visible.",
			dto.MetricType_COUNTER, counter(float64(s.Frames-s.TrackedFrames), "exercise", ex)),
		family("formcheck_reps_total", "Completed repetitions by grade.",
			dto.MetricType_COUNTER,
			counter(float64(s.Correct), "exercise", ex, "grade", "correct"),
			counter(float64(s.Incorrect), "exercise", ex, "grade", "incorrect")),
		family("formcheck_zone_seconds_total", "Time spent with the worst metric in each zone.",
			dto.MetricType_COUNTER, zoneSeconds...),
		family("formcheck_tracking_lost_seconds_total", "Time spent without tracking.",
			dto.MetricType_COUNTER, counter(s.TrackingLost.Seconds(), "exercise", ex)),
		family("formcheck_live_sessions", "Sessions with a result inside the TTL.",
			dto.MetricType_GAUGE, gauge(float64(len(h.store.List())))),
	}

	if e, ok := h.store.Latest(); ok && !e.Result.TrackingLost {
		names := make([]string, 0, len(e.Result.Metrics))
		for name := range e.Result.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		angles := make([]*dto.Metric, 0, len(names))
		for _, name := range names {
			angles = append(angles, gauge(e.Result.Metrics[name], "exercise", e.Result.Exercise, "metric", name))
		}
		fams = append(fams, family("formcheck_angle_degrees", "Latest smoothed joint angle.",
			dto.MetricType_GAUGE, angles...))
	}
	return fams
}

func family(name, help string, typ dto.MetricType, ms ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   typ.Enum(),
		Metric: ms,
	}
}

func counter(v float64, labels ...string) *dto.Metric {
	return &dto.Metric{Label: labelPairs(labels), Counter: &dto.Counter{Value: ptr(v)}}
}

func gauge(v float64, labels ...string) *dto.Metric {
	return &dto.Metric{Label: labelPairs(labels), Gauge: &dto.Gauge{Value: ptr(v)}}
}

// labelPairs turns alternating name, value strings into label pairs.
func labelPairs(kv []string) []*dto.LabelPair {
	out := make([]*dto.LabelPair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, &dto.LabelPair{Name: ptr(kv[i]), Value: ptr(kv[i+1])})
	}
	return out
}

func ptr[T any](v T) *T { return &v }
