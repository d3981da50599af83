package api

import (
	"fmt"
	"sort"

	"github.com/formcheck/formcheck/analyzer/internal/pipeline"
	"github.com/formcheck/formcheck/analyzer/internal/zone"
)

// Hint is one human-readable coaching message about the latest frame.
// Renderers show Title as an overlay and Detail on demand.
type Hint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical".
	Level string `json:"level"`
	// Title is a short label.
	Title string `json:"title"`
	// Detail is the longer explanation.
	Detail string `json:"detail"`
	// Value is the smoothed angle the hint refers to, if any.
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeHints derives coaching hints from a frame result, critical first.
func computeHints(res pipeline.FrameResult) []Hint {
	if res.TrackingLost {
		detail := "Some joints the analyzer needs are hidden or out of frame. " +
			"Step back so your whole body is visible from the side."
		if res.Missing != "" {
			detail = fmt.Sprintf("The %s is hidden or out of frame. ", res.Missing) +
				"Step back so your whole body is visible from the side. " +
				"Rep counting resumes when tracking returns."
		}
		return []Hint{{
			Key:    "tracking_lost",
			Level:  "critical",
			Title:  "Can't see you",
			Detail: detail,
		}}
	}

	var hints []Hint
	for name, lvl := range res.Zones {
		if lvl == zone.Safe {
			continue
		}
		v := res.Metrics[name]
		h := Hint{
			Key:   name + "_" + lvl.String(),
			Value: &v,
		}
		switch lvl {
		case zone.Unsafe:
			h.Level = "critical"
			h.Title = fmt.Sprintf("Fix your %s", name)
			h.Detail = fmt.Sprintf("Your %s angle is %.0f°, outside the safe range. "+
				"A rep finished like this is graded incorrect.", name, v)
		case zone.Caution:
			h.Level = "warning"
			h.Title = fmt.Sprintf("Watch your %s", name)
			h.Detail = fmt.Sprintf("Your %s angle is %.0f°, close to the limit.", name, v)
		}
		hints = append(hints, h)
	}
	if res.RepCompleted {
		hints = append(hints, Hint{
			Key:    "rep_completed",
			Level:  "info",
			Title:  fmt.Sprintf("Rep %d", res.RepCount),
			Detail: fmt.Sprintf("%d correct, %d incorrect so far.", res.CorrectReps, res.IncorrectReps),
		})
	}

	if len(hints) == 0 {
		return []Hint{{
			Key:    "good_form",
			Level:  "ok",
			Title:  "Good form",
			Detail: "Every tracked angle is in its safe range.",
		}}
	}

	sort.SliceStable(hints, func(i, j int) bool {
		ri, rj := levelRank[hints[i].Level], levelRank[hints[j].Level]
		if ri != rj {
			return ri < rj
		}
		return hints[i].Key < hints[j].Key
	})
	return hints
}
