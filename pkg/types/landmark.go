package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// MediaPipe pose landmark names, indexed by the model's landmark number.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
var PoseLandmarks = [...]string{
	"nose",
	"left_eye_inner",
	"left_eye",
	"left_eye_outer",
	"right_eye_inner",
	"right_eye",
	"right_eye_outer",
	"left_ear",
	"right_ear",
	"mouth_left",
	"mouth_right",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_pinky",
	"right_pinky",
	"left_index",
	"right_index",
	"left_thumb",
	"right_thumb",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
	"left_heel",
	"right_heel",
	"left_foot_index",
	"right_foot_index",
}

// Landmark is one tracked body joint in normalized image coordinates.
// Y grows downward. Z is carried through but ignored by the analyzer.
type Landmark struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Frame is the set of landmarks the pose estimator produced for one image.
type Frame struct {
	// Timestamp is the zero time when the estimator sent no ts_ms.
	Timestamp time.Time
	Landmarks []Landmark
}

// frameJSON is the newline-delimited JSON form of a Frame.
type frameJSON struct {
	TimestampMs *int64         `json:"ts_ms,omitempty"`
	Landmarks   []landmarkJSON `json:"landmarks"`
}

// landmarkJSON accepts either a name or a MediaPipe index.
type landmarkJSON struct {
	Name       string  `json:"name,omitempty"`
	Index      *int    `json:"index,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// UnmarshalJSON decodes the estimator's wire form. Landmarks given by index
// are resolved to their MediaPipe name.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var raw frameJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	lms := make([]Landmark, 0, len(raw.Landmarks))
	for i, l := range raw.Landmarks {
		name := l.Name
		if name == "" {
			if l.Index == nil || *l.Index < 0 || *l.Index >= len(PoseLandmarks) {
				return fmt.Errorf("landmark %d: needs a name or a valid index", i)
			}
			name = PoseLandmarks[*l.Index]
		}
		lms = append(lms, Landmark{Name: name, X: l.X, Y: l.Y, Z: l.Z, Visibility: l.Visibility})
	}
	f.Timestamp = time.Time{}
	if raw.TimestampMs != nil {
		f.Timestamp = time.UnixMilli(*raw.TimestampMs).UTC()
	}
	f.Landmarks = lms
	return nil
}

// MarshalJSON encodes the frame in the same form UnmarshalJSON accepts.
func (f Frame) MarshalJSON() ([]byte, error) {
	raw := frameJSON{Landmarks: make([]landmarkJSON, 0, len(f.Landmarks))}
	if !f.Timestamp.IsZero() {
		ms := f.Timestamp.UnixMilli()
		raw.TimestampMs = &ms
	}
	for _, l := range f.Landmarks {
		raw.Landmarks = append(raw.Landmarks, landmarkJSON{
			Name: l.Name, X: l.X, Y: l.Y, Z: l.Z, Visibility: l.Visibility,
		})
	}
	return json.Marshal(raw)
}

// Skeleton indexes a frame's landmarks by name for lookup.
type Skeleton map[string]Landmark

// Skeleton returns the frame's landmarks keyed by name. When a name appears
// more than once the last occurrence wins.
func (f Frame) Skeleton() Skeleton {
	sk := make(Skeleton, len(f.Landmarks))
	for _, l := range f.Landmarks {
		sk[l.Name] = l
	}
	return sk
}

// Visible reports whether every named landmark is present with a visibility
// of at least minVisibility. It returns the first missing name otherwise.
func (s Skeleton) Visible(names []string, minVisibility float64) (string, bool) {
	for _, n := range names {
		l, ok := s[n]
		if !ok || l.Visibility < minVisibility {
			return n, false
		}
	}
	return "", true
}
