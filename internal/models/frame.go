package models

import (
	"math"
	"strings"
	"time"
)

// EmotionScores holds per-emotion detector confidence, 0-100
type EmotionScores map[Label]float64

// Dominant returns the highest scoring emotion. Ties go to the earlier vocabulary entry.
func (s EmotionScores) Dominant() (Label, bool) {
	var best Label
	found := false
	for _, label := range Vocabulary {
		value, ok := s[label]
		if !ok {
			continue
		}
		if !found || value > s[best] {
			best = label
			found = true
		}
	}
	return best, found
}

// Posture carries normalized vertical positions of the four torso landmarks
type Posture struct {
	LeftShoulderY  float64 `json:"left_shoulder_y"`
	RightShoulderY float64 `json:"right_shoulder_y"`
	LeftHipY       float64 `json:"left_hip_y"`
	RightHipY      float64 `json:"right_hip_y"`
}

// PosturePayload is the wire form of Posture, where any landmark may be missing
type PosturePayload struct {
	LeftShoulderY  *float64 `json:"left_shoulder_y"`
	RightShoulderY *float64 `json:"right_shoulder_y"`
	LeftHipY       *float64 `json:"left_hip_y"`
	RightHipY      *float64 `json:"right_hip_y"`
}

// Posture converts the payload into a descriptor. A partial or non-finite set of
// landmarks yields nil, the same as pose estimation failing outright.
func (p *PosturePayload) Posture() *Posture {
	if p == nil {
		return nil
	}
	values := []*float64{p.LeftShoulderY, p.RightShoulderY, p.LeftHipY, p.RightHipY}
	for _, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil
		}
	}
	return &Posture{
		LeftShoulderY:  *p.LeftShoulderY,
		RightShoulderY: *p.RightShoulderY,
		LeftHipY:       *p.LeftHipY,
		RightHipY:      *p.RightHipY,
	}
}

// IntensityMap holds bounded 0-100 intensities per emotion plus the stress entry
type IntensityMap map[Label]float64

// Labels returns the present keys in vocabulary order, stress last
func (m IntensityMap) Labels() []Label {
	labels := make([]Label, 0, len(m))
	for _, label := range OrderedLabels() {
		if _, ok := m[label]; ok {
			labels = append(labels, label)
		}
	}
	return labels
}

// Alert is a label whose intensity met or exceeded its threshold in one cycle
type Alert struct {
	Label     Label   `json:"label"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// Name returns the display name of the alert, e.g. "STRESS"
func (a Alert) Name() string {
	return strings.ToUpper(string(a.Label))
}

// Message returns the operator-facing alert text, e.g. "STRESS ALERT!"
func (a Alert) Message() string {
	return a.Name() + " ALERT!"
}

// AlertSet is the ordered list of alerts raised in one cycle
type AlertSet []Alert

// Names returns the alert display names in order
func (s AlertSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, a := range s {
		names = append(names, a.Name())
	}
	return names
}

// String joins the alert names the way they are persisted in the event log
func (s AlertSet) String() string {
	return strings.Join(s.Names(), ", ")
}

// FrameRecord is one persisted row of the event log
type FrameRecord struct {
	Timestamp  time.Time
	Dominant   string
	Emotions   EmotionScores
	Intensity  IntensityMap
	FPS        float64
	Efficiency float64
	Alerts     string
}

// FrameSignal is one capture cycle's detector output, as received from the capture side
type FrameSignal struct {
	SourceID       string             `json:"source_id"`
	Timestamp      time.Time          `json:"timestamp"`
	Dominant       string             `json:"dominant_emotion"`
	Emotions       map[string]float64 `json:"emotions"`
	Posture        *PosturePayload    `json:"posture,omitempty"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
}

// AlertEvent is handed to the downstream collaborator that renders or sounds alerts
type AlertEvent struct {
	EventID    string    `json:"event_id"`
	SessionID  string    `json:"session_id"`
	SourceID   string    `json:"source_id"`
	Timestamp  time.Time `json:"timestamp"`
	Dominant   string    `json:"dominant_emotion"`
	Alerts     AlertSet  `json:"alerts"`
	Messages   []string  `json:"messages"`
	Stress     float64   `json:"stress"`
	Efficiency float64   `json:"efficiency"`
}

// SeriesSummary describes one label's trend over the whole log
type SeriesSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Max    float64 `json:"max"`
	Last   float64 `json:"last"`
}

// TrendSnapshot is what the viewer receives on every poll
type TrendSnapshot struct {
	GeneratedAt  time.Time               `json:"generated_at"`
	Rows         int                     `json:"rows"`
	Skipped      int                     `json:"skipped"`
	Series       map[Label][]float64     `json:"series"`
	Summaries    map[Label]SeriesSummary `json:"summaries"`
	LatestAlerts string                  `json:"latest_alerts"`
}
