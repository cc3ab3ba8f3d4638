package models

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
)

// Label identifies an emotion in the closed vocabulary, or the synthetic stress entry
type Label string

// Emotion labels, as emitted by the face-emotion detector
const (
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Surprise Label = "surprise"
	Fear     Label = "fear"
	Disgust  Label = "disgust"
	Neutral  Label = "neutral"

	// Stress is derived by fusion, never supplied by the detector
	Stress Label = "stress"
)

// Vocabulary is the fixed emotion order used for iteration, charting and alert ordering
var Vocabulary = []Label{Happy, Sad, Angry, Surprise, Fear, Disgust, Neutral}

// ErrUnknownLabel is returned when a label is outside the vocabulary and the policy rejects it
var ErrUnknownLabel = errors.New("unknown emotion label")

// OrderedLabels returns the vocabulary followed by the stress label
func OrderedLabels() []Label {
	labels := make([]Label, 0, len(Vocabulary)+1)
	labels = append(labels, Vocabulary...)
	return append(labels, Stress)
}

// ParseLabel normalizes a raw label and reports whether it belongs to the vocabulary
// or is the stress label
func ParseLabel(raw string) (Label, bool) {
	label := Label(strings.ToLower(strings.TrimSpace(raw)))
	if label == Stress {
		return label, true
	}
	return label, label.IsEmotion()
}

// IsEmotion reports whether the label is one of the vocabulary emotions
func (l Label) IsEmotion() bool {
	for _, v := range Vocabulary {
		if v == l {
			return true
		}
	}
	return false
}

// UnknownLabelPolicy decides what happens to detector labels outside the vocabulary
type UnknownLabelPolicy string

const (
	// UnknownIgnore drops unknown labels silently
	UnknownIgnore UnknownLabelPolicy = "ignore"
	// UnknownLog drops unknown labels and logs each one
	UnknownLog UnknownLabelPolicy = "log"
	// UnknownReject fails normalization, so the whole cycle is skipped
	UnknownReject UnknownLabelPolicy = "reject"
)

// ParseUnknownLabelPolicy parses a policy name, falling back to UnknownLog
func ParseUnknownLabelPolicy(raw string) (UnknownLabelPolicy, error) {
	switch p := UnknownLabelPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case UnknownIgnore, UnknownLog, UnknownReject:
		return p, nil
	case "":
		return UnknownLog, nil
	default:
		return UnknownLog, fmt.Errorf("invalid unknown label policy %q", raw)
	}
}

// NormalizeScores maps raw detector output onto the closed vocabulary.
// The synthetic stress label is treated as unknown here because only fusion may produce it.
// Non-finite scores are dropped regardless of policy.
func NormalizeScores(raw map[string]float64, policy UnknownLabelPolicy) (EmotionScores, error) {
	scores := make(EmotionScores, len(raw))
	for name, value := range raw {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			log.Printf("Vocabulary: Dropping non-finite score for %q", name)
			continue
		}

		label, ok := ParseLabel(name)
		if ok && label.IsEmotion() {
			scores[label] = value
			continue
		}

		switch policy {
		case UnknownReject:
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, name)
		case UnknownIgnore:
		default:
			log.Printf("Vocabulary: Dropping unknown emotion label %q (score=%.2f)", name, value)
		}
	}
	return scores, nil
}
