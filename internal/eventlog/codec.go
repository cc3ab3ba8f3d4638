package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

// Column names of the event log, in the order they are written
const (
	ColumnTimestamp  = "Timestamp"
	ColumnDominant   = "Dominant Emotion"
	ColumnEmotions   = "Emotion Scores"
	ColumnIntensity  = "Intensity Scores"
	ColumnFPS        = "FPS"
	ColumnEfficiency = "Efficiency"
	ColumnAlerts     = "Alerts"
)

// TimestampLayout is the human-readable timestamp format of the log
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the fixed first row of every event log file
var Header = []string{
	ColumnTimestamp,
	ColumnDominant,
	ColumnEmotions,
	ColumnIntensity,
	ColumnFPS,
	ColumnEfficiency,
	ColumnAlerts,
}

// numpyScalar matches numpy scalar reprs such as np.float64(57.0), written by the
// earlier capture tool under numpy 2
var numpyScalar = regexp.MustCompile(`\b(?:np|numpy)\.(?:float|int)(?:16|32|64)?\(\s*([^()]*?)\s*\)`)

// ErrMalformedRow marks a log row that could not be deserialized
var ErrMalformedRow = errors.New("malformed log row")

// EncodeScores serializes a label map as a JSON object literal.
// Keys come out sorted, values keep full float64 precision.
func EncodeScores[M ~map[models.Label]float64](scores M) (string, error) {
	plain := make(map[string]float64, len(scores))
	for label, value := range scores {
		plain[string(label)] = value
	}
	data, err := json.Marshal(plain)
	if err != nil {
		return "", fmt.Errorf("failed to encode scores: %w", err)
	}
	return string(data), nil
}

// DecodeScores is the inverse of EncodeScores. It also accepts the single-quoted
// dict literals written by the earlier capture tool, e.g. {'angry': 80.0} or
// {'stress': np.float64(57.0)}.
func DecodeScores(text string) (map[models.Label]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty score mapping", ErrMalformedRow)
	}

	var plain map[string]float64
	err := json.Unmarshal([]byte(text), &plain)
	if err != nil && strings.ContainsRune(text, '\'') {
		legacy := numpyScalar.ReplaceAllString(strings.ReplaceAll(text, "'", `"`), "$1")
		err = json.Unmarshal([]byte(legacy), &plain)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if plain == nil {
		return nil, fmt.Errorf("%w: score mapping is null", ErrMalformedRow)
	}

	scores := make(map[models.Label]float64, len(plain))
	for name, value := range plain {
		label, _ := models.ParseLabel(name)
		scores[label] = value
	}
	return scores, nil
}
