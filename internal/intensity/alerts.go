package intensity

import (
	"fmt"
	"math"

	"github.com/sanas2211/Realtime-human-intension/internal/models"
)

// ThresholdTable maps a label to the intensity at which it raises an alert
type ThresholdTable map[models.Label]float64

// DefaultThresholds returns the alert thresholds used when nothing is configured
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		models.Angry:  70,
		models.Fear:   60,
		models.Sad:    80,
		models.Stress: 75,
	}
}

// Validate checks that every label is known and every value is finite and within [0, 100]
func (t ThresholdTable) Validate() error {
	for label, value := range t {
		if _, ok := models.ParseLabel(string(label)); !ok {
			return fmt.Errorf("threshold for %w: %q", models.ErrUnknownLabel, label)
		}
		if !ValidThreshold(value) {
			return fmt.Errorf("threshold for %s out of range [0,100]: %v", label, value)
		}
	}
	return nil
}

// ValidThreshold reports whether v can be compared against an intensity.
// NaN would never trigger, so it is rejected along with infinities.
func ValidThreshold(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 100
}

// Clone returns an independent copy of the table
func (t ThresholdTable) Clone() ThresholdTable {
	out := make(ThresholdTable, len(t))
	for label, value := range t {
		out[label] = value
	}
	return out
}

// Labels returns the configured labels in vocabulary order, stress last
func (t ThresholdTable) Labels() []models.Label {
	return models.IntensityMap(t).Labels()
}

// Evaluate returns the labels whose intensity meets or exceeds their threshold.
// Output follows the intensity map order, so stress always comes last.
func Evaluate(intensity models.IntensityMap, thresholds ThresholdTable) models.AlertSet {
	var alerts models.AlertSet
	for _, label := range intensity.Labels() {
		threshold, ok := thresholds[label]
		if !ok {
			continue
		}
		if value := intensity[label]; value >= threshold {
			alerts = append(alerts, models.Alert{
				Label:     label,
				Value:     value,
				Threshold: threshold,
			})
		}
	}
	return alerts
}
