package intensity

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// DefaultReferenceRateHz is the processing rate that counts as 100% efficiency
const DefaultReferenceRateHz = 30.0

// FPS converts one cycle's processing time into frames per second.
// A zero or negative duration (clock resolution artifact) yields 0.
func FPS(elapsedSeconds float64) float64 {
	if elapsedSeconds > 0 {
		return 1 / elapsedSeconds
	}
	return 0
}

// Efficiency returns the achieved processing rate as a percentage of the reference
// rate, capped to [0, 100] and rounded to 2 decimal places
func Efficiency(elapsedSeconds, referenceRateHz float64) float64 {
	return EfficiencyFromFPS(FPS(elapsedSeconds), referenceRateHz)
}

// EfficiencyFromFPS is Efficiency for an already measured frame rate
func EfficiencyFromFPS(fps, referenceRateHz float64) float64 {
	if math.IsNaN(referenceRateHz) || math.IsInf(referenceRateHz, 0) || referenceRateHz <= 0 {
		return 0
	}
	return Round2(clampPercent(fps / referenceRateHz * 100))
}

// Round2 rounds to 2 decimal places, half away from zero
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// EfficiencyWindow keeps the most recent cycle rates for periodic reporting
type EfficiencyWindow struct {
	mu        sync.Mutex
	size      int
	reference float64
	samples   []float64
	next      int
	total     uint64
}

// NewEfficiencyWindow creates a window over the last size cycles
func NewEfficiencyWindow(size int, referenceRateHz float64) *EfficiencyWindow {
	if size <= 0 {
		size = 1
	}
	return &EfficiencyWindow{
		size:      size,
		reference: referenceRateHz,
		samples:   make([]float64, 0, size),
	}
}

// Add records one cycle's frame rate, evicting the oldest sample when full
func (w *EfficiencyWindow) Add(fps float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.total++
	if len(w.samples) < w.size {
		w.samples = append(w.samples, fps)
		return
	}
	w.samples[w.next] = fps
	w.next = (w.next + 1) % w.size
}

// MeanFPS returns the mean frame rate over the window, 0 when empty
func (w *EfficiencyWindow) MeanFPS() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.samples) == 0 {
		return 0
	}
	return stat.Mean(w.samples, nil)
}

// Efficiency returns the windowed efficiency percentage
func (w *EfficiencyWindow) Efficiency() float64 {
	return EfficiencyFromFPS(w.MeanFPS(), w.reference)
}

// Count returns the total number of samples ever added
func (w *EfficiencyWindow) Count() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}
