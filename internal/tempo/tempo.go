// Package tempo converts between the user-facing tempo percentage and the
// playback-rate multiplier, and rescales detected BPM by the active rate.
package tempo

import (
	"fmt"
	"math"
)

const (
	MinRate     = 0.25
	MaxRate     = 4.0
	DefaultRate = 1.0

	MinPercent = 25
	MaxPercent = 400
)

var presets = []int{25, 50, 75, 100, 125, 150, 200, 300, 400}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Clamp limits rate to [MinRate, MaxRate]. Non-finite rates yield
// DefaultRate.
func Clamp(rate float64) float64 {
	if !finite(rate) {
		return DefaultRate
	}
	return math.Max(MinRate, math.Min(MaxRate, rate))
}

// PercentToRate converts a percentage (25-400) to a playback rate.
func PercentToRate(percent float64) float64 {
	if !finite(percent) {
		return DefaultRate
	}
	return Clamp(percent / 100)
}

// RateToPercent converts a playback rate to a whole percentage.
func RateToPercent(rate float64) int {
	if !finite(rate) {
		return 100
	}
	return int(math.Round(Clamp(rate) * 100))
}

// AdjustBPM rescales a detected BPM by rate. An original of 0 (or any
// non-finite or non-positive value) means unknown and yields 0. A
// non-finite rate counts as DefaultRate.
func AdjustBPM(original, rate float64) int {
	if !finite(original) || original <= 0 {
		return 0
	}
	return int(math.Round(original * Clamp(rate)))
}

// Presets returns the quick-select tempo percentages.
func Presets() []int {
	out := make([]int, len(presets))
	copy(out, presets)
	return out
}

// Format renders rate as a percentage, e.g. "150%".
func Format(rate float64) string {
	return fmt.Sprintf("%d%%", RateToPercent(rate))
}

// State is the single tempo value of a session.
type State struct {
	Rate float64
}

// Default returns the tempo state every track starts with.
func Default() State {
	return State{Rate: DefaultRate}
}

// Percent returns the rate as a whole percentage.
func (s State) Percent() int {
	return RateToPercent(s.Rate)
}

// WithPercent returns the state for a percentage.
func (s State) WithPercent(percent float64) State {
	return State{Rate: PercentToRate(percent)}
}

// WithRate returns the state for a rate, clamped.
func (s State) WithRate(rate float64) State {
	return State{Rate: Clamp(rate)}
}

// Step returns the state nudged by delta percentage points.
func (s State) Step(delta int) State {
	return s.WithPercent(float64(s.Percent() + delta))
}
