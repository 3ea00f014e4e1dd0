// Package timemath provides time arithmetic and formatting for playback
// positions expressed in seconds.
package timemath

import (
	"fmt"
	"math"
)

// HoursThreshold is the track duration, in seconds, from which positions
// are displayed as HH:MM:SS instead of MM:SS.
const HoursThreshold = 3600

// maxFormatSeconds bounds formatted positions so the conversion to whole
// seconds cannot overflow.
const maxFormatSeconds = 1e15

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Format formats seconds as MM:SS. Minutes are padded to two digits but
// never truncated. Non-finite or negative input yields "00:00".
func Format(seconds float64) string {
	if !finite(seconds) || seconds < 0 {
		return "00:00"
	}
	total := int64(math.Floor(math.Min(seconds, maxFormatSeconds)))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatHMS formats seconds as HH:MM:SS. Non-finite or negative input
// yields "00:00:00".
func FormatHMS(seconds float64) string {
	if !finite(seconds) || seconds < 0 {
		return "00:00:00"
	}
	total := int64(math.Floor(math.Min(seconds, maxFormatSeconds)))
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// UseHours reports whether positions within a track of the given duration
// should be displayed with an hours field.
func UseHours(duration float64) bool {
	return finite(duration) && duration >= HoursThreshold
}

// FormatFor formats seconds for display within a track of the given
// duration, switching to HH:MM:SS for long tracks or when forced.
func FormatFor(seconds, duration float64, forceHours bool) string {
	if forceHours || UseHours(duration) {
		return FormatHMS(seconds)
	}
	return Format(seconds)
}

// Clamp limits t to [min, max]. Non-finite t yields min.
func Clamp(t, min, max float64) float64 {
	if !finite(t) {
		return min
	}
	return math.Max(min, math.Min(max, t))
}

// Progress returns current as a percentage of duration. It returns 0 when
// duration is not positive or either operand is non-finite.
func Progress(current, duration float64) float64 {
	if !finite(current) || !finite(duration) || duration <= 0 {
		return 0
	}
	return current / duration * 100
}

// TimeFromProgress converts a percentage of duration back to seconds,
// clamped into [0, duration].
func TimeFromProgress(percent, duration float64) float64 {
	if !finite(percent) || !finite(duration) || duration <= 0 {
		return 0
	}
	return Clamp(percent/100*duration, 0, duration)
}

// ParseTimestamp combines minute and second operands into seconds. Both are
// floored and clamped non-negative, seconds additionally to 59. Seconds of
// 60 or more are truncated, not carried into minutes.
func ParseTimestamp(minutes, seconds float64) float64 {
	if !finite(minutes) || !finite(seconds) {
		return 0
	}
	m := math.Floor(math.Max(0, minutes))
	s := math.Floor(math.Max(0, math.Min(59, seconds)))
	return m*60 + s
}
