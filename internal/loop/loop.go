// Package loop validates loop regions and decides when playback must wrap
// back to a region's start.
package loop

import (
	"errors"
	"math"
)

// Epsilon absorbs polling jitter when comparing a position against a loop
// end. Zero misses wraps; much larger values clip audible content.
const Epsilon = 0.01

// Validation errors, listed in the order ValidateBounds checks them.
var (
	ErrNonFinite         = errors.New("invalid time values")
	ErrNegative          = errors.New("time values cannot be negative")
	ErrStartPastDuration = errors.New("start time must be before track end")
	ErrEndPastDuration   = errors.New("end time cannot exceed track duration")
	ErrStartNotBeforeEnd = errors.New("start time must be before end time")
)

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidateBounds checks a loop region against a track duration and returns
// nil if 0 <= start < end <= duration. A region breaking several rules
// reports the first failing rule in declaration order of the errors above.
func ValidateBounds(start, end, duration float64) error {
	switch {
	case !finite(start) || !finite(end) || !finite(duration):
		return ErrNonFinite
	case start < 0 || end < 0:
		return ErrNegative
	case start >= duration:
		return ErrStartPastDuration
	case end > duration:
		return ErrEndPastDuration
	case start >= end:
		return ErrStartNotBeforeEnd
	}
	return nil
}

// StartTime normalizes a loop start into the seek target used on wrap.
func StartTime(start float64) float64 {
	if !finite(start) {
		return 0
	}
	return math.Max(0, start)
}

// ShouldLoop reports whether current has reached end, within Epsilon.
func ShouldLoop(current, end float64) bool {
	if !finite(current) || !finite(end) {
		return false
	}
	return current >= end-Epsilon
}

// Region is a loop window in seconds.
type Region struct {
	Start  float64
	End    float64
	Active bool
}

// Validate checks the region against a track duration.
func (r Region) Validate(duration float64) error {
	return ValidateBounds(r.Start, r.End, duration)
}

// Contains reports whether t lies within [Start, End].
func (r Region) Contains(t float64) bool {
	return t >= r.Start && t <= r.End
}

// Width returns End - Start, or 0 for inverted regions.
func (r Region) Width() float64 {
	return math.Max(0, r.End-r.Start)
}

// Window returns an active region of the given width centered on center and
// clipped to [0, duration].
func Window(center, width, duration float64) Region {
	half := width / 2
	return Region{
		Start:  math.Max(0, center-half),
		End:    math.Min(duration, center+half),
		Active: true,
	}
}

// Marker identifies one edge of a region being dragged.
type Marker int

const (
	MarkerStart Marker = iota
	MarkerEnd
)

// Drag moves one marker of r to t, clamped into [0, duration]. When the
// dragged marker crosses the other one, the other marker is pushed along so
// the region keeps its width where the track allows it. Dragging never
// rejects a position; it only clamps.
func Drag(r Region, m Marker, t, duration float64) Region {
	clamp := func(x float64) float64 {
		return math.Max(0, math.Min(duration, x))
	}
	w := r.Width()
	out := r

	switch m {
	case MarkerStart:
		out.Start = clamp(t)
		if out.Start > r.End {
			out.End = clamp(out.Start + w)
			if out.End-out.Start < w {
				out.Start = math.Max(0, out.End-w)
			}
		}
	case MarkerEnd:
		out.End = clamp(t)
		if out.End < r.Start {
			out.Start = math.Max(0, out.End-w)
			if out.End-out.Start < w {
				out.End = math.Min(duration, out.Start+w)
			}
		}
	}
	return out
}
