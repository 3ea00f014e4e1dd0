// Package section partitions a track into contiguous sections that can be
// selected as loop targets.
package section

import (
	"math"

	"github.com/dewi-tim/looptui/internal/timemath"
)

// MaxSections caps how many sections Count and Length produce. Requests
// that would exceed it yield no sections.
const MaxSections = 1000

// Section is a labeled time range in seconds.
type Section struct {
	Start float64
	End   float64
	Label string
}

// Duration returns the length of the section.
func (s Section) Duration() float64 {
	return s.End - s.Start
}

// Mode selects how a track is partitioned.
type Mode int

const (
	// ByCount splits the track into a fixed number of equal sections.
	ByCount Mode = iota
	// ByLength splits the track into sections of a fixed length.
	ByLength
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ByCount:
		return "count"
	case ByLength:
		return "length"
	default:
		return "unknown"
	}
}

func invalid(duration, n float64) bool {
	return math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 ||
		math.IsNaN(n) || math.IsInf(n, 0) || n <= 0
}

// Count splits duration into floor(count) sections of equal length. The
// last section always ends exactly at duration so the sections cover the
// whole track without a floating-point gap or overshoot.
func Count(duration, count float64) []Section {
	if invalid(duration, count) {
		return []Section{}
	}
	if count >= MaxSections+1 {
		return []Section{}
	}
	n := int(math.Floor(count))
	if n < 1 {
		return []Section{}
	}
	length := duration / float64(n)

	sections := make([]Section, 0, n)
	for i := range n {
		start := float64(i) * length
		end := float64(i+1) * length
		if i == n-1 {
			end = duration
		}
		sections = append(sections, newSection(start, end, duration))
	}
	return sections
}

// Length splits duration into sections of the given length; the final
// section ends at duration and may be shorter.
func Length(duration, length float64) []Section {
	if invalid(duration, length) {
		return []Section{}
	}
	parts := math.Ceil(duration / length)
	if parts > MaxSections {
		return []Section{}
	}
	n := int(parts)

	sections := make([]Section, 0, n)
	for i := range n {
		start := float64(i) * length
		end := math.Min(float64(i+1)*length, duration)
		sections = append(sections, newSection(start, end, duration))
	}
	return sections
}

// Generate dispatches to Count or Length.
func Generate(mode Mode, duration, value float64) []Section {
	if mode == ByLength {
		return Length(duration, value)
	}
	return Count(duration, value)
}

// Remove returns sections without the element at index i. Remaining
// sections are left untouched, so gaps are allowed afterwards.
func Remove(sections []Section, i int) []Section {
	if i < 0 || i >= len(sections) {
		return sections
	}
	out := make([]Section, 0, len(sections)-1)
	out = append(out, sections[:i]...)
	return append(out, sections[i+1:]...)
}

func newSection(start, end, duration float64) Section {
	return Section{
		Start: start,
		End:   end,
		Label: timemath.FormatFor(start, duration, false) + " - " + timemath.FormatFor(end, duration, false),
	}
}
