package player

import (
	"github.com/dewi-tim/looptui/internal/loop"
	"github.com/dewi-tim/looptui/internal/section"
	"github.com/dewi-tim/looptui/internal/timemath"
)

// State is the lifecycle state of a Transport.
type State int

const (
	// StateEmpty means no track is loaded.
	StateEmpty State = iota
	// StateLoading means a track is being decoded.
	StateLoading
	// StateReady means a track is loaded and has not been played.
	StateReady
	// StatePlaying indicates playback is active.
	StatePlaying
	// StatePaused indicates playback is paused.
	StatePaused
	// StateEnded means playback reached the end of the track.
	StateEnded
	// StateDisposed is terminal.
	StateDisposed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateLoading:
		return "Loading"
	case StateReady:
		return "Ready"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateEnded:
		return "Ended"
	case StateDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// RepeatMode controls what happens when playback reaches the end.
type RepeatMode int

const (
	// RepeatOff stops at the end of the track.
	RepeatOff RepeatMode = iota
	// RepeatOne restarts the track from the beginning.
	RepeatOne
)

func (m RepeatMode) String() string {
	if m == RepeatOne {
		return "one"
	}
	return "off"
}

// ParseRepeatMode accepts "off" and "one".
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch s {
	case "off", "":
		return RepeatOff, true
	case "one":
		return RepeatOne, true
	}
	return RepeatOff, false
}

// PlaybackState is a snapshot of the transport.
type PlaybackState struct {
	State State

	Path        string
	Engine      string
	CurrentTime float64 // seconds
	Duration    float64 // seconds

	PlaybackRate float64
	Volume       float64
	Repeat       RepeatMode

	Loop       loop.Region
	Section    section.Section
	HasSection bool
}

// IsPlaying reports whether the polling loop is running.
func (p PlaybackState) IsPlaying() bool {
	return p.State == StatePlaying
}

// Loaded reports whether a track is available to play.
func (p PlaybackState) Loaded() bool {
	switch p.State {
	case StateReady, StatePlaying, StatePaused, StateEnded:
		return true
	}
	return false
}

// Progress returns the playback progress as a value between 0.0 and 1.0.
func (p PlaybackState) Progress() float64 {
	return timemath.Clamp(timemath.Progress(p.CurrentTime, p.Duration)/100, 0, 1)
}

// Remaining returns the remaining playback time in seconds.
func (p PlaybackState) Remaining() float64 {
	return max(0, p.Duration-p.CurrentTime)
}

// ActiveRegion returns the region that wraps playback: the selected
// section when there is one, otherwise the loop if it is active.
func (p PlaybackState) ActiveRegion() (loop.Region, bool) {
	return activeRegion(p.Loop, p.Section, p.HasSection)
}

func activeRegion(l loop.Region, s section.Section, hasSection bool) (loop.Region, bool) {
	if hasSection {
		return loop.Region{Start: s.Start, End: s.End, Active: true}, true
	}
	if l.Active {
		return l, true
	}
	return loop.Region{}, false
}
