package player

import (
	"errors"
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/dewi-tim/looptui/internal/audio"
)

// Engine is one playback back-end. The Transport serializes all calls, so
// implementations need not be safe for concurrent use.
type Engine interface {
	// Name identifies the engine in logs and the UI.
	Name() string
	// Load replaces the current source with track.
	Load(track *audio.Track) error

	// Play starts or resumes output.
	Play() error
	// Pause stops output without losing the position.
	Pause()
	// Seek moves the source to seconds.
	Seek(seconds float64) error

	// SetPlaybackRate sets the speed multiplier.
	SetPlaybackRate(rate float64)
	// SetVolume sets the linear volume in [0, 1].
	SetVolume(v float64)

	// Duration returns the loaded track length in seconds.
	Duration() float64
	// IsPlaying reports whether output is running.
	IsPlaying() bool

	// Close releases the engine's hold on the output.
	Close() error
}

var (
	errNotLoaded     = errors.New("engine has no track loaded")
	ErrTrackTooShort = errors.New("track is shorter than two grains")
)

// resampleQuality is the beep resampler quality used by both engines.
const resampleQuality = 4

// deck is the tail of the streamer graph shared by both engines:
// source -> volume -> ctrl -> output.
type deck struct {
	out     audio.Output
	track   *audio.Track
	ctrl    *beep.Ctrl
	vol     *effects.Volume
	volume  float64
	playing bool
}

func newDeck(out audio.Output) deck {
	return deck{out: out, volume: 1}
}

// attach builds the tail of the graph on top of s. The output must be
// paused or locked by the caller.
func (d *deck) attach(track *audio.Track, s beep.Streamer) {
	d.vol = &effects.Volume{Streamer: s, Base: 2}
	applyVolume(d.vol, d.volume)
	d.ctrl = &beep.Ctrl{Streamer: d.vol, Paused: true}
	d.track = track
	d.playing = false
}

func (d *deck) play() error {
	if d.track == nil {
		return errNotLoaded
	}
	d.out.Lock()
	d.ctrl.Paused = false
	d.out.Unlock()

	if err := d.out.Play(d.ctrl); err != nil {
		d.out.Lock()
		d.ctrl.Paused = true
		d.out.Unlock()
		return err
	}
	d.playing = true
	return nil
}

func (d *deck) pause() {
	if d.ctrl == nil {
		return
	}
	d.out.Lock()
	d.ctrl.Paused = true
	d.out.Unlock()
	if d.playing {
		d.out.Pause()
	}
	d.playing = false
}

func (d *deck) setVolume(v float64) {
	d.volume = math.Max(0, math.Min(1, v))
	if d.vol == nil {
		return
	}
	d.out.Lock()
	applyVolume(d.vol, d.volume)
	d.out.Unlock()
}

func (d *deck) duration() float64 {
	if d.track == nil {
		return 0
	}
	return d.track.Duration()
}

func (d *deck) close() error {
	d.pause()
	d.track, d.ctrl, d.vol = nil, nil, nil
	return nil
}

// applyVolume maps a linear gain onto effects.Volume's base-2 exponent.
func applyVolume(v *effects.Volume, linear float64) {
	if linear <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(linear)
}

// seekSource moves src to seconds on track under the output lock.
func seekSource(out audio.Output, track *audio.Track, src beep.StreamSeeker, seconds float64) error {
	if track == nil || src == nil {
		return errNotLoaded
	}
	out.Lock()
	defer out.Unlock()
	return src.Seek(track.SampleAt(seconds))
}
