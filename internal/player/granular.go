package player

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/dewi-tim/looptui/internal/audio"
	"github.com/dewi-tim/looptui/internal/tempo"
)

const (
	DefaultGrainSize    = 100 * time.Millisecond
	DefaultGrainOverlap = 50 * time.Millisecond
)

// GranularEngine time-stretches with overlapping grains so the tempo can
// change while the pitch stays put.
type GranularEngine struct {
	deck
	grain   time.Duration
	overlap time.Duration

	stretch *audio.Stretcher
	rate    float64
}

// NewGranularEngine creates an engine streaming into out. Zero grain or
// overlap durations select the defaults.
func NewGranularEngine(out audio.Output, grain, overlap time.Duration) *GranularEngine {
	if grain <= 0 {
		grain = DefaultGrainSize
	}
	if overlap <= 0 || overlap >= grain {
		overlap = grain / 2
	}
	return &GranularEngine{
		deck:    newDeck(out),
		grain:   grain,
		overlap: overlap,
		rate:    tempo.DefaultRate,
	}
}

func (e *GranularEngine) Name() string {
	return "granular"
}

func (e *GranularEngine) Load(track *audio.Track) error {
	sr := track.Format().SampleRate
	grain := sr.N(e.grain)
	if track.Len() < 2*grain {
		return fmt.Errorf("%w: %d samples", ErrTrackTooShort, track.Len())
	}

	e.pause()

	e.out.Lock()
	defer e.out.Unlock()

	e.stretch = audio.NewStretcher(track.Streamer(), grain, sr.N(e.overlap))
	e.stretch.SetRate(e.rate)

	var s beep.Streamer = e.stretch
	if out := e.out.SampleRate(); out != sr {
		s = beep.Resample(resampleQuality, sr, out, e.stretch)
	}
	e.attach(track, s)
	return nil
}

func (e *GranularEngine) Play() error {
	return e.play()
}

func (e *GranularEngine) Pause() {
	e.pause()
}

func (e *GranularEngine) Seek(seconds float64) error {
	return seekSource(e.out, e.track, e.stretch, seconds)
}

func (e *GranularEngine) SetPlaybackRate(rate float64) {
	e.rate = tempo.Clamp(rate)
	if e.stretch == nil {
		return
	}
	e.out.Lock()
	e.stretch.SetRate(e.rate)
	e.out.Unlock()
}

func (e *GranularEngine) SetVolume(v float64) {
	e.setVolume(v)
}

func (e *GranularEngine) Duration() float64 {
	return e.duration()
}

func (e *GranularEngine) IsPlaying() bool {
	return e.playing
}

func (e *GranularEngine) Close() error {
	e.stretch = nil
	return e.close()
}
