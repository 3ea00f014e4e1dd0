package player

import (
	"github.com/gopxl/beep/v2"

	"github.com/dewi-tim/looptui/internal/audio"
	"github.com/dewi-tim/looptui/internal/tempo"
)

// NativeEngine plays the decoded buffer through a plain resampler. Changing
// the rate changes the pitch with it, like a media element with pitch
// preservation turned off.
type NativeEngine struct {
	deck
	src       beep.StreamSeeker
	resampler *beep.Resampler
	rate      float64
}

// NewNativeEngine creates an engine streaming into out.
func NewNativeEngine(out audio.Output) *NativeEngine {
	return &NativeEngine{deck: newDeck(out), rate: tempo.DefaultRate}
}

func (e *NativeEngine) Name() string {
	return "native"
}

func (e *NativeEngine) Load(track *audio.Track) error {
	e.pause()

	e.out.Lock()
	defer e.out.Unlock()

	e.src = track.Streamer()
	e.resampler = beep.ResampleRatio(resampleQuality, e.ratio(track), e.src)
	e.attach(track, e.resampler)
	return nil
}

// ratio converts the playback rate to a resampling ratio, folding in the
// difference between track and device sample rates.
func (e *NativeEngine) ratio(track *audio.Track) float64 {
	return e.rate * float64(track.Format().SampleRate) / float64(e.out.SampleRate())
}

func (e *NativeEngine) Play() error {
	return e.play()
}

func (e *NativeEngine) Pause() {
	e.pause()
}

func (e *NativeEngine) Seek(seconds float64) error {
	return seekSource(e.out, e.track, e.src, seconds)
}

func (e *NativeEngine) SetPlaybackRate(rate float64) {
	e.rate = tempo.Clamp(rate)
	if e.resampler == nil {
		return
	}
	e.out.Lock()
	e.resampler.SetRatio(e.ratio(e.track))
	e.out.Unlock()
}

func (e *NativeEngine) SetVolume(v float64) {
	e.setVolume(v)
}

func (e *NativeEngine) Duration() float64 {
	return e.duration()
}

func (e *NativeEngine) IsPlaying() bool {
	return e.playing
}

func (e *NativeEngine) Close() error {
	e.src, e.resampler = nil, nil
	return e.close()
}
