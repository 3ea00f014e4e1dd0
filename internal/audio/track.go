// Package audio decodes audio files into in-memory tracks and provides the
// streamer nodes and device output the playback engines are built from.
package audio

import (
	"github.com/gopxl/beep/v2"
)

// Track is a fully decoded audio file held in memory.
type Track struct {
	Path   string
	format beep.Format
	buf    *beep.Buffer
}

// NewTrack buffers everything s produces into a new Track.
func NewTrack(path string, format beep.Format, s beep.Streamer) *Track {
	buf := beep.NewBuffer(format)
	buf.Append(s)
	return &Track{Path: path, format: format, buf: buf}
}

// Format returns the sample format of the track.
func (t *Track) Format() beep.Format {
	return t.format
}

// Len returns the number of samples (frames) in the track.
func (t *Track) Len() int {
	return t.buf.Len()
}

// Duration returns the length of the track in seconds.
func (t *Track) Duration() float64 {
	if t.format.SampleRate <= 0 {
		return 0
	}
	return float64(t.buf.Len()) / float64(t.format.SampleRate)
}

// Streamer returns a new independent seekable streamer over the whole track.
func (t *Track) Streamer() beep.StreamSeeker {
	return t.buf.Streamer(0, t.buf.Len())
}

// SampleAt converts seconds into a sample index clamped to the track.
func (t *Track) SampleAt(seconds float64) int {
	n := int(seconds * float64(t.format.SampleRate))
	if n < 0 {
		return 0
	}
	if n > t.buf.Len() {
		return t.buf.Len()
	}
	return n
}

// Mono returns the track mixed down to one channel.
func (t *Track) Mono() []float32 {
	out := make([]float32, 0, t.buf.Len())
	s := t.Streamer()
	chunk := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(chunk)
		for _, frame := range chunk[:n] {
			out = append(out, float32((frame[0]+frame[1])/2))
		}
		if !ok || n == 0 {
			return out
		}
	}
}

// frames is a beep.Streamer over a slice of decoded samples.
type frames struct {
	data [][2]float64
	pos  int
}

func (f *frames) Stream(samples [][2]float64) (int, bool) {
	if f.pos >= len(f.data) {
		return 0, false
	}
	n := copy(samples, f.data[f.pos:])
	f.pos += n
	return n, true
}

func (f *frames) Err() error { return nil }

// FromSamples builds a Track from already decoded stereo samples.
func FromSamples(path string, rate beep.SampleRate, data [][2]float64) *Track {
	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 4}
	return NewTrack(path, format, &frames{data: data})
}
