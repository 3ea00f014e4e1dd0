package audio

import (
	"math"

	"github.com/gopxl/beep/v2"
)

// Stretcher plays a seekable source at a variable rate without shifting
// its pitch. Grains of the source are cut at a read position that advances
// by hop*rate per grain, windowed with a Hann window and overlap-added at a
// fixed hop.
//
// Position, Seek and Len are in source samples, so a Stretcher can stand
// in wherever the source did.
type Stretcher struct {
	src    beep.StreamSeeker
	rate   float64
	grain  int
	hop    int
	window []float64
	norm   []float64

	pos   float64
	acc   [][2]float64
	out   [][2]float64
	outAt int
	read  [][2]float64
	done  bool
}

// NewStretcher wraps src. grain and overlap are in samples; overlap is
// clamped below grain.
func NewStretcher(src beep.StreamSeeker, grain, overlap int) *Stretcher {
	grain = max(grain, 2)
	overlap = min(max(overlap, 0), grain-1)
	hop := grain - overlap

	window := make([]float64, grain)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(grain))
	}

	// Sum of the windows covering each output slot of one hop, so uneven
	// overlaps still add up to unity gain.
	norm := make([]float64, hop)
	for j := range norm {
		for k := j; k < grain; k += hop {
			norm[j] += window[k]
		}
		if norm[j] < 1e-6 {
			norm[j] = 1
		}
	}

	return &Stretcher{
		src:    src,
		rate:   1,
		grain:  grain,
		hop:    hop,
		window: window,
		norm:   norm,
		acc:    make([][2]float64, grain),
		read:   make([][2]float64, grain),
		out:    make([][2]float64, 0, hop),
	}
}

// SetRate sets the playback rate. Rates <= 0 are ignored.
func (s *Stretcher) SetRate(rate float64) {
	if rate > 0 && !math.IsInf(rate, 0) {
		s.rate = rate
	}
}

func (s *Stretcher) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) {
		if s.outAt >= len(s.out) {
			if s.done || !s.next() {
				s.done = true
				return n, n > 0
			}
		}
		c := copy(samples[n:], s.out[s.outAt:])
		s.outAt += c
		n += c
	}
	return n, true
}

// next synthesizes one hop of output.
func (s *Stretcher) next() bool {
	start := int(s.pos)
	if start >= s.src.Len() {
		return false
	}
	if err := s.src.Seek(start); err != nil {
		return false
	}

	got := 0
	for got < s.grain {
		m, ok := s.src.Stream(s.read[got:])
		got += m
		if !ok || m == 0 {
			break
		}
	}
	clear(s.read[got:])

	for i, w := range s.window {
		s.acc[i][0] += s.read[i][0] * w
		s.acc[i][1] += s.read[i][1] * w
	}

	s.out = s.out[:s.hop]
	for i := range s.out {
		s.out[i][0] = s.acc[i][0] / s.norm[i]
		s.out[i][1] = s.acc[i][1] / s.norm[i]
	}
	s.outAt = 0

	copy(s.acc, s.acc[s.hop:])
	clear(s.acc[s.grain-s.hop:])

	s.pos += float64(s.hop) * s.rate
	return true
}

func (s *Stretcher) Err() error {
	return s.src.Err()
}

func (s *Stretcher) Len() int {
	return s.src.Len()
}

// Position returns the source sample the next output corresponds to.
func (s *Stretcher) Position() int {
	if len(s.out) == 0 {
		return min(int(s.pos), s.src.Len())
	}
	p := int(s.pos - float64(s.hop-s.outAt)*s.rate)
	return min(max(p, 0), s.src.Len())
}

// Seek moves the read position to p source samples and drops any
// partially overlapped output.
func (s *Stretcher) Seek(p int) error {
	if p < 0 || p > s.src.Len() {
		return s.src.Seek(p)
	}
	s.pos = float64(p)
	clear(s.acc)
	s.out = s.out[:0]
	s.outAt = 0
	s.done = false
	return nil
}
