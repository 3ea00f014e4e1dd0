// Package bpm estimates the tempo of a track and binds estimates to the
// track they were started for.
//
// The estimation routine is the bpm-tools algorithm: an envelope follower
// reduces the signal to an energy curve, and the beat interval whose
// autodifference is lowest wins.
package bpm

import (
	"math"
	"math/rand"
)

const (
	Interval = 128
	Samples  = 1024
	Steps    = 1024
	X        = 8
	Y        = 512

	DefaultMin = 60
	DefaultMax = 200
)

// ScanSamples returns the BPM of mono samples at the given sample rate,
// searching between min and max. It returns 0 when nothing fits.
func ScanSamples(samples []float32, rate, min, max float64) float64 {
	e := newEnvelope()
	for _, f := range samples {
		e.push(f)
	}
	return scan(e.res, rate, min, max, rand.New(rand.NewSource(1)))
}

type envelope struct {
	res  []float32
	v, n float64
}

func newEnvelope() *envelope {
	return &envelope{res: make([]float32, 0)}
}

func (e *envelope) push(f float32) {
	z := math.Abs(float64(f))
	if z > e.v {
		e.v += (z - e.v) / X
	} else {
		e.v -= (e.v - z) / Y
	}

	e.n++
	if e.n == Interval {
		e.n, e.res = 0, append(e.res, float32(e.v))
	}
}

func scan(nrg []float32, rate, min, max float64, rng *rand.Rand) float64 {
	if len(nrg) == 0 || rate <= 0 || min <= 0 || max <= min {
		return 0
	}

	imin := bpmToInterval(min, rate)
	imax := bpmToInterval(max, rate)
	step := (imin - imax) / float64(Steps)

	height, trough := math.Inf(0), math.NaN()

	for interval := imax; interval <= imin; interval += step {
		var t float64

		for s := 0; s < Samples; s++ {
			t += autodifference(nrg, interval, rng)
		}

		if t < height {
			trough = interval
			height = t
		}
	}

	return intervalToBpm(trough, rate)
}

var (
	beats   = [...]float64{-32, -16, -8, -4, -2, -1, 1, 2, 4, 8, 16, 32}
	nobeats = [...]float64{-0.5, -0.25, 0.25, 0.5}
)

func autodifference(nrg []float32, interval float64, rng *rand.Rand) float64 {
	mid := rng.Float64() * float64(len(nrg))

	v := sample(nrg, mid)

	var diff, total float64

	for n := 0; n < (len(beats) / 2); n++ {
		y := sample(nrg, mid+beats[n]*interval)
		w := 1.0 / math.Abs(beats[n])
		diff += w * math.Abs(y-v)
		total += w
	}

	for n := 0; n < (len(nobeats) / 2); n++ {
		y := sample(nrg, mid+nobeats[n]*interval)
		w := math.Abs(nobeats[n])
		diff -= w * math.Abs(y-v)
		total += w
	}

	return diff / total
}

func sample(nrg []float32, offset float64) float64 {
	n := math.Floor(offset)
	if n >= 0.0 && n < float64(len(nrg)) {
		return float64(nrg[int(n)])
	}
	return 0.0
}

func bpmToInterval(bpm, rate float64) float64 {
	beatsPerSecond := bpm / 60
	samplesPerBeat := rate / beatsPerSecond
	return samplesPerBeat / Interval
}

func intervalToBpm(interval, rate float64) float64 {
	samplesPerBeat := interval * Interval
	beatsPerSecond := rate / samplesPerBeat
	return beatsPerSecond * 60
}
