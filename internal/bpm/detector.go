package bpm

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/dewi-tim/looptui/internal/audio"
)

// ScanFunc estimates the BPM of the file at path.
type ScanFunc func(ctx context.Context, path string) (float64, error)

// DecodeFunc decodes the file at path.
type DecodeFunc func(ctx context.Context, path string) (*audio.Track, error)

// Detector estimates the tempo of audio files. Failures are never
// returned to the caller; they read as an unknown BPM.
type Detector struct {
	min, max float64
	scan     ScanFunc
	decode   DecodeFunc
	log      logrus.FieldLogger
}

type Option func(*Detector)

// WithScanFunc replaces the decode-and-scan routine entirely.
func WithScanFunc(f ScanFunc) Option {
	return func(d *Detector) {
		d.scan = f
	}
}

// WithRange sets the BPM search range.
func WithRange(min, max float64) Option {
	return func(d *Detector) {
		d.min, d.max = min, max
	}
}

func WithDecoder(f DecodeFunc) Option {
	return func(d *Detector) {
		d.decode = f
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Detector) {
		d.log = l
	}
}

func New(opts ...Option) *Detector {
	d := &Detector{
		min:    DefaultMin,
		max:    DefaultMax,
		decode: audio.DecodeFile,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.log = l
	}

	if d.scan == nil {
		d.scan = d.decodeAndScan
	}

	return d
}

func (d *Detector) decodeAndScan(ctx context.Context, path string) (float64, error) {
	track, err := d.decode(ctx, path)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	rate := float64(track.Format().SampleRate)
	return ScanSamples(track.Mono(), rate, d.min, d.max), nil
}

// DetectFromFile returns the rounded BPM of the file at path, or false when
// it could not be estimated.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (bpm int, ok bool) {
	log := d.log.WithField("path", path)

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Debug("bpm detection panicked")
			bpm, ok = 0, false
		}
	}()

	v, err := d.scan(ctx, path)
	if err != nil {
		log.WithError(err).Debug("bpm detection failed")
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		log.WithField("bpm", v).Debug("bpm detection produced no estimate")
		return 0, false
	}

	return int(math.Round(v)), true
}

// Format renders a BPM, or "--" when it is unknown.
func Format(v int) string {
	if v <= 0 {
		return "--"
	}
	return fmt.Sprint(v)
}

// FormatAdjusted renders the original BPM and, when tempo changed it, the
// adjusted value: "120 → 180".
func FormatAdjusted(original, adjusted int) string {
	if original <= 0 {
		return Format(0)
	}
	if adjusted <= 0 || adjusted == original {
		return Format(original)
	}
	return fmt.Sprintf("%d → %d", original, adjusted)
}
