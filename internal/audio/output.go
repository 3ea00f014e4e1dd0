package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"
)

var ErrOutputUnavailable = errors.New("audio output unavailable")

// Output is the device sink an engine streams into. Changes to the
// streamer graph passed to Play must happen between Lock and Unlock.
type Output interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer) error
	Pause()
	Lock()
	Unlock()
	Close() error
}

// The oto context can only be created once per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate beep.SampleRate
	otoErr  error
)

func otoContext(rate beep.SampleRate, buffer time.Duration) (*oto.Context, beep.SampleRate, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   int(rate),
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
			BufferSize:   buffer,
		}
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(op)
		if otoErr == nil {
			<-ready
			otoRate = rate
		}
	})
	return otoCtx, otoRate, otoErr
}

// OtoOutput plays through the system audio device.
type OtoOutput struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	buffer time.Duration

	player *oto.Player
	src    *pull
}

// NewOtoOutput returns an output for the default device. The oto context
// is created on first Play.
func NewOtoOutput(rate beep.SampleRate, buffer time.Duration) *OtoOutput {
	o := &OtoOutput{rate: rate, buffer: buffer}
	o.src = &pull{mu: &o.mu}
	return o
}

func (o *OtoOutput) SampleRate() beep.SampleRate {
	return o.rate
}

// Play starts pulling from s, replacing whatever was playing.
func (o *OtoOutput) Play(s beep.Streamer) error {
	ctx, rate, err := otoContext(o.rate, o.buffer)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputUnavailable, err)
	}
	if rate != o.rate {
		return fmt.Errorf("%w: device already opened at %d Hz", ErrOutputUnavailable, rate)
	}

	o.mu.Lock()
	o.src.s = s
	o.mu.Unlock()

	if o.player == nil {
		o.player = ctx.NewPlayer(o.src)
	}
	o.player.Play()
	return o.player.Err()
}

func (o *OtoOutput) Pause() {
	if o.player != nil {
		o.player.Pause()
	}
}

func (o *OtoOutput) Lock()   { o.mu.Lock() }
func (o *OtoOutput) Unlock() { o.mu.Unlock() }

func (o *OtoOutput) Close() error {
	o.Pause()
	o.mu.Lock()
	o.src.s = nil
	o.mu.Unlock()
	return nil
}

// pull adapts a beep.Streamer to the float32LE byte stream oto reads.
// It never reports EOF; exhausted or missing streamers read as silence.
type pull struct {
	mu  *sync.Mutex
	s   beep.Streamer
	buf [][2]float64
}

func (p *pull) Read(b []byte) (int, error) {
	frames := len(b) / 8
	if frames == 0 {
		return 0, nil
	}
	if cap(p.buf) < frames {
		p.buf = make([][2]float64, frames)
	}
	buf := p.buf[:frames]

	p.mu.Lock()
	n := 0
	if p.s != nil {
		for n < frames {
			m, ok := p.s.Stream(buf[n:])
			n += m
			if !ok || m == 0 {
				break
			}
		}
	}
	p.mu.Unlock()
	clear(buf[n:])

	for i, frame := range buf {
		binary.LittleEndian.PutUint32(b[i*8:], math.Float32bits(float32(frame[0])))
		binary.LittleEndian.PutUint32(b[i*8+4:], math.Float32bits(float32(frame[1])))
	}
	return frames * 8, nil
}

// NullOutput discards audio. It serves headless runs and tests, which can
// pull samples explicitly with Drain.
type NullOutput struct {
	mu      sync.Mutex
	rate    beep.SampleRate
	s       beep.Streamer
	playing bool

	// Fail, when set, is returned by Play.
	Fail error
}

// NewNullOutput returns an output that plays nothing at rate.
func NewNullOutput(rate beep.SampleRate) *NullOutput {
	return &NullOutput{rate: rate}
}

func (n *NullOutput) SampleRate() beep.SampleRate {
	return n.rate
}

func (n *NullOutput) Play(s beep.Streamer) error {
	if n.Fail != nil {
		return n.Fail
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.s = s
	n.playing = true
	return nil
}

func (n *NullOutput) Pause() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = false
}

func (n *NullOutput) Lock()   { n.mu.Lock() }
func (n *NullOutput) Unlock() { n.mu.Unlock() }

func (n *NullOutput) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.s, n.playing = nil, false
	return nil
}

// Playing reports whether Play was called without a later Pause.
func (n *NullOutput) Playing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.playing
}

// Drain streams count samples from the current streamer as if the device
// had played them and returns them.
func (n *NullOutput) Drain(count int) [][2]float64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([][2]float64, count)
	if n.s == nil {
		return out
	}
	got := 0
	for got < count {
		m, ok := n.s.Stream(out[got:])
		got += m
		if !ok || m == 0 {
			break
		}
	}
	return out[:got]
}
