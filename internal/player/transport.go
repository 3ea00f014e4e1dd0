// Package player drives playback of a decoded track: the engines that
// produce sound and the Transport state machine that tracks time, wraps
// loops and reports progress.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/dewi-tim/looptui/internal/audio"
	"github.com/dewi-tim/looptui/internal/loop"
	"github.com/dewi-tim/looptui/internal/section"
	"github.com/dewi-tim/looptui/internal/tempo"
	"github.com/dewi-tim/looptui/internal/timemath"
)

// DefaultTickInterval is the polling period, about one display frame.
const DefaultTickInterval = 16 * time.Millisecond

var (
	ErrNoTrack    = errors.New("no track loaded")
	ErrDisposed   = errors.New("transport disposed")
	ErrSuperseded = errors.New("load superseded by a newer load")
	ErrNoEngine   = errors.New("no engine could load the track")
)

// Player is the transport surface the session and UI drive.
type Player interface {
	// Load decodes path and makes it the current track.
	Load(ctx context.Context, path string) error

	// Play starts or resumes playback.
	Play() error
	// Pause pauses playback.
	Pause()
	// Toggle toggles between play and pause.
	Toggle() error

	// Seek moves to seconds, clamped and kept inside the active loop.
	Seek(seconds float64) error
	// SeekRelative seeks relative to the current position.
	SeekRelative(delta float64) error
	// SeekProgress seeks to a percentage of the duration.
	SeekProgress(percent float64) error

	// SetPlaybackRate sets the speed multiplier.
	SetPlaybackRate(rate float64)
	// SetVolume sets the volume (0.0 - 1.0).
	SetVolume(v float64)
	// SetRepeat sets what happens at the end of the track.
	SetRepeat(m RepeatMode)

	// SetLoop replaces the loop region.
	SetLoop(r loop.Region) error
	// SetSection makes s the active loop, taking priority over the region.
	SetSection(s section.Section) error
	// ClearSection releases the section loop.
	ClearSection()

	// OnTimeUpdate replaces the time handler.
	OnTimeUpdate(fn func(seconds float64))
	// OnEnded replaces the end-of-track handler.
	OnEnded(fn func())
	// OnLoaded replaces the load handler.
	OnLoaded(fn func(duration float64))

	// State returns a snapshot.
	State() PlaybackState

	// Subscribe returns a channel that receives a snapshot on every tick.
	Subscribe() <-chan PlaybackState
	// Unsubscribe removes a subscription channel.
	Unsubscribe(ch <-chan PlaybackState)

	// Dispose stops playback and releases all resources.
	Dispose()
}

// DecodeFunc decodes the file at path.
type DecodeFunc func(ctx context.Context, path string) (*audio.Track, error)

// Transport tracks playback time against a wall clock while one engine
// produces the audio.
//
// Handlers run on the polling goroutine or the loading goroutine, one at a
// time, never while the state lock is held. They may call any method except
// Load and Dispose.
type Transport struct {
	clock   clockwork.Clock
	engines []Engine
	decode  DecodeFunc
	tick    time.Duration
	log     logrus.FieldLogger

	// Protects everything below.
	mu sync.Mutex

	state    State
	engine   Engine
	track    *audio.Track
	path     string
	duration float64

	// Elapsed time is offset + (now - anchor) * rate while playing.
	offset float64
	anchor time.Time
	rate   float64
	volume float64
	repeat RepeatMode

	region     loop.Region
	section    section.Section
	hasSection bool

	loadGen    uint64
	loadCancel context.CancelFunc

	run    uint64
	stopCh chan struct{}

	onTime   func(float64)
	onEnded  func()
	onLoaded func(float64)

	// Serializes handler calls. Always taken before mu.
	notifyMu sync.Mutex

	subscribers map[chan PlaybackState]struct{}
	subMu       sync.RWMutex

	// Tracks tickLoop goroutines.
	tickWg sync.WaitGroup
}

// Option configures a Transport.
type Option func(*Transport)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(t *Transport) {
		t.clock = c
	}
}

// WithEngines sets the engines in order of preference. Load falls back to
// the next engine when one refuses a track.
func WithEngines(engines ...Engine) Option {
	return func(t *Transport) {
		t.engines = engines
	}
}

// WithDecoder replaces audio.DecodeFile.
func WithDecoder(f DecodeFunc) Option {
	return func(t *Transport) {
		t.decode = f
	}
}

// WithTickInterval sets how often time updates fire while playing.
// Non-positive values keep DefaultTickInterval.
func WithTickInterval(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.tick = d
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Transport) {
		t.log = l
	}
}

// WithRepeat sets the initial repeat mode.
func WithRepeat(m RepeatMode) Option {
	return func(t *Transport) {
		t.repeat = m
	}
}

// NewTransport creates a transport in StateEmpty.
func NewTransport(opts ...Option) *Transport {
	t := &Transport{
		clock:       clockwork.NewRealClock(),
		decode:      audio.DecodeFile,
		tick:        DefaultTickInterval,
		rate:        tempo.DefaultRate,
		volume:      1,
		subscribers: make(map[chan PlaybackState]struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		t.log = l
	}

	return t
}

// Load stops playback and decodes path. A Load started later wins: this
// one then returns ErrSuperseded and changes nothing. On failure the
// transport returns to StateEmpty.
func (t *Transport) Load(ctx context.Context, path string) error {
	t.mu.Lock()
	if t.state == StateDisposed {
		t.mu.Unlock()
		return ErrDisposed
	}

	if t.loadCancel != nil {
		t.loadCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.loadGen++
	gen := t.loadGen
	t.loadCancel = cancel

	t.stopLocked()
	if t.engine != nil {
		t.engine.Pause()
	}
	t.state = StateLoading
	t.mu.Unlock()

	log := t.log.WithField("path", path)
	track, err := t.decode(ctx, path)

	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if gen != t.loadGen {
		disposed := t.state == StateDisposed
		t.mu.Unlock()
		if disposed {
			return ErrDisposed
		}
		log.Debug("load superseded")
		return ErrSuperseded
	}
	t.loadCancel = nil

	if err == nil {
		err = t.attachLocked(track)
	}
	if err != nil {
		t.resetLocked()
		t.mu.Unlock()
		log.WithError(err).Warn("load failed")
		return fmt.Errorf("load %s: %w", path, err)
	}

	t.path = path
	duration := t.duration
	onLoaded := t.onLoaded
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if onLoaded != nil {
		onLoaded(duration)
	}
	t.publish(snap)
	return nil
}

// attachLocked hands track to the first engine that accepts it.
func (t *Transport) attachLocked(track *audio.Track) error {
	if len(t.engines) == 0 {
		return ErrNoEngine
	}

	var errs []error
	for _, e := range t.engines {
		if err := e.Load(track); err != nil {
			t.log.WithError(err).WithField("engine", e.Name()).Info("engine refused track, falling back")
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}

		if t.engine != nil && t.engine != e {
			t.engine.Pause()
		}
		e.SetPlaybackRate(t.rate)
		e.SetVolume(t.volume)

		t.engine = e
		t.track = track
		t.duration = track.Duration()
		t.offset = 0
		t.anchor = t.clock.Now()
		t.state = StateReady
		t.hasSection = false
		t.section = section.Section{}
		if t.region.Active && t.region.Validate(t.duration) != nil {
			t.region = loop.Region{}
		}
		return nil
	}

	return fmt.Errorf("%w: %w", ErrNoEngine, errors.Join(errs...))
}

func (t *Transport) resetLocked() {
	t.state = StateEmpty
	t.track = nil
	t.path = ""
	t.duration = 0
	t.offset = 0
	t.hasSection = false
	t.section = section.Section{}
}

// Play starts playback. It does nothing when already playing. With an
// active loop or section it first moves to its start, also when resuming
// from inside it. Playback after the end restarts from the beginning.
func (t *Transport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.playLocked()
}

func (t *Transport) playLocked() error {
	switch t.state {
	case StateDisposed:
		return ErrDisposed
	case StatePlaying:
		return nil
	case StateEmpty, StateLoading:
		return ErrNoTrack
	case StateEnded:
		t.offset = 0
	}

	if r, ok := t.activeRegionLocked(); ok {
		t.offset = r.Start
	}
	if err := t.engine.Seek(t.offset); err != nil {
		t.log.WithError(err).Warn("seek before play failed")
	}

	if err := t.engine.Play(); err != nil {
		// Stay in the previous state so Play can simply be retried.
		t.engine.Pause()
		t.log.WithError(err).WithField("engine", t.engine.Name()).Warn("playback start rejected")
		return fmt.Errorf("start playback: %w", err)
	}

	t.state = StatePlaying
	t.anchor = t.clock.Now()
	t.startLocked()
	return nil
}

// Pause freezes the current time and stops the polling loop.
func (t *Transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pauseLocked()
}

func (t *Transport) pauseLocked() {
	if t.state != StatePlaying {
		return
	}
	t.offset = t.currentLocked(t.clock.Now())
	t.stopLocked()
	t.engine.Pause()
	t.state = StatePaused
}

// Toggle toggles between play and pause.
func (t *Transport) Toggle() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StatePlaying {
		t.pauseLocked()
		return nil
	}
	return t.playLocked()
}

// Seek moves to seconds, clamped into [0, duration]. With an active loop,
// a target outside it goes to the loop start instead. The new position is
// reported to the time handler and subscribers.
func (t *Transport) Seek(seconds float64) error {
	return t.seek(func() float64 { return seconds })
}

// seek resolves the target under the state lock and reports the result
// outside it, serialized with ticks.
func (t *Transport) seek(target func() float64) error {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if err := t.seekLocked(target()); err != nil {
		t.mu.Unlock()
		return err
	}
	onTime := t.onTime
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if onTime != nil {
		onTime(snap.CurrentTime)
	}
	t.publish(snap)
	return nil
}

func (t *Transport) seekLocked(seconds float64) error {
	switch t.state {
	case StateDisposed:
		return ErrDisposed
	case StateEmpty, StateLoading:
		return ErrNoTrack
	}

	target := timemath.Clamp(seconds, 0, t.duration)
	if r, ok := t.activeRegionLocked(); ok && !r.Contains(target) {
		target = r.Start
	}

	if err := t.engine.Seek(target); err != nil {
		return fmt.Errorf("seek to %.3f: %w", target, err)
	}
	t.offset = target
	t.anchor = t.clock.Now()
	if t.state == StateEnded {
		t.state = StatePaused
	}
	return nil
}

// SeekRelative seeks relative to the current position.
func (t *Transport) SeekRelative(delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return nil
	}
	return t.seek(func() float64 { return t.currentLocked(t.clock.Now()) + delta })
}

// SeekProgress seeks to percent (0-100) of the duration.
func (t *Transport) SeekProgress(percent float64) error {
	return t.seek(func() float64 { return timemath.TimeFromProgress(percent, t.duration) })
}

// SetPlaybackRate sets the speed multiplier, clamped to the tempo range.
// The elapsed time is re-anchored first so the reported time continues
// smoothly.
func (t *Transport) SetPlaybackRate(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StatePlaying {
		now := t.clock.Now()
		t.offset = t.currentLocked(now)
		t.anchor = now
	}
	t.rate = tempo.Clamp(rate)
	if t.engine != nil {
		t.engine.SetPlaybackRate(t.rate)
	}
}

// SetVolume sets the volume, clamped into [0, 1].
func (t *Transport) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.volume = timemath.Clamp(v, 0, 1)
	if t.engine != nil {
		t.engine.SetVolume(t.volume)
	}
}

// SetRepeat sets what happens at the end of the track.
func (t *Transport) SetRepeat(m RepeatMode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.repeat = m
}

// SetLoop replaces the loop region. An active region must be valid for the
// loaded track; on error the previous region stays.
func (t *Transport) SetLoop(r loop.Region) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r.Active {
		if t.duration <= 0 {
			return ErrNoTrack
		}
		if err := r.Validate(t.duration); err != nil {
			return err
		}
	}
	t.region = r
	return nil
}

// SetSection makes s the active loop. It takes priority over the loop
// region while set.
func (t *Transport) SetSection(s section.Section) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.duration <= 0 {
		return ErrNoTrack
	}
	if err := loop.ValidateBounds(s.Start, s.End, t.duration); err != nil {
		return err
	}
	t.section = s
	t.hasSection = true
	return nil
}

// ClearSection releases the section loop; the loop region, if active,
// applies again.
func (t *Transport) ClearSection() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.section = section.Section{}
	t.hasSection = false
}

// OnTimeUpdate replaces the time handler. nil removes it.
func (t *Transport) OnTimeUpdate(fn func(seconds float64)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onTime = fn
}

// OnEnded replaces the end-of-track handler. It does not fire with
// RepeatOne.
func (t *Transport) OnEnded(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onEnded = fn
}

// OnLoaded replaces the handler called with the duration after each
// successful load.
func (t *Transport) OnLoaded(fn func(duration float64)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onLoaded = fn
}

// State returns a snapshot of the transport.
func (t *Transport) State() PlaybackState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.snapshotLocked()
}

func (t *Transport) snapshotLocked() PlaybackState {
	s := PlaybackState{
		State:        t.state,
		Path:         t.path,
		CurrentTime:  t.currentLocked(t.clock.Now()),
		Duration:     t.duration,
		PlaybackRate: t.rate,
		Volume:       t.volume,
		Repeat:       t.repeat,
		Loop:         t.region,
		Section:      t.section,
		HasSection:   t.hasSection,
	}
	if t.engine != nil {
		s.Engine = t.engine.Name()
	}
	return s
}

func (t *Transport) activeRegionLocked() (loop.Region, bool) {
	return activeRegion(t.region, t.section, t.hasSection)
}

// currentLocked computes the elapsed track time at now.
func (t *Transport) currentLocked(now time.Time) float64 {
	if t.state != StatePlaying {
		return t.offset
	}
	return t.offset + now.Sub(t.anchor).Seconds()*t.rate
}

// startLocked starts a polling loop for a new run.
func (t *Transport) startLocked() {
	t.run++
	t.stopCh = make(chan struct{})
	ticker := t.clock.NewTicker(t.tick)

	t.tickWg.Add(1)
	go t.tickLoop(t.run, ticker, t.stopCh)
}

// stopLocked ends the current run. A tick already waiting for the lock
// sees the new run number and emits nothing.
func (t *Transport) stopLocked() {
	if t.stopCh == nil {
		return
	}
	t.run++
	close(t.stopCh)
	t.stopCh = nil
}

// tickLoop reports time and enforces loops while playing.
func (t *Transport) tickLoop(run uint64, ticker clockwork.Ticker, stop <-chan struct{}) {
	defer t.tickWg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if !t.step(run) {
				return
			}
		}
	}
}

// step runs one tick and reports whether the run continues.
func (t *Transport) step(run uint64) bool {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if run != t.run || t.state != StatePlaying {
		t.mu.Unlock()
		return false
	}

	now := t.clock.Now()
	current := t.currentLocked(now)
	ended := false

	if r, ok := t.activeRegionLocked(); ok && loop.ShouldLoop(current, r.End) {
		current = t.wrapLocked(r.Start, now)
	} else if current >= t.duration {
		if t.repeat == RepeatOne {
			current = t.wrapLocked(0, now)
		} else {
			current = t.duration
			t.offset = t.duration
			t.stopLocked()
			t.engine.Pause()
			t.state = StateEnded
			ended = true
		}
	}

	onTime, onEnded := t.onTime, t.onEnded
	snap := t.snapshotLocked()
	snap.CurrentTime = current
	t.mu.Unlock()

	if onTime != nil {
		onTime(current)
	}
	if ended && onEnded != nil {
		onEnded()
	}
	t.publish(snap)

	return !ended
}

// wrapLocked restarts the elapsed-time computation at start.
func (t *Transport) wrapLocked(start float64, now time.Time) float64 {
	if err := t.engine.Seek(start); err != nil {
		t.log.WithError(err).Warn("loop seek failed")
	}
	t.offset = start
	t.anchor = now
	return start
}

// Subscribe returns a channel that receives playback snapshots.
func (t *Transport) Subscribe() <-chan PlaybackState {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	ch := make(chan PlaybackState, 1)
	if t.subscribers == nil {
		close(ch)
		return ch
	}
	t.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription channel.
func (t *Transport) Unsubscribe(ch <-chan PlaybackState) {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	for subCh := range t.subscribers {
		if subCh == ch {
			delete(t.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// publish sends s to all subscribers, dropping it for slow ones.
func (t *Transport) publish(s PlaybackState) {
	t.subMu.RLock()
	defer t.subMu.RUnlock()

	for ch := range t.subscribers {
		select {
		case ch <- s:
		default:
		}
	}
}

// Dispose stops playback, closes the engines and subscriptions, and waits
// until no handler is running. No handler is called after it returns.
func (t *Transport) Dispose() {
	t.mu.Lock()
	if t.state == StateDisposed {
		t.mu.Unlock()
		return
	}

	t.state = StateDisposed
	t.loadGen++
	if t.loadCancel != nil {
		t.loadCancel()
		t.loadCancel = nil
	}
	t.stopLocked()
	t.onTime, t.onEnded, t.onLoaded = nil, nil, nil

	for _, e := range t.engines {
		if err := e.Close(); err != nil {
			t.log.WithError(err).WithField("engine", e.Name()).Warn("engine close failed")
		}
	}
	t.engine = nil
	t.track = nil
	t.mu.Unlock()

	// Wait for tickLoop goroutines, then for any handler still running.
	t.tickWg.Wait()
	t.notifyMu.Lock()
	t.notifyMu.Unlock()

	t.subMu.Lock()
	for ch := range t.subscribers {
		close(ch)
	}
	t.subscribers = nil
	t.subMu.Unlock()
}

// Ensure Transport implements Player
var _ Player = (*Transport)(nil)
