package player

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/dewi-tim/looptui/internal/audio"
	"github.com/dewi-tim/looptui/internal/loop"
	"github.com/dewi-tim/looptui/internal/section"
)

const tick = 16 * time.Millisecond

// fakeEngine records what the transport asks of it.
type fakeEngine struct {
	name    string
	loadErr error
	playErr error

	mu      sync.Mutex
	track   *audio.Track
	seeks   []float64
	rate    float64
	volume  float64
	playing bool
	closed  bool
}

func newFakeEngine(name string) *fakeEngine {
	return &fakeEngine{name: name, rate: 1, volume: 1}
}

func (e *fakeEngine) Name() string { return e.name }

func (e *fakeEngine) Load(track *audio.Track) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadErr != nil {
		return e.loadErr
	}
	e.track = track
	return nil
}

func (e *fakeEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playErr != nil {
		return e.playErr
	}
	e.playing = true
	return nil
}

func (e *fakeEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playing = false
}

func (e *fakeEngine) Seek(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seeks = append(e.seeks, seconds)
	return nil
}

func (e *fakeEngine) SetPlaybackRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
}

func (e *fakeEngine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = v
}

func (e *fakeEngine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.track == nil {
		return 0
	}
	return e.track.Duration()
}

func (e *fakeEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.playing = false
	return nil
}

func (e *fakeEngine) lastSeek() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.seeks) == 0 {
		return math.NaN()
	}
	return e.seeks[len(e.seeks)-1]
}

// silence returns a track of the given length at 100 Hz.
func silence(path string, seconds float64) *audio.Track {
	return audio.FromSamples(path, 100, make([][2]float64, int(seconds*100)))
}

func decodeSeconds(seconds float64) DecodeFunc {
	return func(_ context.Context, path string) (*audio.Track, error) {
		return silence(path, seconds), nil
	}
}

type harness struct {
	t      *testing.T
	clock  *clockwork.FakeClock
	engine *fakeEngine
	tr     *Transport
	times  chan float64
	ended  chan struct{}
}

func newHarness(t *testing.T, seconds float64, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		t:      t,
		clock:  clockwork.NewFakeClock(),
		engine: newFakeEngine("fake"),
		times:  make(chan float64, 64),
		ended:  make(chan struct{}, 4),
	}

	opts = append([]Option{
		WithClock(h.clock),
		WithEngines(h.engine),
		WithDecoder(decodeSeconds(seconds)),
		WithTickInterval(tick),
	}, opts...)
	h.tr = NewTransport(opts...)
	t.Cleanup(h.tr.Dispose)

	h.tr.OnTimeUpdate(func(s float64) { h.times <- s })
	h.tr.OnEnded(func() { h.ended <- struct{}{} })

	if err := h.tr.Load(context.Background(), "track.mp3"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return h
}

// advance moves the clock one tick and returns the reported time. Updates
// already reported by seeks are discarded first.
func (h *harness) advance() float64 {
	h.t.Helper()
	for len(h.times) > 0 {
		<-h.times
	}
	h.clock.Advance(tick)
	select {
	case s := <-h.times:
		return s
	case <-time.After(2 * time.Second):
		h.t.Fatal("no time update after tick")
		return 0
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLoopWrapsToRegionStart(t *testing.T) {
	h := newHarness(t, 120)

	if err := h.tr.SetLoop(loop.Region{Start: 10, End: 20, Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.Seek(19.995); err != nil {
		t.Fatal(err)
	}

	if got := h.advance(); got != 10 {
		t.Fatalf("time after wrap = %v, want 10", got)
	}
	if got := h.engine.lastSeek(); got != 10 {
		t.Errorf("engine seek = %v, want 10", got)
	}
	if got := h.advance(); !near(got, 10.016) {
		t.Errorf("time after wrap + tick = %v, want 10.016", got)
	}
}

func TestRateChangeContinuesFromCurrentTime(t *testing.T) {
	h := newHarness(t, 120)

	if err := h.tr.Seek(50); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	if got := h.advance(); !near(got, 50.016) {
		t.Fatalf("first tick = %v, want 50.016", got)
	}

	h.tr.SetPlaybackRate(2)
	if got := h.advance(); !near(got, 50.048) {
		t.Errorf("tick after rate change = %v, want 50.048", got)
	}

	h.engine.mu.Lock()
	rate := h.engine.rate
	h.engine.mu.Unlock()
	if rate != 2 {
		t.Errorf("engine rate = %v", rate)
	}
}

func TestSetPlaybackRateClamps(t *testing.T) {
	h := newHarness(t, 120)

	h.tr.SetPlaybackRate(10)
	if got := h.tr.State().PlaybackRate; got != 4 {
		t.Errorf("rate = %v, want 4", got)
	}
	h.tr.SetPlaybackRate(math.NaN())
	if got := h.tr.State().PlaybackRate; got != 1 {
		t.Errorf("rate = %v, want 1", got)
	}
}

func TestOnLoadedFiresBeforeTimeUpdate(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	clock := clockwork.NewFakeClock()
	ticked := make(chan struct{}, 1)
	tr := NewTransport(
		WithClock(clock),
		WithEngines(newFakeEngine("fake")),
		WithDecoder(decodeSeconds(60)),
		WithTickInterval(tick),
	)
	defer tr.Dispose()

	tr.OnLoaded(func(d float64) {
		if d != 60 {
			t.Errorf("onLoaded duration = %v", d)
		}
		record("loaded")
	})
	tr.OnTimeUpdate(func(float64) {
		record("time")
		select {
		case ticked <- struct{}{}:
		default:
		}
	})

	if err := tr.Load(context.Background(), "a.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Play(); err != nil {
		t.Fatal(err)
	}
	clock.Advance(tick)
	<-ticked

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 || events[0] != "loaded" || events[1] != "time" {
		t.Errorf("events = %v", events)
	}
}

func TestHandlersReplaceRatherThanStack(t *testing.T) {
	h := newHarness(t, 120)

	second := make(chan float64, 4)
	h.tr.OnTimeUpdate(func(s float64) { second <- s })

	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(tick)
	<-second

	select {
	case <-h.times:
		t.Error("replaced handler still called")
	default:
	}
}

func TestNewerLoadSupersedesInFlightLoad(t *testing.T) {
	entered := make(chan struct{})
	decode := func(ctx context.Context, path string) (*audio.Track, error) {
		if path == "slow.mp3" {
			close(entered)
			<-ctx.Done()
			return silence(path, 30), nil
		}
		return silence(path, 120), nil
	}

	tr := NewTransport(
		WithClock(clockwork.NewFakeClock()),
		WithEngines(newFakeEngine("fake")),
		WithDecoder(decode),
	)
	defer tr.Dispose()

	slowErr := make(chan error, 1)
	go func() { slowErr <- tr.Load(context.Background(), "slow.mp3") }()
	<-entered

	if s := tr.State(); s.State != StateLoading {
		t.Errorf("state during decode = %v", s.State)
	}

	if err := tr.Load(context.Background(), "fast.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := <-slowErr; !errors.Is(err, ErrSuperseded) {
		t.Errorf("slow load err = %v, want ErrSuperseded", err)
	}

	s := tr.State()
	if s.Path != "fast.mp3" || s.Duration != 120 || s.State != StateReady {
		t.Errorf("state = %+v", s)
	}
}

func TestLoadFailureReturnsToEmpty(t *testing.T) {
	tr := NewTransport(
		WithClock(clockwork.NewFakeClock()),
		WithEngines(newFakeEngine("fake")),
		WithDecoder(func(context.Context, string) (*audio.Track, error) {
			return nil, audio.ErrUnsupportedFormat
		}),
	)
	defer tr.Dispose()

	err := tr.Load(context.Background(), "notes.txt")
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
	if s := tr.State(); s.State != StateEmpty || s.Loaded() {
		t.Errorf("state = %v", s.State)
	}
	if err := tr.Play(); !errors.Is(err, ErrNoTrack) {
		t.Errorf("Play err = %v, want ErrNoTrack", err)
	}
	if err := tr.Seek(3); !errors.Is(err, ErrNoTrack) {
		t.Errorf("Seek err = %v, want ErrNoTrack", err)
	}
}

func TestEngineFallback(t *testing.T) {
	logger, hook := logtest.NewNullLogger()

	granular := newFakeEngine("granular")
	granular.loadErr = ErrTrackTooShort
	native := newFakeEngine("native")

	tr := NewTransport(
		WithClock(clockwork.NewFakeClock()),
		WithEngines(granular, native),
		WithDecoder(decodeSeconds(0.1)),
		WithLogger(logger),
	)
	defer tr.Dispose()

	if err := tr.Load(context.Background(), "blip.wav"); err != nil {
		t.Fatal(err)
	}
	if got := tr.State().Engine; got != "native" {
		t.Errorf("engine = %q, want native", got)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel || entry.Data["engine"] != "granular" {
		t.Errorf("fallback log = %+v", entry)
	}
}

func TestNoEngineAcceptsTrack(t *testing.T) {
	e := newFakeEngine("only")
	e.loadErr = ErrTrackTooShort

	tr := NewTransport(
		WithClock(clockwork.NewFakeClock()),
		WithEngines(e),
		WithDecoder(decodeSeconds(1)),
	)
	defer tr.Dispose()

	err := tr.Load(context.Background(), "a.wav")
	if !errors.Is(err, ErrNoEngine) || !errors.Is(err, ErrTrackTooShort) {
		t.Errorf("err = %v", err)
	}
	if tr.State().State != StateEmpty {
		t.Errorf("state = %v", tr.State().State)
	}
}

func TestPlayFailureLeavesTransportResumable(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	h := newHarness(t, 120, WithLogger(logger))

	rejected := errors.New("device busy")
	h.engine.mu.Lock()
	h.engine.playErr = rejected
	h.engine.mu.Unlock()

	if err := h.tr.Play(); !errors.Is(err, rejected) {
		t.Fatalf("Play err = %v", err)
	}
	s := h.tr.State()
	if s.IsPlaying() || s.State != StateReady {
		t.Errorf("state after rejection = %v", s.State)
	}
	if h.engine.IsPlaying() {
		t.Error("engine left playing")
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.WarnLevel {
		t.Errorf("last log entry = %+v", entry)
	}

	h.engine.mu.Lock()
	h.engine.playErr = nil
	h.engine.mu.Unlock()

	if err := h.tr.Play(); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !h.tr.State().IsPlaying() {
		t.Error("not playing after retry")
	}
}

func TestPauseFreezesTime(t *testing.T) {
	h := newHarness(t, 120)

	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	h.advance()
	h.tr.Pause()

	h.clock.Advance(time.Second)
	s := h.tr.State()
	if s.State != StatePaused || !near(s.CurrentTime, 0.016) {
		t.Errorf("state = %v at %v, want Paused at 0.016", s.State, s.CurrentTime)
	}

	select {
	case v := <-h.times:
		t.Errorf("time update %v after pause", v)
	default:
	}

	if err := h.tr.Toggle(); err != nil {
		t.Fatal(err)
	}
	if got := h.advance(); !near(got, 0.032) {
		t.Errorf("tick after resume = %v, want 0.032", got)
	}
}

func TestSeek(t *testing.T) {
	h := newHarness(t, 120)

	tests := []struct {
		name   string
		region loop.Region
		target float64
		want   float64
	}{
		{"inside", loop.Region{}, 42, 42},
		{"past end clamps", loop.Region{}, 500, 120},
		{"negative clamps", loop.Region{}, -3, 0},
		{"inside loop", loop.Region{Start: 10, End: 20, Active: true}, 15, 15},
		{"after loop redirects", loop.Region{Start: 10, End: 20, Active: true}, 50, 10},
		{"before loop redirects", loop.Region{Start: 10, End: 20, Active: true}, -1, 10},
		{"inactive loop ignored", loop.Region{Start: 10, End: 20}, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.tr.SetLoop(tt.region); err != nil {
				t.Fatal(err)
			}
			if err := h.tr.Seek(tt.target); err != nil {
				t.Fatal(err)
			}
			if got := h.tr.State().CurrentTime; got != tt.want {
				t.Errorf("Seek(%v) -> %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestSeekRelativeAndProgress(t *testing.T) {
	h := newHarness(t, 120)

	if err := h.tr.SeekProgress(50); err != nil {
		t.Fatal(err)
	}
	if got := h.tr.State().CurrentTime; got != 60 {
		t.Errorf("SeekProgress(50) -> %v", got)
	}
	if err := h.tr.SeekRelative(-5); err != nil {
		t.Fatal(err)
	}
	if got := h.tr.State().CurrentTime; got != 55 {
		t.Errorf("SeekRelative(-5) -> %v", got)
	}
	if got := h.tr.State().Progress(); !near(got, 55.0/120) {
		t.Errorf("Progress = %v", got)
	}
}

func TestSectionTakesPriorityOverLoop(t *testing.T) {
	h := newHarness(t, 120)

	if err := h.tr.SetLoop(loop.Region{Start: 10, End: 20, Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.SetSection(section.Section{Start: 30, End: 40}); err != nil {
		t.Fatal(err)
	}

	if err := h.tr.Seek(15); err != nil {
		t.Fatal(err)
	}
	if got := h.tr.State().CurrentTime; got != 30 {
		t.Errorf("seek into loop but outside section -> %v, want 30", got)
	}

	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.Seek(39.995); err != nil {
		t.Fatal(err)
	}
	if got := h.advance(); got != 30 {
		t.Errorf("wrap -> %v, want section start 30", got)
	}

	h.tr.ClearSection()
	if r, ok := h.tr.State().ActiveRegion(); !ok || r.Start != 10 {
		t.Errorf("active region after clearing section = %+v, %v", r, ok)
	}
}

func TestPlayMovesIntoActiveLoop(t *testing.T) {
	h := newHarness(t, 120)

	if err := h.tr.Seek(50); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.SetLoop(loop.Region{Start: 10, End: 20, Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	if got := h.advance(); !near(got, 10.016) {
		t.Errorf("first tick = %v, want 10.016", got)
	}
}

func TestPlayInsideLoopStartsFromLoopStart(t *testing.T) {
	h := newHarness(t, 120)

	if err := h.tr.SetLoop(loop.Region{Start: 10, End: 20, Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.Seek(15); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	if got := h.tr.State().CurrentTime; got != 10 {
		t.Fatalf("play from 15 -> %v, want 10", got)
	}

	// Resuming from a pause inside the loop also starts over.
	if err := h.tr.Seek(17); err != nil {
		t.Fatal(err)
	}
	h.tr.Pause()
	if got := h.tr.State().CurrentTime; got != 17 {
		t.Fatalf("paused at %v, want 17", got)
	}
	if err := h.tr.Toggle(); err != nil {
		t.Fatal(err)
	}
	if got := h.engine.lastSeek(); got != 10 {
		t.Errorf("engine seek on resume = %v, want 10", got)
	}
	if got := h.advance(); !near(got, 10.016) {
		t.Errorf("first tick after resume = %v, want 10.016", got)
	}
}

func TestSeekReportsPosition(t *testing.T) {
	h := newHarness(t, 120)
	ch := h.tr.Subscribe()

	if err := h.tr.Seek(42); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-h.times:
		if got != 42 {
			t.Errorf("time handler got %v, want 42", got)
		}
	default:
		t.Fatal("seek did not report the new time")
	}
	select {
	case s := <-ch:
		if s.CurrentTime != 42 || s.State != StateReady {
			t.Errorf("snapshot = %+v", s)
		}
	default:
		t.Fatal("seek did not publish a snapshot")
	}

	if err := h.tr.SeekRelative(-2); err != nil {
		t.Fatal(err)
	}
	if got := <-h.times; got != 40 {
		t.Errorf("relative seek reported %v, want 40", got)
	}

	h.tr.Dispose()
	if err := h.tr.Seek(10); !errors.Is(err, ErrDisposed) {
		t.Errorf("Seek after Dispose err = %v", err)
	}
	select {
	case v := <-h.times:
		t.Errorf("failed seek reported %v", v)
	default:
	}
}

func TestSetLoopRejectsInvalidRegion(t *testing.T) {
	h := newHarness(t, 120)

	good := loop.Region{Start: 10, End: 20, Active: true}
	if err := h.tr.SetLoop(good); err != nil {
		t.Fatal(err)
	}

	err := h.tr.SetLoop(loop.Region{Start: 30, End: 20, Active: true})
	if !errors.Is(err, loop.ErrStartNotBeforeEnd) {
		t.Errorf("err = %v", err)
	}
	if got := h.tr.State().Loop; got != good {
		t.Errorf("loop changed to %+v", got)
	}

	if err := h.tr.SetSection(section.Section{Start: 100, End: 130}); !errors.Is(err, loop.ErrEndPastDuration) {
		t.Errorf("SetSection err = %v", err)
	}
}

func TestEndOfTrack(t *testing.T) {
	h := newHarness(t, 1)

	if err := h.tr.Seek(0.99); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	if got := h.advance(); got != 1 {
		t.Errorf("final time = %v, want 1", got)
	}

	select {
	case <-h.ended:
	case <-time.After(2 * time.Second):
		t.Fatal("onEnded not called")
	}
	if s := h.tr.State(); s.State != StateEnded || h.engine.IsPlaying() {
		t.Errorf("state = %v, engine playing = %v", s.State, h.engine.IsPlaying())
	}

	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	if got := h.advance(); !near(got, 0.016) {
		t.Errorf("replay tick = %v, want 0.016", got)
	}
}

func TestRepeatOneRestarts(t *testing.T) {
	h := newHarness(t, 1, WithRepeat(RepeatOne))

	if err := h.tr.Seek(0.99); err != nil {
		t.Fatal(err)
	}
	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	if got := h.advance(); got != 0 {
		t.Errorf("time after end = %v, want 0", got)
	}
	if s := h.tr.State(); s.State != StatePlaying {
		t.Errorf("state = %v", s.State)
	}
	select {
	case <-h.ended:
		t.Error("onEnded called with repeat one")
	default:
	}
}

func TestSetVolumeClamps(t *testing.T) {
	h := newHarness(t, 120)

	for _, tt := range []struct{ in, want float64 }{{2, 1}, {-1, 0}, {0.4, 0.4}} {
		h.tr.SetVolume(tt.in)
		if got := h.tr.State().Volume; got != tt.want {
			t.Errorf("SetVolume(%v) -> %v", tt.in, got)
		}
		h.engine.mu.Lock()
		v := h.engine.volume
		h.engine.mu.Unlock()
		if v != tt.want {
			t.Errorf("engine volume = %v, want %v", v, tt.want)
		}
	}
}

func TestSubscribeReceivesTicks(t *testing.T) {
	h := newHarness(t, 120)
	ch := h.tr.Subscribe()

	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	h.advance()

	select {
	case s := <-ch:
		if !near(s.CurrentTime, 0.016) || !s.IsPlaying() {
			t.Errorf("snapshot = %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
	}

	h.tr.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel open after Unsubscribe")
	}
}

func TestDisposeSilencesHandlers(t *testing.T) {
	h := newHarness(t, 120)
	ch := h.tr.Subscribe()

	if err := h.tr.Play(); err != nil {
		t.Fatal(err)
	}
	h.advance()
	h.tr.Dispose()

	h.clock.Advance(time.Second)
	h.clock.Advance(time.Second)

	select {
	case v := <-h.times:
		t.Errorf("time update %v after Dispose", v)
	default:
	}

	if h.tr.State().State != StateDisposed {
		t.Errorf("state = %v", h.tr.State().State)
	}
	if err := h.tr.Play(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Play err = %v", err)
	}
	if err := h.tr.Load(context.Background(), "b.mp3"); !errors.Is(err, ErrDisposed) {
		t.Errorf("Load err = %v", err)
	}

	h.engine.mu.Lock()
	closed := h.engine.closed
	h.engine.mu.Unlock()
	if !closed {
		t.Error("engine not closed")
	}

	for range ch {
	}

	h.tr.Dispose()
}
