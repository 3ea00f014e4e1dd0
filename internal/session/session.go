// Package session binds the per-track practice state (loop, sections,
// tempo, BPM and metadata) to one playback transport.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dewi-tim/looptui/internal/bpm"
	"github.com/dewi-tim/looptui/internal/library"
	"github.com/dewi-tim/looptui/internal/loop"
	"github.com/dewi-tim/looptui/internal/player"
	"github.com/dewi-tim/looptui/internal/section"
	"github.com/dewi-tim/looptui/internal/tempo"
	"github.com/dewi-tim/looptui/internal/timemath"
)

// DefaultLoopWidth is the width of the loop placed around the playhead when
// a loop is enabled without valid bounds.
const DefaultLoopWidth = 10.0

var (
	ErrNoSection = errors.New("no such section")
	ErrNoEntry   = errors.New("no such playlist entry")
)

// MetadataFunc reads display metadata for a file.
type MetadataFunc func(ctx context.Context, path string) library.Metadata

// Session is the state of one deck. Independent sessions can run side by
// side, each with its own transport.
type Session struct {
	tr       player.Player
	bpm      *bpm.Tracker
	metadata MetadataFunc
	log      logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	gen      uint64
	path     string
	meta     library.Metadata
	tempo    tempo.State
	region   loop.Region
	sections []section.Section
	selected int
	onChange func()

	playlist []Entry
	current  int

	// onEnded is called from the transport's tick, which must not wait on mu.
	onEnded atomic.Pointer[func()]
}

// Option configures a Session.
type Option func(*Session)

// WithDetector sets the BPM detector.
func WithDetector(d *bpm.Detector) Option {
	return func(s *Session) {
		s.bpm = bpm.NewTracker(d)
	}
}

// WithMetadata replaces the tag reader.
func WithMetadata(f MetadataFunc) Option {
	return func(s *Session) {
		s.metadata = f
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// New creates a session driving tr.
func New(tr player.Player, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		tr:       tr,
		ctx:      ctx,
		cancel:   cancel,
		tempo:    tempo.Default(),
		selected: -1,
		current:  -1,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	if s.bpm == nil {
		s.bpm = bpm.NewTracker(bpm.New(bpm.WithLogger(s.log)))
	}
	if s.metadata == nil {
		s.metadata = readMetadata
	}

	tr.OnLoaded(func(duration float64) {
		s.log.WithField("duration", duration).Debug("track loaded")
	})
	tr.OnEnded(func() {
		if fn := s.onEnded.Load(); fn != nil {
			(*fn)()
		}
	})

	return s
}

func readMetadata(ctx context.Context, path string) library.Metadata {
	return <-library.ReadMetadataAsync(ctx, path)
}

// OnChange sets a handler called after results that arrive in the
// background (BPM, metadata) have been applied.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// OnEnded sets a handler called when playback reaches the end of the track.
// It runs on the transport's polling goroutine and must not block.
func (s *Session) OnEnded(fn func()) {
	if fn == nil {
		s.onEnded.Store(nil)
		return
	}
	s.onEnded.Store(&fn)
}

func (s *Session) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Load makes path the current track. Tempo goes back to 100%, sections are
// cleared and the loop is kept only if it still fits. BPM detection and
// metadata reading start in the background for the new track.
func (s *Session) Load(ctx context.Context, path string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.bpm.Invalidate()

	if err := s.tr.Load(ctx, path); err != nil {
		return err
	}

	duration := s.tr.State().Duration

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return player.ErrSuperseded
	}
	s.path = path
	s.meta = library.Metadata{Title: baseTitle(path)}
	s.current = s.enqueueLocked(path)
	s.tempo = tempo.Default()
	s.sections = nil
	s.selected = -1
	if s.region.Validate(duration) != nil {
		s.region = loop.Region{}
	}
	region := s.region
	s.mu.Unlock()

	s.tr.SetPlaybackRate(tempo.DefaultRate)
	s.tr.ClearSection()
	if err := s.tr.SetLoop(region); err != nil {
		s.log.WithError(err).Warn("restoring loop failed")
	}

	s.bpm.Start(s.ctx, path, func(int, bool) { s.changed() })

	go func() {
		md := s.metadata(s.ctx, path)
		if s.ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.meta = md
		if md.Title != "" && s.current >= 0 {
			s.playlist[s.current].Title = md.Title
		}
		s.mu.Unlock()
		s.changed()
	}()

	return nil
}

// Path returns the current track path.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Metadata returns the metadata of the current track.
func (s *Session) Metadata() library.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}


// Transport passthroughs.

func (s *Session) Play() error                        { return s.tr.Play() }
func (s *Session) Pause()                             { s.tr.Pause() }
func (s *Session) Toggle() error                      { return s.tr.Toggle() }
func (s *Session) Seek(seconds float64) error         { return s.tr.Seek(seconds) }
func (s *Session) SeekRelative(delta float64) error   { return s.tr.SeekRelative(delta) }
func (s *Session) SeekProgress(percent float64) error { return s.tr.SeekProgress(percent) }
func (s *Session) SetVolume(v float64)                { s.tr.SetVolume(v) }
func (s *Session) SetRepeat(m player.RepeatMode)      { s.tr.SetRepeat(m) }
func (s *Session) State() player.PlaybackState        { return s.tr.State() }
func (s *Session) Subscribe() <-chan player.PlaybackState {
	return s.tr.Subscribe()
}

// Loop

// Loop returns the loop region.
func (s *Session) Loop() loop.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region
}

// UseHours reports whether loop bounds are entered as HH:MM:SS.
func (s *Session) UseHours() bool {
	return timemath.UseHours(s.tr.State().Duration)
}

// LoopText returns the loop bounds formatted for editing.
func (s *Session) LoopText() (start, end string) {
	st := s.tr.State()
	r := s.Loop()
	return timemath.FormatFor(r.Start, st.Duration, false), timemath.FormatFor(r.End, st.Duration, false)
}

// SetLoopText parses user-entered bounds and applies them. Text with minute
// or second fields of 60 or more is rejected, never clamped.
func (s *Session) SetLoopText(startText, endText string) error {
	hours := s.UseHours()
	start, err := timemath.ParseText(startText, hours)
	if err != nil {
		return fmt.Errorf("loop start: %w", err)
	}
	end, err := timemath.ParseText(endText, hours)
	if err != nil {
		return fmt.Errorf("loop end: %w", err)
	}
	return s.SetLoopBounds(start, end)
}

// SetLoopBounds sets the loop bounds, keeping its enabled flag.
func (s *Session) SetLoopBounds(start, end float64) error {
	duration := s.tr.State().Duration
	if err := loop.ValidateBounds(start, end, duration); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := loop.Region{Start: loop.StartTime(start), End: end, Active: s.region.Active}
	return s.applyLoopLocked(r)
}

// EnableLoop turns the loop on or off. Enabling a loop whose bounds do not
// fit the track places a default window around the playhead.
func (s *Session) EnableLoop(on bool) error {
	st := s.tr.State()

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.region
	r.Active = on
	if on && r.Validate(st.Duration) != nil {
		r = loop.Window(st.CurrentTime, DefaultLoopWidth, st.Duration)
	}
	return s.applyLoopLocked(r)
}

// ToggleLoop flips the loop on or off.
func (s *Session) ToggleLoop() error {
	return s.EnableLoop(!s.Loop().Active)
}

// QuickLoop enables a loop of width seconds centered on the playhead.
func (s *Session) QuickLoop(width float64) error {
	st := s.tr.State()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyLoopLocked(loop.Window(st.CurrentTime, width, st.Duration))
}

// DragMarker moves one loop marker to t. The move is clamped, never
// rejected, but the transport only follows while the region is valid.
func (s *Session) DragMarker(m loop.Marker, t float64) error {
	duration := s.tr.State().Duration

	s.mu.Lock()
	defer s.mu.Unlock()

	r := loop.Drag(s.region, m, t, duration)
	s.region = r
	if !r.Active {
		return nil
	}
	return s.tr.SetLoop(r)
}

// SetLoopMarkerHere moves a marker to the playhead.
func (s *Session) SetLoopMarkerHere(m loop.Marker) error {
	return s.DragMarker(m, s.tr.State().CurrentTime)
}

func (s *Session) applyLoopLocked(r loop.Region) error {
	if err := s.tr.SetLoop(r); err != nil {
		return err
	}
	s.region = r
	return nil
}

// Sections

// GenerateSections replaces the sections. value is a count for
// section.ByCount and a length in seconds for section.ByLength.
func (s *Session) GenerateSections(mode section.Mode, value float64) []section.Section {
	duration := s.tr.State().Duration
	secs := section.Generate(mode, duration, value)

	s.mu.Lock()
	s.sections = secs
	s.selected = -1
	s.mu.Unlock()

	s.tr.ClearSection()
	return s.Sections()
}

// Sections returns a copy of the sections.
func (s *Session) Sections() []section.Section {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]section.Section, len(s.sections))
	copy(out, s.sections)
	return out
}

// Selected returns the index of the looping section, or -1.
func (s *Session) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SelectSection loops section i and moves the playhead to its start.
func (s *Session) SelectSection(i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.sections) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSection, i)
	}
	sec := s.sections[i]
	s.mu.Unlock()

	if err := s.tr.SetSection(sec); err != nil {
		return err
	}
	if err := s.tr.Seek(sec.Start); err != nil {
		return err
	}

	s.mu.Lock()
	s.selected = i
	s.mu.Unlock()
	return nil
}

// ClearSection stops looping the selected section.
func (s *Session) ClearSection() {
	s.mu.Lock()
	s.selected = -1
	s.mu.Unlock()

	s.tr.ClearSection()
}

// RemoveSection deletes section i. The others keep their bounds, so a gap
// is left behind.
func (s *Session) RemoveSection(i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.sections) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoSection, i)
	}
	s.sections = section.Remove(s.sections, i)
	wasSelected := false
	switch {
	case s.selected == i:
		s.selected = -1
		wasSelected = true
	case s.selected > i:
		s.selected--
	}
	s.mu.Unlock()

	if wasSelected {
		s.tr.ClearSection()
	}
	return nil
}

// Tempo

// Tempo returns the tempo state.
func (s *Session) Tempo() tempo.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tempo
}

// SetTempoPercent sets the tempo from a percentage.
func (s *Session) SetTempoPercent(percent float64) tempo.State {
	return s.setTempo(func(t tempo.State) tempo.State { return t.WithPercent(percent) })
}

// StepTempo nudges the tempo by delta percentage points.
func (s *Session) StepTempo(delta int) tempo.State {
	return s.setTempo(func(t tempo.State) tempo.State { return t.Step(delta) })
}

// ResetTempo returns to 100%.
func (s *Session) ResetTempo() tempo.State {
	return s.setTempo(func(tempo.State) tempo.State { return tempo.Default() })
}

func (s *Session) setTempo(f func(tempo.State) tempo.State) tempo.State {
	s.mu.Lock()
	s.tempo = f(s.tempo)
	t := s.tempo
	s.mu.Unlock()

	s.tr.SetPlaybackRate(t.Rate)
	return t
}

// BPM returns the detected BPM and the BPM at the current tempo. Both are
// 0 while unknown.
func (s *Session) BPM() (original, adjusted int) {
	v, ok := s.bpm.BPM()
	if !ok {
		return 0, 0
	}
	return v, tempo.AdjustBPM(float64(v), s.Tempo().Rate)
}

// DetectingBPM reports whether detection is running for the current track.
func (s *Session) DetectingBPM() bool {
	return s.bpm.Detecting()
}

// Close stops background work and disposes the transport.
func (s *Session) Close() {
	s.cancel()
	s.bpm.Close()
	s.tr.Dispose()
}
