package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dewi-tim/looptui/internal/loop"
	"github.com/dewi-tim/looptui/internal/player"
	"github.com/dewi-tim/looptui/internal/section"
	"github.com/dewi-tim/looptui/internal/session"
	"github.com/dewi-tim/looptui/internal/tempo"
	"github.com/dewi-tim/looptui/internal/timemath"
	"github.com/dewi-tim/looptui/internal/ui/components"
)

// Message types for the TUI.
type (
	// TickMsg is sent periodically to refresh the view.
	TickMsg time.Time

	// StateMsg carries a playback snapshot from the transport.
	StateMsg player.PlaybackState

	// LoadedMsg reports the result of loading Path.
	LoadedMsg struct {
		Path string
		Err  error
	}

	// ErrorMsg shows Err in the footer.
	ErrorMsg struct{ Err error }

	// EndedMsg reports that playback reached the end of the track.
	EndedMsg struct{}
)

func waitForState(ch <-chan player.PlaybackState) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return StateMsg(s)
	}
}

func loadCmd(sess *session.Session, path string) tea.Cmd {
	return func() tea.Msg {
		return LoadedMsg{Path: path, Err: sess.Load(context.Background(), path)}
	}
}

// playlistCmd runs a blocking playlist move such as Next.
func playlistCmd(sess *session.Session, move func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		err := move(context.Background())
		return LoadedMsg{Path: sess.Path(), Err: err}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.helpPopup.SetSize(msg.Width, msg.Height)
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.refresh(m.sess.State())
		return m, tickCmd()

	case StateMsg:
		m.refresh(player.PlaybackState(msg))
		return m, waitForState(m.states)

	case LoadedMsg:
		if msg.Err != nil {
			if errors.Is(msg.Err, player.ErrSuperseded) {
				return m, nil
			}
			return m.fail(msg.Err)
		}
		m.refresh(m.sess.State())
		return m, nil

	case ErrorMsg:
		return m.fail(msg.Err)

	case EndedMsg:
		m.notice = "End of track"
		m.noticeTime = time.Now()
		m.refresh(m.sess.State())
		return m, nil

	case components.FileSelectedMsg:
		return m, loadCmd(m.sess, msg.Path)

	case components.SectionSelectedMsg:
		if err := m.sess.SelectSection(msg.Index); err != nil {
			return m.fail(err)
		}
		m.refresh(m.sess.State())
		return m, nil

	case components.SectionRemovedMsg:
		if err := m.sess.RemoveSection(msg.Index); err != nil {
			return m.fail(err)
		}
		m.refresh(m.sess.State())
		return m, nil

	case components.SectionClearedMsg:
		m.sess.ClearSection()
		m.refresh(m.sess.State())
		return m, nil

	case components.PlaylistSelectedMsg:
		i := msg.Index
		return m, playlistCmd(m.sess, func(ctx context.Context) error {
			return m.sess.LoadEntry(ctx, i)
		})

	case components.PlaylistRemovedMsg:
		if err := m.sess.RemoveEntry(msg.Index); err != nil {
			return m.fail(err)
		}
		m.refresh(m.sess.State())
		return m, nil

	case components.PlaylistClearedMsg:
		m.sess.ClearPlaylist()
		m.refresh(m.sess.State())
		return m, nil

	case components.BrowserReadDirMsg:
		var cmd tea.Cmd
		m.browser, cmd = m.browser.Update(msg)
		return m, cmd

	case components.LibScanCompleteMsg:
		if m.library == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.library, cmd = m.library.Update(msg)
		return m, cmd
	}

	return m, nil
}

// refresh copies a snapshot and the session's derived state into the
// components.
func (m *Model) refresh(s player.PlaybackState) {
	m.state = s
	m.volume = s.Volume
	m.progress.SetPosition(s.CurrentTime, s.Duration)
	m.progress.SetLoop(m.sess.Loop())
	m.sections.SetSections(m.sess.Sections(), m.sess.Selected(), s.Duration)
	m.playlist.SetEntries(m.sess.Playlist(), m.sess.Current())
}

func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.lastError = err.Error()
	m.errorTime = time.Now()
	return m, nil
}

// handleKeyMsg processes keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.helpPopup.Visible() {
		var cmd tea.Cmd
		m.helpPopup, cmd = m.helpPopup.Update(msg)
		return m, cmd
	}
	if m.prompt.kind != promptNone {
		return m.handlePromptKey(msg)
	}

	// Global key bindings (work regardless of focus)
	var err error
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Help):
		m.helpPopup.Show()
		return m, nil

	case key.Matches(msg, m.keyMap.TabFocus):
		m.cycleFocus()
		return m, nil

	case key.Matches(msg, m.keyMap.PlayPause):
		err = m.sess.Toggle()
	case key.Matches(msg, m.keyMap.SeekForward):
		err = m.sess.SeekRelative(seekStep)
	case key.Matches(msg, m.keyMap.SeekBackward):
		err = m.sess.SeekRelative(-seekStep)
	case key.Matches(msg, m.keyMap.SeekPercent):
		digit, _ := strconv.Atoi(msg.String())
		err = m.sess.SeekProgress(float64(digit * 10))
	case key.Matches(msg, m.keyMap.VolumeUp):
		m.sess.SetVolume(m.volume + volumeStep)
	case key.Matches(msg, m.keyMap.VolumeDown):
		m.sess.SetVolume(m.volume - volumeStep)
	case key.Matches(msg, m.keyMap.Repeat):
		next := player.RepeatOne
		if m.state.Repeat == player.RepeatOne {
			next = player.RepeatOff
		}
		m.sess.SetRepeat(next)
	case key.Matches(msg, m.keyMap.NextTrack):
		return m, playlistCmd(m.sess, m.sess.Next)
	case key.Matches(msg, m.keyMap.PrevTrack):
		return m, playlistCmd(m.sess, m.sess.Previous)

	case key.Matches(msg, m.keyMap.ToggleLoop):
		err = m.sess.ToggleLoop()
	case key.Matches(msg, m.keyMap.EditLoop):
		m.openLoopPrompt()
		return m, textinput.Blink
	case key.Matches(msg, m.keyMap.QuickLoop):
		err = m.sess.QuickLoop(m.opts.QuickLoop)
	case key.Matches(msg, m.keyMap.LoopStartHere):
		err = m.sess.SetLoopMarkerHere(loop.MarkerStart)
	case key.Matches(msg, m.keyMap.LoopEndHere):
		err = m.sess.SetLoopMarkerHere(loop.MarkerEnd)
	case key.Matches(msg, m.keyMap.StartEarlier):
		err = m.nudge(loop.MarkerStart, -nudgeStep)
	case key.Matches(msg, m.keyMap.StartLater):
		err = m.nudge(loop.MarkerStart, nudgeStep)
	case key.Matches(msg, m.keyMap.EndEarlier):
		err = m.nudge(loop.MarkerEnd, -nudgeStep)
	case key.Matches(msg, m.keyMap.EndLater):
		err = m.nudge(loop.MarkerEnd, nudgeStep)

	case key.Matches(msg, m.keyMap.EditTempo):
		m.openPrompt(promptTempo, strconv.Itoa(m.sess.Tempo().Percent()))
		return m, textinput.Blink
	case key.Matches(msg, m.keyMap.TempoDown):
		m.sess.StepTempo(-tempoStep)
	case key.Matches(msg, m.keyMap.TempoUp):
		m.sess.StepTempo(tempoStep)
	case key.Matches(msg, m.keyMap.TempoReset):
		m.sess.ResetTempo()
	case key.Matches(msg, m.keyMap.TempoCycle):
		m.sess.SetTempoPercent(float64(nextPreset(m.sess.Tempo().Percent())))

	case key.Matches(msg, m.keyMap.Split):
		m.openPrompt(promptSections, strconv.Itoa(m.opts.SectionCount))
		return m, textinput.Blink

	default:
		return m.updateFocused(msg)
	}

	if err != nil {
		return m.fail(err)
	}
	m.refresh(m.sess.State())
	return m, nil
}

// updateFocused hands a key to the focused panel.
func (m Model) updateFocused(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case FocusBrowser:
		m.browser, cmd = m.browser.Update(msg)
	case FocusLibrary:
		m.library, cmd = m.library.Update(msg)
	case FocusSections:
		m.sections, cmd = m.sections.Update(msg)
	case FocusPlaylist:
		m.playlist, cmd = m.playlist.Update(msg)
	}
	return m, cmd
}

func (m *Model) cycleFocus() {
	order := []Focus{FocusBrowser, FocusLibrary, FocusSections, FocusPlaylist}
	if m.library == nil {
		order = []Focus{FocusBrowser, FocusSections, FocusPlaylist}
	}
	i := slices.Index(order, m.focus)
	m.focus = order[(i+1)%len(order)]

	m.browser.Blur()
	m.sections.Blur()
	m.playlist.Blur()
	if m.library != nil {
		m.library.Blur()
	}
	switch m.focus {
	case FocusBrowser:
		m.browser.Focus()
		m.leftPanel = FocusBrowser
	case FocusLibrary:
		m.library.Focus()
		m.leftPanel = FocusLibrary
	case FocusSections:
		m.sections.Focus()
	case FocusPlaylist:
		m.playlist.Focus()
	}
}

func (m Model) nudge(marker loop.Marker, delta float64) error {
	r := m.sess.Loop()
	t := r.Start
	if marker == loop.MarkerEnd {
		t = r.End
	}
	return m.sess.DragMarker(marker, t+delta)
}

// nextPreset returns the first preset above percent, wrapping around.
func nextPreset(percent int) int {
	presets := tempo.Presets()
	for _, p := range presets {
		if p > percent {
			return p
		}
	}
	return presets[0]
}

func newInput(placeholder, value string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.SetValue(value)
	ti.Prompt = ""
	ti.CharLimit = limit
	ti.Width = limit + 1
	return ti
}

func (m *Model) openPrompt(kind promptKind, value string) {
	var ti textinput.Model
	switch kind {
	case promptTempo:
		ti = newInput("100", value, 3)
	case promptSections:
		ti = newInput("4 or 30s", value, 6)
	}
	ti.Focus()
	m.prompt = prompt{kind: kind, inputs: []textinput.Model{ti}}
}

func (m *Model) openLoopPrompt() {
	start, end := m.sess.LoopText()
	placeholder := "MM:SS"
	if m.sess.UseHours() {
		placeholder = "HH:MM:SS"
	}
	limit := len(placeholder) + 1
	inputs := []textinput.Model{
		newInput(placeholder, start, limit),
		newInput(placeholder, end, limit),
	}
	inputs[0].Focus()
	m.prompt = prompt{kind: promptLoop, inputs: inputs}
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := &m.prompt

	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = prompt{}
		return m, nil

	case tea.KeyTab, tea.KeyShiftTab:
		if len(p.inputs) > 1 {
			m.normalizeInput(p.active)
			p.inputs[p.active].Blur()
			p.active = (p.active + 1) % len(p.inputs)
			p.inputs[p.active].Focus()
		}
		return m, nil

	case tea.KeyEnter:
		if err := m.submitPrompt(); err != nil {
			return m.fail(err)
		}
		m.prompt = prompt{}
		m.lastError = ""
		m.refresh(m.sess.State())
		return m, nil
	}

	var cmd tea.Cmd
	p.inputs[p.active], cmd = p.inputs[p.active].Update(msg)
	if p.kind == promptLoop {
		in := &p.inputs[p.active]
		if clean := timemath.SanitizeText(in.Value()); clean != in.Value() {
			in.SetValue(clean)
		}
	}
	return m, cmd
}

// normalizeInput pads the fields of a loop bound when leaving it.
func (m *Model) normalizeInput(i int) {
	if m.prompt.kind != promptLoop {
		return
	}
	in := &m.prompt.inputs[i]
	if v, ok := timemath.NormalizeText(in.Value(), m.sess.UseHours()); ok {
		in.SetValue(v)
	}
}

func (m Model) submitPrompt() error {
	p := m.prompt
	switch p.kind {
	case promptLoop:
		return m.sess.SetLoopText(p.inputs[0].Value(), p.inputs[1].Value())

	case promptTempo:
		v, err := strconv.ParseFloat(strings.TrimSpace(p.inputs[0].Value()), 64)
		if err != nil {
			return fmt.Errorf("tempo: %w", err)
		}
		m.sess.SetTempoPercent(v)
		return nil

	case promptSections:
		mode, value, err := parseSplit(p.inputs[0].Value())
		if err != nil {
			return err
		}
		if len(m.sess.GenerateSections(mode, value)) == 0 {
			if m.sess.State().Duration > 0 {
				return fmt.Errorf("sections: at most %d", section.MaxSections)
			}
			return errors.New("no sections: load a track first")
		}
		return nil
	}
	return nil
}

// parseSplit reads "4" as four sections and "30s" as 30 second sections.
func parseSplit(s string) (section.Mode, float64, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "s") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
		if err != nil || v <= 0 {
			return section.ByLength, 0, fmt.Errorf("section length %q", s)
		}
		return section.ByLength, v, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 || v > section.MaxSections {
		return section.ByCount, 0, fmt.Errorf("section count %q", s)
	}
	return section.ByCount, float64(v), nil
}
