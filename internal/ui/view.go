package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/looptui/internal/bpm"
	"github.com/dewi-tim/looptui/internal/player"
	"github.com/dewi-tim/looptui/internal/tempo"
	"github.com/dewi-tim/looptui/internal/timemath"
)

const (
	minWidth  = 60
	minHeight = 18

	leftWidthPercent = 35
	playlistPercent  = 40
	infoHeight       = 8
	progressHeight   = 3
	errorVisible     = 5 * time.Second
)

// layout sizes the components for the current window.
func (m *Model) layout() {
	left := m.width * leftWidthPercent / 100
	right := m.width - left - 1
	body := m.height - 1
	files, queue := splitLeft(body)

	m.browser.SetSize(left-4, files-3)
	if m.library != nil {
		m.library.SetSize(left-4, files-3)
	}
	m.playlist.SetSize(left-2, queue)
	m.sections.SetSize(right-2, body-infoHeight-progressHeight-2)
	m.progress.SetWidth(right - 4)
}

// View renders the entire UI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	left := m.width * leftWidthPercent / 100
	right := m.width - left - 1
	body := m.height - 1

	main := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderLeft(left, body),
		" ",
		m.renderRight(right, body),
	)
	view := lipgloss.JoinVertical(lipgloss.Left, main, m.renderFooter())

	if m.helpPopup.Visible() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.helpPopup.View())
	}
	return view
}

func (m Model) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small\nNeed at least %dx%d\nCurrent: %dx%d",
		minWidth, minHeight, m.width, m.height)
	return m.styles.TextMuted.Render(msg)
}

// splitLeft divides the left column between the file panel and the
// playlist.
func splitLeft(height int) (files, playlist int) {
	playlist = height * playlistPercent / 100
	return height - playlist, playlist
}

func (m Model) renderLeft(width, height int) string {
	files, queue := splitLeft(height)

	top := m.styles.RenderPanel("Files", m.browser.View(), m.focus == FocusBrowser, width, files)
	if m.leftPanel == FocusLibrary && m.library != nil {
		top = m.styles.RenderPanel("Library", m.library.View(), m.focus == FocusLibrary, width, files)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		top,
		m.styles.RenderPanel(m.playlist.Title(), m.playlist.View(), m.focus == FocusPlaylist, width, queue),
	)
}

func (m Model) renderRight(width, height int) string {
	sectionsHeight := height - infoHeight - progressHeight - 2

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTrackInfo(width, infoHeight),
		m.styles.RenderPanel(m.sections.Title(), m.sections.View(), m.focus == FocusSections, width, sectionsHeight),
		m.renderProgress(width),
	)
}

// renderTrackInfo shows metadata and the practice settings of the session.
func (m Model) renderTrackInfo(width, height int) string {
	var b strings.Builder
	s := m.state
	label := m.styles.TextMuted.Render

	if !s.Loaded() && s.State != player.StateLoading {
		b.WriteString(label("No track loaded"))
		b.WriteString("\n")
		b.WriteString(label("Select an audio file on the left"))
	} else {
		md := m.sess.Metadata()
		title := md.Title
		if title == "" {
			title = "(Unknown)"
		}
		fmt.Fprintf(&b, "%s %s\n", label("Track:"), m.styles.TextBold.Render(title))
		artist := md.Artist
		if artist == "" {
			artist = "(Unknown)"
		}
		fmt.Fprintf(&b, "%s %s", label("Artist:"), m.styles.Text.Render(artist))
		if md.Album != "" {
			fmt.Fprintf(&b, "  %s %s", label("Album:"), m.styles.Text.Render(md.Album))
		}
		b.WriteString("\n")

		t := m.sess.Tempo()
		orig, adj := m.sess.BPM()
		bpmText := bpm.FormatAdjusted(orig, adj)
		if m.sess.DetectingBPM() {
			bpmText = "detecting..."
		}
		fmt.Fprintf(&b, "%s %s  %s %s  %s %d%%  %s %s\n",
			label("Tempo:"), m.styles.Text.Render(tempo.Format(t.Rate)),
			label("BPM:"), m.styles.Text.Render(bpmText),
			label("Vol:"), int(s.Volume*100+0.5),
			label("Engine:"), m.styles.Text.Render(s.Engine))

		b.WriteString(m.renderLoopLine())
		b.WriteString("\n")
		if m.prompt.kind != promptNone {
			b.WriteString(m.renderPrompt())
		}
	}

	return lipgloss.NewStyle().
		Width(width-2).
		Height(height-1).
		Padding(0, 1).
		Render(b.String())
}

func (m Model) renderLoopLine() string {
	r := m.sess.Loop()
	d := m.state.Duration
	label := m.styles.TextMuted.Render

	status := m.styles.LoopOff.Render("off")
	if r.Active {
		status = m.styles.LoopOn.Render("on")
	}
	bounds := "--:-- - --:--"
	if r.End > r.Start {
		bounds = timemath.FormatFor(r.Start, d, false) + " - " + timemath.FormatFor(r.End, d, false)
	}

	line := fmt.Sprintf("%s %s %s", label("Loop:"), status, m.styles.Text.Render(bounds))
	if i := m.sess.Selected(); i >= 0 && m.state.HasSection {
		line += fmt.Sprintf("  %s %d", label("Section:"), i+1)
	}
	if m.state.Repeat == player.RepeatOne {
		line += "  " + label("Repeat: one")
	}
	return line
}

func (m Model) renderPrompt() string {
	p := m.prompt
	label := m.styles.PromptLabel.Render
	switch p.kind {
	case promptLoop:
		return fmt.Sprintf("%s %s  %s %s  %s",
			label("Start"), p.inputs[0].View(),
			label("End"), p.inputs[1].View(),
			m.styles.TextMuted.Render("tab switch · enter apply · esc cancel"))
	case promptTempo:
		return fmt.Sprintf("%s %s%%  %s", label("Tempo"), p.inputs[0].View(),
			m.styles.TextMuted.Render("25-400 · enter apply"))
	case promptSections:
		return fmt.Sprintf("%s %s  %s", label("Split"), p.inputs[0].View(),
			m.styles.TextMuted.Render("count or length like 30s · enter apply"))
	}
	return ""
}

func (m Model) renderProgress(width int) string {
	var statusStyle lipgloss.Style
	var icon string

	switch m.state.State {
	case player.StatePlaying:
		statusStyle, icon = m.styles.StatusPlaying, ">"
	case player.StatePaused, player.StateReady:
		statusStyle, icon = m.styles.StatusPaused, "||"
	default:
		statusStyle, icon = m.styles.StatusStopped, "[]"
	}

	status := statusStyle.Render(icon + " " + m.state.State.String())
	if m.state.Loaded() {
		status += "  " + m.styles.TextMuted.Render("-"+timemath.FormatFor(m.state.Remaining(), m.state.Duration, false))
	}
	return lipgloss.NewStyle().
		Width(width-4).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Render(status + "\n" + m.progress.View())
}

func (m Model) renderFooter() string {
	if m.lastError != "" && time.Since(m.errorTime) < errorVisible {
		return m.styles.Error.Render("Error: " + m.lastError)
	}
	if m.notice != "" && time.Since(m.noticeTime) < errorVisible {
		return m.styles.TextMuted.Render(m.notice)
	}
	return m.help.View(m.keyMap)
}
