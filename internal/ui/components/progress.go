// Package components provides UI components for looptui.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/looptui/internal/loop"
	"github.com/dewi-tim/looptui/internal/timemath"
)

// ProgressBar draws the playhead over the track with the loop region
// marked on it.
type ProgressBar struct {
	elapsed  float64
	duration float64
	region   loop.Region
	loopSet  bool
	width    int

	TimeStyle   lipgloss.Style
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
	LoopStyle   lipgloss.Style
	MarkerStyle lipgloss.Style
	FilledChar  rune
	EmptyChar   rune
	LoopChar    rune
}

// NewProgressBar creates a new progress bar with default styling.
func NewProgressBar() ProgressBar {
	return ProgressBar{
		width:       40,
		FilledChar:  '█', // Full block
		EmptyChar:   '░', // Light shade
		LoopChar:    '▒', // Medium shade
		TimeStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0")),
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#7571F9")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("#606060")),
		LoopStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		MarkerStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true),
	}
}

// SetWidth sets the total width including both time labels.
func (p *ProgressBar) SetWidth(width int) {
	p.width = width
}

// SetPosition sets elapsed and total time in seconds.
func (p *ProgressBar) SetPosition(elapsed, duration float64) {
	p.elapsed = elapsed
	p.duration = duration
}

// SetLoop marks r on the bar. Inactive regions are drawn only if they have
// been given bounds.
func (p *ProgressBar) SetLoop(r loop.Region) {
	p.region = r
	p.loopSet = r.End > r.Start
}

// Column maps a time to a bar column, clamped to [0, width-1].
func Column(t, duration float64, width int) int {
	if width <= 0 {
		return 0
	}
	frac := timemath.Progress(t, duration) / 100
	return min(max(int(frac*float64(width)), 0), width-1)
}

// BarWidth returns the number of columns the bar itself takes.
func (p ProgressBar) BarWidth() int {
	elapsed := timemath.FormatFor(p.elapsed, p.duration, false)
	total := timemath.FormatFor(p.duration, p.duration, false)
	return max(p.width-len(elapsed)-len(total)-2, 5)
}

// View renders "01:23 ███▒▒[▒▒]░░ 03:45".
func (p ProgressBar) View() string {
	elapsed := timemath.FormatFor(p.elapsed, p.duration, false)
	total := timemath.FormatFor(p.duration, p.duration, false)
	width := p.BarWidth()

	played := 0
	if p.duration > 0 {
		played = int(timemath.Progress(p.elapsed, p.duration) / 100 * float64(width))
	}

	start, end := -1, -1
	if p.loopSet && p.duration > 0 {
		start = Column(p.region.Start, p.duration, width)
		end = Column(p.region.End, p.duration, width)
	}

	var b strings.Builder
	for col := range width {
		switch {
		case col == start:
			b.WriteString(p.MarkerStyle.Render("["))
		case col == end:
			b.WriteString(p.MarkerStyle.Render("]"))
		case col < played:
			b.WriteString(p.FilledStyle.Render(string(p.FilledChar)))
		case p.region.Active && col > start && col < end:
			b.WriteString(p.LoopStyle.Render(string(p.LoopChar)))
		default:
			b.WriteString(p.EmptyStyle.Render(string(p.EmptyChar)))
		}
	}

	return fmt.Sprintf("%s %s %s",
		p.TimeStyle.Render(elapsed),
		b.String(),
		p.TimeStyle.Render(total),
	)
}
