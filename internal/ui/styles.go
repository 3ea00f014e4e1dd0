// Package ui provides the Bubbletea front-end for looptui.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colors used throughout the UI.
var (
	ColorPrimary = lipgloss.Color("#7571F9")
	ColorMuted   = lipgloss.Color("#606060")

	ColorPlaying = lipgloss.Color("#04B575")
	ColorPaused  = lipgloss.Color("#FFA500")
	ColorStopped = lipgloss.Color("#FF5555")

	ColorText      = lipgloss.Color("#FAFAFA")
	ColorTextMuted = lipgloss.Color("#A0A0A0")
)

// Styles contains all the styles used in the UI.
type Styles struct {
	Title      lipgloss.Style
	TitleMuted lipgloss.Style

	Text      lipgloss.Style
	TextMuted lipgloss.Style
	TextBold  lipgloss.Style

	StatusPlaying lipgloss.Style
	StatusPaused  lipgloss.Style
	StatusStopped lipgloss.Style

	LoopOn  lipgloss.Style
	LoopOff lipgloss.Style

	Error       lipgloss.Style
	PromptLabel lipgloss.Style
}

// DefaultStyles returns the default styles for the UI.
func DefaultStyles() Styles {
	return Styles{
		Title:      lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true),
		TitleMuted: lipgloss.NewStyle().Foreground(ColorTextMuted),

		Text:      lipgloss.NewStyle().Foreground(ColorText),
		TextMuted: lipgloss.NewStyle().Foreground(ColorTextMuted),
		TextBold:  lipgloss.NewStyle().Foreground(ColorText).Bold(true),

		StatusPlaying: lipgloss.NewStyle().Foreground(ColorPlaying).Bold(true),
		StatusPaused:  lipgloss.NewStyle().Foreground(ColorPaused).Bold(true),
		StatusStopped: lipgloss.NewStyle().Foreground(ColorStopped).Bold(true),

		LoopOn:  lipgloss.NewStyle().Foreground(ColorPlaying).Bold(true),
		LoopOff: lipgloss.NewStyle().Foreground(ColorMuted),

		Error:       lipgloss.NewStyle().Foreground(ColorStopped).Bold(true),
		PromptLabel: lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true),
	}
}

// RenderPanel renders content in a rounded panel with a title line.
// width and height are the outer dimensions including the border.
func (s Styles) RenderPanel(title, content string, focused bool, width, height int) string {
	border, titleStyle := ColorMuted, s.TitleMuted
	if focused {
		border, titleStyle = ColorPrimary, s.Title
	}

	inner := max(height-2, 1)
	lines := strings.Split(content, "\n")
	lines = append([]string{titleStyle.Render(title)}, lines...)
	if len(lines) > inner {
		lines = lines[:inner]
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(max(width-2, 1)).
		Height(inner).
		Render(strings.Join(lines, "\n"))
}
