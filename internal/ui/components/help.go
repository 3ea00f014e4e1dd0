package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpGroup is a titled set of bindings in the help popup.
type HelpGroup struct {
	Title    string
	Bindings []key.Binding
}

// HelpPopup is a scrollable overlay listing every key binding.
type HelpPopup struct {
	viewport viewport.Model
	groups   []HelpGroup
	visible  bool
	width    int
	height   int

	borderStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	categoryStyle lipgloss.Style
	keyStyle      lipgloss.Style
	descStyle     lipgloss.Style
	footerStyle   lipgloss.Style
}

// HelpKeyMap defines key bindings for the help popup.
type HelpKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Close    key.Binding
}

func DefaultHelpKeyMap() HelpKeyMap {
	return HelpKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),
		Close: key.NewBinding(
			key.WithKeys("?", "esc", "q"),
			key.WithHelp("?/esc", "close"),
		),
	}
}

// NewHelpPopup creates a hidden popup listing groups.
func NewHelpPopup(groups []HelpGroup) HelpPopup {
	vp := viewport.New(50, 20)
	vp.MouseWheelEnabled = true

	h := HelpPopup{
		viewport: vp,
		groups:   groups,
		width:    60,
		height:   24,
		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7571F9")),
		titleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7571F9")).
			Bold(true),
		categoryStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true),
		keyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7571F9")).
			Bold(true),
		descStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")),
		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0")).
			Italic(true),
	}
	h.viewport.SetContent(h.content())
	return h
}

func (h HelpPopup) Update(msg tea.Msg) (HelpPopup, tea.Cmd) {
	if !h.visible {
		return h, nil
	}

	keys := DefaultHelpKeyMap()
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Close):
			h.visible = false
			return h, nil
		case key.Matches(msg, keys.Up):
			h.viewport.ScrollUp(1)
			return h, nil
		case key.Matches(msg, keys.Down):
			h.viewport.ScrollDown(1)
			return h, nil
		case key.Matches(msg, keys.PageUp):
			h.viewport.PageUp()
			return h, nil
		case key.Matches(msg, keys.PageDown):
			h.viewport.PageDown()
			return h, nil
		}
	}

	var cmd tea.Cmd
	h.viewport, cmd = h.viewport.Update(msg)
	return h, cmd
}

func (h HelpPopup) View() string {
	if !h.visible {
		return ""
	}

	footer := h.footerStyle.Render("Press ? or Esc to close")
	body := lipgloss.JoinVertical(lipgloss.Left,
		h.titleStyle.Render("Help"),
		h.viewport.View(),
		"",
		lipgloss.NewStyle().Width(h.viewport.Width).Align(lipgloss.Center).Render(footer),
	)
	return h.borderStyle.Padding(0, 1).Render(body)
}

func (h HelpPopup) content() string {
	var b strings.Builder
	for i, g := range h.groups {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(h.categoryStyle.Render(g.Title))
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", 35))
		b.WriteString("\n")
		for _, k := range g.Bindings {
			if !k.Enabled() {
				continue
			}
			hk := k.Help()
			b.WriteString(lipgloss.NewStyle().Width(14).Render(h.keyStyle.Render(hk.Key)))
			b.WriteString(h.descStyle.Render(hk.Desc))
			b.WriteString("\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// SetSize fits the popup inside a width x height screen.
func (h *HelpPopup) SetSize(width, height int) {
	h.width = width
	h.height = height

	w := min(max(width*70/100, 40), 60)
	ht := min(max(height*80/100, 12), 30)
	h.viewport.Width = w - 4
	h.viewport.Height = ht - 6
}

func (h *HelpPopup) Show() {
	h.visible = true
	h.viewport.GotoTop()
}

func (h *HelpPopup) Hide() {
	h.visible = false
}

func (h HelpPopup) Visible() bool {
	return h.visible
}

func (h *HelpPopup) Toggle() {
	if h.visible {
		h.Hide()
	} else {
		h.Show()
	}
}
