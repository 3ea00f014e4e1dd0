package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/looptui/internal/section"
	"github.com/dewi-tim/looptui/internal/timemath"
)

// SectionListKeyMap defines keybindings for the section list.
type SectionListKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Select   key.Binding
	Remove   key.Binding
	Clear    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func DefaultSectionListKeyMap() SectionListKeyMap {
	return SectionListKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "loop section"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "remove"),
		),
		Clear: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop section loop"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),
	}
}

// SectionSelectedMsg asks for section Index to be looped.
type SectionSelectedMsg struct{ Index int }

// SectionRemovedMsg asks for section Index to be deleted.
type SectionRemovedMsg struct{ Index int }

// SectionClearedMsg asks to stop looping the selected section.
type SectionClearedMsg struct{}

// SectionList shows the generated sections of the current track.
type SectionList struct {
	table    table.Model
	sections []section.Section
	duration float64
	selected int // Looping section (-1 if none)
	focused  bool

	keyMap SectionListKeyMap
}

// NewSectionList creates an empty section list.
func NewSectionList() SectionList {
	t := table.New(
		table.WithColumns(sectionColumns(40)),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
		table.WithHeight(5),
	)

	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#A0A0A0")).
		Padding(0, 1)
	s.Cell = lipgloss.NewStyle().
		Padding(0, 1)
	s.Selected = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7571F9"))
	t.SetStyles(s)

	return SectionList{
		table:    t,
		selected: -1,
		keyMap:   DefaultSectionListKeyMap(),
	}
}

func sectionColumns(width int) []table.Column {
	timeWidth := 9
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "Start", Width: timeWidth},
		{Title: "End", Width: timeWidth},
		{Title: "Length", Width: max(width-4-2*timeWidth-8, 6)},
	}
}

// Update handles navigation and turns actions into messages for the parent.
func (l SectionList) Update(msg tea.Msg) (SectionList, tea.Cmd) {
	if !l.focused {
		return l, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return l, nil
	}

	switch {
	case key.Matches(keyMsg, l.keyMap.Up):
		l.table.MoveUp(1)
	case key.Matches(keyMsg, l.keyMap.Down):
		l.table.MoveDown(1)
	case key.Matches(keyMsg, l.keyMap.Top):
		l.table.GotoTop()
	case key.Matches(keyMsg, l.keyMap.Bottom):
		l.table.GotoBottom()
	case key.Matches(keyMsg, l.keyMap.PageUp):
		l.table.MoveUp(l.table.Height())
	case key.Matches(keyMsg, l.keyMap.PageDown):
		l.table.MoveDown(l.table.Height())
	case key.Matches(keyMsg, l.keyMap.Select):
		if i := l.table.Cursor(); i >= 0 && i < len(l.sections) {
			return l, func() tea.Msg { return SectionSelectedMsg{Index: i} }
		}
	case key.Matches(keyMsg, l.keyMap.Remove):
		if i := l.table.Cursor(); i >= 0 && i < len(l.sections) {
			return l, func() tea.Msg { return SectionRemovedMsg{Index: i} }
		}
	case key.Matches(keyMsg, l.keyMap.Clear):
		return l, func() tea.Msg { return SectionClearedMsg{} }
	}
	return l, nil
}

func (l SectionList) View() string {
	if len(l.sections) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0")).
			Italic(true).
			Render("No sections. Press S to split the track.")
	}
	return l.table.View()
}

// SetSize sets the outer size of the list.
func (l *SectionList) SetSize(width, height int) {
	l.table.SetColumns(sectionColumns(width))
	l.table.SetWidth(max(width-2, 20))
	l.table.SetHeight(max(height-4, 1))
}

func (l *SectionList) Focus() {
	l.focused = true
	l.table.Focus()
}

func (l *SectionList) Blur() {
	l.focused = false
	l.table.Blur()
}

func (l SectionList) Focused() bool {
	return l.focused
}

// SetSections replaces the rows. selected marks the looping section.
func (l *SectionList) SetSections(sections []section.Section, selected int, duration float64) {
	l.sections = sections
	l.selected = selected
	l.duration = duration

	saved := l.table.Cursor()
	rows := make([]table.Row, len(sections))
	for i, s := range sections {
		num := fmt.Sprintf(" %d", i+1)
		if i == selected {
			num = fmt.Sprintf(">%d", i+1)
		}
		rows[i] = table.Row{
			num,
			timemath.FormatFor(s.Start, duration, false),
			timemath.FormatFor(s.End, duration, false),
			fmt.Sprintf("%.1fs", s.Duration()),
		}
	}
	l.table.SetRows(rows)

	switch {
	case saved >= 0 && saved < len(rows):
		l.table.SetCursor(saved)
	case len(rows) > 0:
		l.table.SetCursor(len(rows) - 1)
	}
}

// Cursor returns the highlighted row.
func (l SectionList) Cursor() int {
	return l.table.Cursor()
}

func (l SectionList) Len() int {
	return len(l.sections)
}

// Title returns the panel title.
func (l SectionList) Title() string {
	switch {
	case len(l.sections) == 0:
		return "Sections"
	case l.selected >= 0:
		return fmt.Sprintf("Sections [%d/%d]", l.selected+1, len(l.sections))
	}
	return fmt.Sprintf("Sections [%d]", len(l.sections))
}

func (l SectionList) KeyMap() SectionListKeyMap {
	return l.keyMap
}
