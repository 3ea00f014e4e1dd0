package components

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/looptui/internal/session"
)

// PlaylistKeyMap defines keybindings for the playlist component.
type PlaylistKeyMap struct {
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

// DefaultPlaylistKeyMap returns the default keybindings for the playlist.
func DefaultPlaylistKeyMap() PlaylistKeyMap {
	return PlaylistKeyMap{
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
			key.WithKeys("enter", "l"),
			key.WithHelp("enter/l", "open"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "remove"),
		),
		Clear: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "clear"),
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

// PlaylistSelectedMsg asks for playlist entry Index to be loaded.
type PlaylistSelectedMsg struct{ Index int }

// PlaylistRemovedMsg asks for playlist entry Index to be dropped.
type PlaylistRemovedMsg struct{ Index int }

// PlaylistClearedMsg asks for the playlist to be emptied.
type PlaylistClearedMsg struct{}

// Playlist shows the tracks opened during this session.
type Playlist struct {
	table   table.Model
	entries []session.Entry
	current int // Loaded entry (-1 if none)
	focused bool

	keyMap PlaylistKeyMap
}

// NewPlaylist creates a new Playlist component.
func NewPlaylist() Playlist {
	t := table.New(
		table.WithColumns(playlistColumns(40)),
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

	return Playlist{
		table:   t,
		current: -1,
		keyMap:  DefaultPlaylistKeyMap(),
	}
}

func playlistColumns(width int) []table.Column {
	numWidth := 5 // Track number with "> " indicator
	fileWidth := max(width*35/100, 8)
	titleWidth := max(width-numWidth-fileWidth-8, 10)
	return []table.Column{
		{Title: "#", Width: numWidth},
		{Title: "Title", Width: titleWidth},
		{Title: "File", Width: fileWidth},
	}
}

// Update handles navigation and turns actions into messages for the parent.
func (p Playlist) Update(msg tea.Msg) (Playlist, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}

	switch {
	case key.Matches(keyMsg, p.keyMap.Up):
		p.table.MoveUp(1)
	case key.Matches(keyMsg, p.keyMap.Down):
		p.table.MoveDown(1)
	case key.Matches(keyMsg, p.keyMap.Top):
		p.table.GotoTop()
	case key.Matches(keyMsg, p.keyMap.Bottom):
		p.table.GotoBottom()
	case key.Matches(keyMsg, p.keyMap.PageUp):
		p.table.MoveUp(p.table.Height())
	case key.Matches(keyMsg, p.keyMap.PageDown):
		p.table.MoveDown(p.table.Height())
	case key.Matches(keyMsg, p.keyMap.Select):
		if i := p.table.Cursor(); i >= 0 && i < len(p.entries) {
			return p, func() tea.Msg { return PlaylistSelectedMsg{Index: i} }
		}
	case key.Matches(keyMsg, p.keyMap.Remove):
		if i := p.table.Cursor(); i >= 0 && i < len(p.entries) {
			return p, func() tea.Msg { return PlaylistRemovedMsg{Index: i} }
		}
	case key.Matches(keyMsg, p.keyMap.Clear):
		if len(p.entries) > 0 {
			return p, func() tea.Msg { return PlaylistClearedMsg{} }
		}
	}
	return p, nil
}

// View renders the playlist.
func (p Playlist) View() string {
	if len(p.entries) == 0 {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0")).
			Italic(true).
			Render("Opened tracks appear here.")
	}
	return p.table.View()
}

// SetSize sets the outer size of the playlist.
func (p *Playlist) SetSize(width, height int) {
	p.table.SetColumns(playlistColumns(width))
	p.table.SetWidth(max(width-2, 20))
	p.table.SetHeight(max(height-4, 1))
}

// Focus sets the playlist to focused state.
func (p *Playlist) Focus() {
	p.focused = true
	p.table.Focus()
}

// Blur removes focus from the playlist.
func (p *Playlist) Blur() {
	p.focused = false
	p.table.Blur()
}

// Focused returns whether the playlist is focused.
func (p Playlist) Focused() bool {
	return p.focused
}

// SetEntries syncs the rows with the session's playlist. current marks the
// loaded entry.
func (p *Playlist) SetEntries(entries []session.Entry, current int) {
	p.entries = entries
	p.current = current

	saved := p.table.Cursor()
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		num := fmt.Sprintf(" %d", i+1)
		if i == current {
			num = fmt.Sprintf(">%d", i+1)
		}
		rows[i] = table.Row{num, e.Title, filepath.Base(e.Path)}
	}
	p.table.SetRows(rows)

	switch {
	case saved >= 0 && saved < len(rows):
		p.table.SetCursor(saved)
	case len(rows) > 0:
		p.table.SetCursor(len(rows) - 1)
	}
}

// Cursor returns the highlighted row.
func (p Playlist) Cursor() int {
	return p.table.Cursor()
}

// Len returns the number of entries.
func (p Playlist) Len() int {
	return len(p.entries)
}

// Title returns the title for the playlist panel.
func (p Playlist) Title() string {
	if len(p.entries) == 0 {
		return "Playlist"
	}
	if p.current >= 0 {
		return fmt.Sprintf("Playlist [%d/%d]", p.current+1, len(p.entries))
	}
	return fmt.Sprintf("Playlist [%d]", len(p.entries))
}

// KeyMap returns the playlist's keymap for help display.
func (p Playlist) KeyMap() PlaylistKeyMap {
	return p.keyMap
}
