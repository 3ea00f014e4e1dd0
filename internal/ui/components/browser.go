package components

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/looptui/internal/audio"
)

// BrowserKeyMap defines key bindings for the browser.
type BrowserKeyMap struct {
	Up           key.Binding
	Down         key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	GoToTop      key.Binding
	GoToBottom   key.Binding
	Open         key.Binding
	Back         key.Binding
	ToggleHidden key.Binding
}

// DefaultBrowserKeyMap returns the default browser key bindings.
func DefaultBrowserKeyMap() BrowserKeyMap {
	return BrowserKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdown", "page down"),
		),
		GoToTop: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "top"),
		),
		GoToBottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "bottom"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter", "l", "right"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("backspace", "h", "left"),
			key.WithHelp("backspace", "parent"),
		),
		ToggleHidden: key.NewBinding(
			key.WithKeys("."),
			key.WithHelp(".", "hidden"),
		),
	}
}

// FileEntry is a directory or playable file in the browser.
type FileEntry struct {
	Name  string
	Path  string
	IsDir bool
	Size  int64
}

// BrowserStyles contains styles for the browser component.
type BrowserStyles struct {
	Cursor    lipgloss.Style
	Directory lipgloss.Style
	AudioFile lipgloss.Style
	Selected  lipgloss.Style
	Muted     lipgloss.Style
	EmptyDir  lipgloss.Style
}

func DefaultBrowserStyles() BrowserStyles {
	return BrowserStyles{
		Cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7571F9")).
			Bold(true),
		Directory: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#99CCFF")),
		AudioFile: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7571F9")).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#606060")),
		EmptyDir: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0")).
			Italic(true),
	}
}

// FileSelectedMsg is sent when a file is chosen for playback.
type FileSelectedMsg struct {
	Path string
}

// BrowserReadDirMsg carries the contents of a directory that was read.
type BrowserReadDirMsg struct {
	Dir     string
	Entries []FileEntry
	Err     error

	// Select, if set, names the entry to put the cursor on.
	Select string
}

// Browser navigates directories and lists the audio files in them.
type Browser struct {
	dir     string
	entries []FileEntry
	cursor  int
	offset  int

	width  int
	height int

	focused    bool
	showHidden bool
	err        error

	KeyMap BrowserKeyMap
	Styles BrowserStyles
}

// NewBrowser creates a browser at startDir, or the home directory when
// startDir is empty.
func NewBrowser(startDir string) Browser {
	if startDir == "" {
		startDir, _ = os.UserHomeDir()
		if startDir == "" {
			startDir = "/"
		}
	}
	if abs, err := filepath.Abs(startDir); err == nil {
		startDir = abs
	}

	return Browser{
		dir:    startDir,
		width:  30,
		height: 10,
		KeyMap: DefaultBrowserKeyMap(),
		Styles: DefaultBrowserStyles(),
	}
}

func (b Browser) Init() tea.Cmd {
	return b.readDir(b.dir, "")
}

func (b Browser) readDir(path, selectName string) tea.Cmd {
	showHidden := b.showHidden
	return func() tea.Msg {
		entries, err := ReadDir(path, showHidden)
		return BrowserReadDirMsg{Dir: path, Entries: entries, Err: err, Select: selectName}
	}
}

// ReadDir lists path: directories first, then playable audio files, each
// group sorted case-insensitively.
func ReadDir(path string, showHidden bool) ([]FileEntry, error) {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var entries []FileEntry
	for _, de := range dirEntries {
		name := de.Name()
		if !showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if !de.IsDir() && !audio.Supported(name) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, FileEntry{
			Name:  name,
			Path:  filepath.Join(path, name),
			IsDir: de.IsDir(),
			Size:  info.Size(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

func (b Browser) Update(msg tea.Msg) (Browser, tea.Cmd) {
	switch msg := msg.(type) {
	case BrowserReadDirMsg:
		if msg.Err != nil {
			b.err = msg.Err
			return b, nil
		}
		b.dir = msg.Dir
		b.entries = msg.Entries
		b.err = nil
		b.cursor = 0
		for i, e := range b.entries {
			if e.Name == msg.Select {
				b.cursor = i
				break
			}
		}
		b.scroll()
		return b, nil

	case tea.KeyMsg:
		if !b.focused {
			return b, nil
		}
		return b.handleKeyMsg(msg)
	}

	return b, nil
}

func (b Browser) handleKeyMsg(msg tea.KeyMsg) (Browser, tea.Cmd) {
	page := b.visibleCount()

	switch {
	case key.Matches(msg, b.KeyMap.Up):
		b.move(-1)
	case key.Matches(msg, b.KeyMap.Down):
		b.move(1)
	case key.Matches(msg, b.KeyMap.PageUp):
		b.move(-page)
	case key.Matches(msg, b.KeyMap.PageDown):
		b.move(page)
	case key.Matches(msg, b.KeyMap.GoToTop):
		b.move(-len(b.entries))
	case key.Matches(msg, b.KeyMap.GoToBottom):
		b.move(len(b.entries))
	case key.Matches(msg, b.KeyMap.Open):
		return b, b.open()
	case key.Matches(msg, b.KeyMap.Back):
		parent := filepath.Dir(b.dir)
		if parent == b.dir {
			return b, nil
		}
		return b, b.readDir(parent, filepath.Base(b.dir))
	case key.Matches(msg, b.KeyMap.ToggleHidden):
		b.showHidden = !b.showHidden
		return b, b.readDir(b.dir, "")
	}
	return b, nil
}

func (b *Browser) move(delta int) {
	if len(b.entries) == 0 {
		return
	}
	b.cursor = min(max(b.cursor+delta, 0), len(b.entries)-1)
	b.scroll()
}

// scroll keeps the cursor inside the visible window.
func (b *Browser) scroll() {
	visible := b.visibleCount()
	if b.cursor < b.offset {
		b.offset = b.cursor
	}
	if b.cursor >= b.offset+visible {
		b.offset = b.cursor - visible + 1
	}
	b.offset = max(min(b.offset, len(b.entries)-visible), 0)
}

func (b Browser) open() tea.Cmd {
	entry := b.SelectedEntry()
	if entry == nil {
		return nil
	}
	if entry.IsDir {
		return b.readDir(entry.Path, "")
	}
	path := entry.Path
	return func() tea.Msg { return FileSelectedMsg{Path: path} }
}

// visibleCount is the number of entry rows below the directory header.
func (b Browser) visibleCount() int {
	return max(b.height-1, 1)
}

func (b Browser) View() string {
	var s strings.Builder

	dir := b.dir
	if maxLen := max(b.width-2, 10); len(dir) > maxLen {
		dir = "..." + dir[len(dir)-maxLen+3:]
	}
	s.WriteString(b.Styles.Muted.Render(dir))
	s.WriteRune('\n')

	switch {
	case b.err != nil:
		s.WriteString(b.Styles.Muted.Render("Error: " + b.err.Error()))
	case len(b.entries) == 0:
		s.WriteString(b.Styles.EmptyDir.Render("(no audio files)"))
	default:
		nameWidth := max(b.width-2, 5)
		end := min(b.offset+b.visibleCount(), len(b.entries))
		for i := b.offset; i < end; i++ {
			e := b.entries[i]
			name := e.Name
			style := b.Styles.AudioFile
			if e.IsDir {
				name = name + "/"
				style = b.Styles.Directory
			}

			cursor := "  "
			if i == b.cursor {
				cursor = b.Styles.Cursor.Render("> ")
				style = b.Styles.Selected
			}
			s.WriteString(cursor + style.Render(Fit(name, nameWidth)))
			s.WriteRune('\n')
		}
	}

	return FitHeight(s.String(), b.height)
}

// Fit truncates name to width runes with a trailing ellipsis.
func Fit(name string, width int) string {
	r := []rune(name)
	if len(r) <= width {
		return name
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// FitHeight pads or cuts content to exactly height lines.
func FitHeight(content string, height int) string {
	if height <= 0 {
		return content
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (b *Browser) SetSize(width, height int) {
	b.width = width
	b.height = height
	b.scroll()
}

func (b *Browser) Focus() { b.focused = true }
func (b *Browser) Blur()  { b.focused = false }

func (b Browser) IsFocused() bool {
	return b.focused
}

// CurrentDir returns the directory being shown.
func (b Browser) CurrentDir() string {
	return b.dir
}

// SelectedEntry returns the entry under the cursor, or nil.
func (b Browser) SelectedEntry() *FileEntry {
	if b.cursor < 0 || b.cursor >= len(b.entries) {
		return nil
	}
	e := b.entries[b.cursor]
	return &e
}
