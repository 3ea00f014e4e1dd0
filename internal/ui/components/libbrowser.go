package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/looptui/internal/library"
)

// LibBrowserKeyMap defines key bindings for the library browser.
type LibBrowserKeyMap struct {
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	GoToTop    key.Binding
	GoToBottom key.Binding
	Enter      key.Binding // Expand/collapse or play
	Back       key.Binding // Collapse or go to parent
	Rescan     key.Binding
}

func DefaultLibBrowserKeyMap() LibBrowserKeyMap {
	return LibBrowserKeyMap{
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
		Enter: key.NewBinding(
			key.WithKeys("enter", "l", "right"),
			key.WithHelp("enter", "expand/play"),
		),
		Back: key.NewBinding(
			key.WithKeys("backspace", "h", "left"),
			key.WithHelp("backspace", "collapse"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "rescan"),
		),
	}
}

// NodeType is the level of a tree node.
type NodeType int

const (
	NodeArtist NodeType = iota
	NodeAlbum
	NodeTrack
)

// TreeNode is one row of the library tree.
type TreeNode struct {
	Type     NodeType
	Name     string
	Track    *library.Track
	Children []*TreeNode
	Expanded bool
	Parent   *TreeNode
}

func (n *TreeNode) depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// LibScanCompleteMsg is sent when a library scan finishes.
type LibScanCompleteMsg struct {
	TrackCount int
	Err        error
}

// LibBrowserStyles contains styles for the library browser component.
type LibBrowserStyles struct {
	Cursor   lipgloss.Style
	Artist   lipgloss.Style
	Album    lipgloss.Style
	Track    lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
}

func DefaultLibBrowserStyles() LibBrowserStyles {
	return LibBrowserStyles{
		Cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7571F9")).
			Bold(true),
		Artist: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true),
		Album: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#99CCFF")),
		Track: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7571F9")).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#606060")),
	}
}

// LibBrowser shows a scanned library as an artist/album/track tree.
type LibBrowser struct {
	lib  *library.Library
	root []*TreeNode
	flat []*TreeNode

	cursor int
	offset int

	width  int
	height int

	focused    bool
	scanning   bool
	trackCount int
	err        error

	keyMap LibBrowserKeyMap
	styles LibBrowserStyles
}

// NewLibBrowser creates a browser over lib. The tree is empty until a
// scan completes.
func NewLibBrowser(lib *library.Library) *LibBrowser {
	return &LibBrowser{
		lib:    lib,
		width:  30,
		height: 10,
		keyMap: DefaultLibBrowserKeyMap(),
		styles: DefaultLibBrowserStyles(),
	}
}

func (b *LibBrowser) Init() tea.Cmd {
	return b.Scan()
}

// Scan returns a command that rescans the library root.
func (b *LibBrowser) Scan() tea.Cmd {
	b.scanning = true
	lib := b.lib
	return func() tea.Msg {
		n, err := lib.Scan()
		return LibScanCompleteMsg{TrackCount: n, Err: err}
	}
}

func (b *LibBrowser) buildTree() {
	b.root = b.root[:0]

	for _, artist := range b.lib.Artists() {
		artistNode := &TreeNode{Type: NodeArtist, Name: artist}
		for _, album := range b.lib.Albums(artist) {
			albumNode := &TreeNode{Type: NodeAlbum, Name: album, Parent: artistNode}
			tracks := b.lib.Tracks(artist, album)
			for i := range tracks {
				albumNode.Children = append(albumNode.Children, &TreeNode{
					Type:   NodeTrack,
					Name:   tracks[i].Title,
					Track:  &tracks[i],
					Parent: albumNode,
				})
			}
			artistNode.Children = append(artistNode.Children, albumNode)
		}
		b.root = append(b.root, artistNode)
	}

	b.flatten()
}

// flatten lists the visible nodes in display order.
func (b *LibBrowser) flatten() {
	b.flat = b.flat[:0]
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		b.flat = append(b.flat, n)
		if n.Expanded {
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	for _, n := range b.root {
		walk(n)
	}
	b.cursor = min(b.cursor, max(len(b.flat)-1, 0))
	b.scroll()
}

func (b *LibBrowser) Update(msg tea.Msg) (*LibBrowser, tea.Cmd) {
	switch msg := msg.(type) {
	case LibScanCompleteMsg:
		b.scanning = false
		b.err = msg.Err
		if msg.Err == nil {
			b.trackCount = msg.TrackCount
			b.buildTree()
		}
		return b, nil

	case tea.KeyMsg:
		if !b.focused {
			return b, nil
		}
		return b.handleKeyMsg(msg)
	}

	return b, nil
}

func (b *LibBrowser) handleKeyMsg(msg tea.KeyMsg) (*LibBrowser, tea.Cmd) {
	page := b.visibleCount()

	switch {
	case key.Matches(msg, b.keyMap.Up):
		b.move(-1)
	case key.Matches(msg, b.keyMap.Down):
		b.move(1)
	case key.Matches(msg, b.keyMap.PageUp):
		b.move(-page)
	case key.Matches(msg, b.keyMap.PageDown):
		b.move(page)
	case key.Matches(msg, b.keyMap.GoToTop):
		b.move(-len(b.flat))
	case key.Matches(msg, b.keyMap.GoToBottom):
		b.move(len(b.flat))
	case key.Matches(msg, b.keyMap.Enter):
		return b, b.enter()
	case key.Matches(msg, b.keyMap.Back):
		b.back()
	case key.Matches(msg, b.keyMap.Rescan):
		if !b.scanning {
			return b, b.Scan()
		}
	}
	return b, nil
}

func (b *LibBrowser) enter() tea.Cmd {
	node := b.SelectedNode()
	if node == nil {
		return nil
	}
	if node.Type == NodeTrack {
		path := node.Track.Path
		return func() tea.Msg { return FileSelectedMsg{Path: path} }
	}
	node.Expanded = !node.Expanded
	b.flatten()
	return nil
}

// back collapses the node under the cursor, or moves to its parent.
func (b *LibBrowser) back() {
	node := b.SelectedNode()
	if node == nil {
		return
	}
	if node.Expanded {
		node.Expanded = false
		b.flatten()
		return
	}
	for i, n := range b.flat {
		if n == node.Parent {
			b.cursor = i
			b.scroll()
			return
		}
	}
}

func (b *LibBrowser) move(delta int) {
	if len(b.flat) == 0 {
		return
	}
	b.cursor = min(max(b.cursor+delta, 0), len(b.flat)-1)
	b.scroll()
}

func (b *LibBrowser) scroll() {
	visible := b.visibleCount()
	if b.cursor < b.offset {
		b.offset = b.cursor
	}
	if b.cursor >= b.offset+visible {
		b.offset = b.cursor - visible + 1
	}
	b.offset = max(min(b.offset, len(b.flat)-visible), 0)
}

func (b *LibBrowser) visibleCount() int {
	return max(b.height-1, 1)
}

func (b *LibBrowser) View() string {
	var s strings.Builder

	switch {
	case b.scanning:
		s.WriteString(b.styles.Muted.Render(fmt.Sprintf("Scanning %s...", b.lib.Root())))
		return FitHeight(s.String(), b.height)
	case b.err != nil:
		s.WriteString(b.styles.Muted.Render("Error: " + b.err.Error()))
		return FitHeight(s.String(), b.height)
	}

	s.WriteString(b.styles.Muted.Render(fmt.Sprintf("%d tracks in %s", b.trackCount, b.lib.Root())))
	s.WriteRune('\n')

	if len(b.flat) == 0 {
		s.WriteString(b.styles.Muted.Render("No tracks found"))
		return FitHeight(s.String(), b.height)
	}

	end := min(b.offset+b.visibleCount(), len(b.flat))
	for i := b.offset; i < end; i++ {
		node := b.flat[i]
		depth := node.depth()

		var content string
		style := b.styles.Track
		switch node.Type {
		case NodeArtist, NodeAlbum:
			marker := "[+]"
			if node.Expanded {
				marker = "[-]"
			}
			content = marker + " " + node.Name
			style = b.styles.Album
			if node.Type == NodeArtist {
				style = b.styles.Artist
			}
		case NodeTrack:
			content = " -  " + node.Name
		}
		content = Fit(content, max(b.width-4-2*depth, 10))

		cursor := "  "
		if i == b.cursor {
			cursor = b.styles.Cursor.Render("> ")
			style = b.styles.Selected
		}
		s.WriteString(cursor + strings.Repeat("  ", depth) + style.Render(content))
		s.WriteRune('\n')
	}

	return FitHeight(s.String(), b.height)
}

func (b *LibBrowser) SetSize(width, height int) {
	b.width = width
	b.height = height
	b.scroll()
}

func (b *LibBrowser) Focus() { b.focused = true }
func (b *LibBrowser) Blur()  { b.focused = false }

func (b *LibBrowser) IsFocused() bool {
	return b.focused
}

func (b *LibBrowser) KeyMap() LibBrowserKeyMap {
	return b.keyMap
}

// SelectedNode returns the node under the cursor, or nil.
func (b *LibBrowser) SelectedNode() *TreeNode {
	if b.cursor < 0 || b.cursor >= len(b.flat) {
		return nil
	}
	return b.flat[b.cursor]
}
