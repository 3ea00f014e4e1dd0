package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dewi-tim/looptui/internal/library"
	"github.com/dewi-tim/looptui/internal/player"
	"github.com/dewi-tim/looptui/internal/session"
	"github.com/dewi-tim/looptui/internal/ui/components"
)

// Focus represents which panel is currently focused.
type Focus int

const (
	FocusBrowser Focus = iota
	FocusLibrary
	FocusSections
	FocusPlaylist
)

const (
	seekStep   = 5.0
	volumeStep = 0.05
	tempoStep  = 5
	nudgeStep  = 1.0
	tickEvery  = 100 * time.Millisecond
)

// Options configures the front-end.
type Options struct {
	StartDir      string
	LibraryRoot   string // empty disables the library panel
	SectionCount  int
	SectionLength time.Duration
	QuickLoop     float64 // seconds; 0 means session.DefaultLoopWidth
	InitialPath   string
}

// promptKind identifies what the footer text inputs edit.
type promptKind int

const (
	promptNone promptKind = iota
	promptLoop
	promptTempo
	promptSections
)

// prompt is an in-progress text entry in the footer.
type prompt struct {
	kind   promptKind
	inputs []textinput.Model
	active int
}

// Model is the main Bubbletea model for looptui.
type Model struct {
	sess   *session.Session
	states <-chan player.PlaybackState
	opts   Options

	// Window dimensions
	width  int
	height int

	focus     Focus
	leftPanel Focus // browser or library, whichever was focused last

	// UI Components
	browser   components.Browser
	library   *components.LibBrowser
	sections  components.SectionList
	playlist  components.Playlist
	progress  components.ProgressBar
	helpPopup components.HelpPopup
	help      help.Model

	keyMap KeyMap
	styles Styles

	// Latest snapshot of the session
	state  player.PlaybackState
	volume float64

	prompt prompt

	lastError  string
	errorTime  time.Time
	notice     string
	noticeTime time.Time
	quitting   bool
}

// New creates a Model driving sess.
func New(sess *session.Session, opts Options) Model {
	if opts.SectionCount < 1 {
		opts.SectionCount = 4
	}
	if opts.SectionLength <= 0 {
		opts.SectionLength = 30 * time.Second
	}
	if opts.QuickLoop <= 0 {
		opts.QuickLoop = session.DefaultLoopWidth
	}

	keys := DefaultKeyMap()
	m := Model{
		sess:      sess,
		opts:      opts,
		focus:     FocusBrowser,
		leftPanel: FocusBrowser,
		browser:   components.NewBrowser(opts.StartDir),
		sections:  components.NewSectionList(),
		playlist:  components.NewPlaylist(),
		progress:  components.NewProgressBar(),
		helpPopup: components.NewHelpPopup(helpGroups(keys)),
		help:      help.New(),
		keyMap:    keys,
		styles:    DefaultStyles(),
		state:     sess.State(),
		states:    sess.Subscribe(),
	}
	m.refresh(m.state)
	if opts.LibraryRoot != "" {
		m.library = components.NewLibBrowser(library.New(opts.LibraryRoot))
	}
	m.browser.Focus()
	return m
}

// Init starts reading the start directory and listening for playback
// snapshots.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.browser.Init(),
		waitForState(m.states),
		tickCmd(),
	}
	if m.library != nil {
		cmds = append(cmds, m.library.Init())
	}
	if m.opts.InitialPath != "" {
		cmds = append(cmds, loadCmd(m.sess, m.opts.InitialPath))
	}
	return tea.Batch(cmds...)
}

// tickCmd refreshes the parts of the view that change without a playback
// snapshot, such as BPM results and pause/seek state.
func tickCmd() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Width returns the current window width.
func (m Model) Width() int {
	return m.width
}

// Height returns the current window height.
func (m Model) Height() int {
	return m.height
}

// Focus returns the currently focused panel.
func (m Model) Focus() Focus {
	return m.focus
}

// Prompting reports whether a text entry is open.
func (m Model) Prompting() bool {
	return m.prompt.kind != promptNone
}

// State returns the last playback snapshot the model has seen.
func (m Model) State() player.PlaybackState {
	return m.state
}
