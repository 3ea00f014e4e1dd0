package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/dewi-tim/looptui/internal/ui/components"
)

// KeyMap defines the global key bindings. They work regardless of focus,
// so none of them may collide with a panel's own keys.
type KeyMap struct {
	// Playback
	PlayPause    key.Binding
	SeekForward  key.Binding
	SeekBackward key.Binding
	SeekPercent  key.Binding
	VolumeUp     key.Binding
	VolumeDown   key.Binding
	Repeat       key.Binding
	NextTrack    key.Binding
	PrevTrack    key.Binding

	// Loop
	ToggleLoop    key.Binding
	EditLoop      key.Binding
	QuickLoop     key.Binding
	LoopStartHere key.Binding
	LoopEndHere   key.Binding
	StartEarlier  key.Binding
	StartLater    key.Binding
	EndEarlier    key.Binding
	EndLater      key.Binding

	// Tempo
	EditTempo  key.Binding
	TempoDown  key.Binding
	TempoUp    key.Binding
	TempoReset key.Binding
	TempoCycle key.Binding

	// Sections
	Split key.Binding

	// Interface
	TabFocus key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		PlayPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		SeekForward: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "+5s"),
		),
		SeekBackward: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "-5s"),
		),
		SeekPercent: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "seek to 0-90%"),
		),
		VolumeUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "vol+"),
		),
		VolumeDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "vol-"),
		),
		Repeat: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "repeat track"),
		),

		ToggleLoop: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "loop on/off"),
		),
		EditLoop: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit loop"),
		),
		QuickLoop: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "loop around playhead"),
		),
		LoopStartHere: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "loop start here"),
		),
		LoopEndHere: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "loop end here"),
		),
		StartEarlier: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "start -1s"),
		),
		StartLater: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "start +1s"),
		),
		EndEarlier: key.NewBinding(
			key.WithKeys("{"),
			key.WithHelp("{", "end -1s"),
		),
		EndLater: key.NewBinding(
			key.WithKeys("}"),
			key.WithHelp("}", "end +1s"),
		),

		EditTempo: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "set tempo"),
		),
		TempoDown: key.NewBinding(
			key.WithKeys("<"),
			key.WithHelp("<", "tempo -5%"),
		),
		TempoUp: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "tempo +5%"),
		),
		TempoReset: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "tempo 100%"),
		),
		TempoCycle: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "next tempo preset"),
		),

		Split: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "split into sections"),
		),

		NextTrack: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next track"),
		),
		PrevTrack: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "previous track"),
		),

		TabFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "focus"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.PlayPause,
		k.ToggleLoop,
		k.EditLoop,
		k.EditTempo,
		k.Split,
		k.Help,
		k.Quit,
	}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.SeekForward, k.SeekBackward, k.SeekPercent, k.VolumeUp, k.VolumeDown, k.Repeat, k.NextTrack, k.PrevTrack},
		{k.ToggleLoop, k.EditLoop, k.QuickLoop, k.LoopStartHere, k.LoopEndHere, k.StartEarlier, k.StartLater, k.EndEarlier, k.EndLater},
		{k.EditTempo, k.TempoDown, k.TempoUp, k.TempoReset, k.TempoCycle},
		{k.Split, k.TabFocus, k.Help, k.Quit},
	}
}

// helpGroups lists every binding, panel ones included, for the help popup.
func helpGroups(k KeyMap) []components.HelpGroup {
	full := k.FullHelp()
	b := components.DefaultBrowserKeyMap()
	s := components.DefaultSectionListKeyMap()
	l := components.DefaultLibBrowserKeyMap()
	p := components.DefaultPlaylistKeyMap()

	return []components.HelpGroup{
		{Title: "Playback", Bindings: full[0]},
		{Title: "Loop", Bindings: full[1]},
		{Title: "Tempo", Bindings: full[2]},
		{Title: "General", Bindings: full[3]},
		{Title: "Files", Bindings: []key.Binding{b.Up, b.Down, b.GoToTop, b.GoToBottom, b.Open, b.Back, b.ToggleHidden}},
		{Title: "Library", Bindings: []key.Binding{l.Enter, l.Back, l.Rescan}},
		{Title: "Sections", Bindings: []key.Binding{s.Up, s.Down, s.Select, s.Remove, s.Clear}},
		{Title: "Playlist", Bindings: []key.Binding{p.Up, p.Down, p.Select, p.Remove, p.Clear}},
	}
}
