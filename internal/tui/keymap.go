package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the editor
type KeyMap struct {
	// General
	Help key.Binding
	Quit key.Binding

	// Entries
	Open    key.Binding
	Refresh key.Binding

	// Views
	Pin     key.Binding
	Save    key.Binding
	Close   key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Back    key.Binding

	// Table cells
	EditCell  key.Binding
	NextCell  key.Binding
	PrevCell  key.Binding
	ApplyCell key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Pin: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pin"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Close: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("ctrl+w", "close"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous view"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "entries"),
		),
		EditCell: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "edit cell"),
		),
		NextCell: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next column"),
		),
		PrevCell: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous column"),
		),
		ApplyCell: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Save, k.Close, k.NextTab, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Refresh, k.Pin},
		{k.Save, k.Close, k.NextTab, k.PrevTab, k.Back},
		{k.EditCell, k.NextCell, k.PrevCell},
		{k.Help, k.Quit},
	}
}
