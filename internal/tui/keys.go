package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the key bindings for the TUI.
type KeyMap struct {
	// Atmosphere
	Start      key.Binding
	NextMode   key.Binding
	PrevMode   key.Binding
	Silence    key.Binding
	Wind       key.Binding
	Ocean      key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Mute       key.Binding

	// Pages
	Pages key.Binding
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Copy  key.Binding

	// Global
	Refresh key.Binding
	Quit    key.Binding
	Help    key.Binding
}

// ShortHelp returns a short help message.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextMode, k.Mute, k.Pages, k.Help, k.Quit}
}

// FullHelp returns a full help message.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.NextMode, k.PrevMode, k.Silence, k.Wind, k.Ocean},
		{k.VolumeUp, k.VolumeDown, k.Mute},
		{k.Pages, k.Up, k.Down, k.Enter, k.Back, k.Copy},
		{k.Refresh, k.Help, k.Quit},
	}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "start"),
		),
		NextMode: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab/→", "next atmosphere"),
		),
		PrevMode: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("⇧tab/←", "previous atmosphere"),
		),
		Silence: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "raw"),
		),
		Wind: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "atmosphere"),
		),
		Ocean: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "water"),
		),
		VolumeUp: key.NewBinding(
			key.WithKeys("+", "=", "up", "k"),
			key.WithHelp("+/↑", "volume up"),
		),
		VolumeDown: key.NewBinding(
			key.WithKeys("-", "down", "j"),
			key.WithHelp("-/↓", "volume down"),
		),
		Mute: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute"),
		),
		Pages: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pages"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open page"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy page text"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}
