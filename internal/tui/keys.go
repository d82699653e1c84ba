package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the REPL's keyboard shortcuts. It implements the help.KeyMap
// interface for automatic help text generation.
type KeyMap struct {
	// Send dispatches the current input as a turn.
	Send key.Binding

	// Clear resets the visible transcript.
	Clear key.Binding

	// Trace toggles the per-turn tier trace line.
	Trace key.Binding

	// Quit exits the REPL.
	Quit key.Binding
}

// DefaultKeyMap returns the default shortcuts.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear transcript"),
		),
		Trace: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "toggle trace"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Trace, k.Quit}
}

// FullHelp returns all bindings grouped for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Clear},
		{k.Trace, k.Quit},
	}
}
