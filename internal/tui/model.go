// Package tui is the interactive terminal REPL over the dispatcher. It is a
// debugging surface: turns go in through a text input, decisions come back as
// rendered transcript entries with optional per-tier trace lines.
package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/dispatch"
	"github.com/kmarchand/navigator/internal/session"
)

// Config holds what the REPL needs to run.
type Config struct {
	// Dispatcher routes the turns. Required.
	Dispatcher *dispatch.Dispatcher

	// Flags are the session flags applied to every turn.
	Flags dialog.SessionFlags

	// LatchTTL bounds pending focus-latch waits; zero uses the session
	// default.
	LatchTTL int

	// Log receives REPL diagnostics.
	Log zerolog.Logger
}

type entryKind int

const (
	entryUser entryKind = iota
	entryDecision
	entryInfo
)

// entry is one transcript line group.
type entry struct {
	kind     entryKind
	text     string
	decision dispatch.Decision
}

// Model is the Bubble Tea model for the REPL. It owns the session state and
// applies dispatcher mutations as decisions arrive.
type Model struct {
	dispatcher *dispatch.Dispatcher
	state      *session.State
	flags      dialog.SessionFlags
	log        zerolog.Logger

	input  textinput.Model
	help   help.Model
	keys   KeyMap
	styles Styles

	entries   []entry
	width     int
	height    int
	ready     bool
	waiting   bool
	showTrace bool

	// seq numbers dispatched turns; a decision for an older seq is stale
	// and dropped.
	seq int
}

// NewModel builds the initial REPL model.
func NewModel(cfg Config) Model {
	input := textinput.New()
	input.Placeholder = "say something"
	input.Prompt = "› "
	input.CharLimit = 512
	input.Focus()

	st := session.New()
	st.LatchTTL = cfg.LatchTTL

	return Model{
		dispatcher: cfg.Dispatcher,
		state:      st,
		flags:      cfg.Flags,
		log:        cfg.Log,
		input:      input,
		help:       help.New(),
		keys:       DefaultKeyMap(),
		styles:     defaultStyles(),
		showTrace:  true,
	}
}

// Run starts the REPL and blocks until it exits.
func Run(cfg Config) error {
	p := tea.NewProgram(NewModel(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
