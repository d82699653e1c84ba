package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/dispatch"
	"github.com/kmarchand/navigator/internal/session"
)

// turnTimeout bounds one dispatched turn, classifier call included.
const turnTimeout = 5 * time.Second

// decisionMsg carries a finished turn back into the update loop.
type decisionMsg struct {
	seq  int
	dec  dispatch.Decision
	muts []session.Mutation
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.entries = nil
			return m, nil
		case key.Matches(msg, m.keys.Trace):
			m.showTrace = !m.showTrace
			return m, nil
		case key.Matches(msg, m.keys.Send):
			return m.sendTurn()
		}

	case decisionMsg:
		if msg.seq != m.seq {
			// A newer turn superseded this one.
			return m, nil
		}
		m.waiting = false
		m.state.Apply(msg.muts)
		m.entries = append(m.entries, entry{kind: entryDecision, decision: msg.dec})
		if msg.dec.Kind == dispatch.KindExecute && msg.dec.Action != nil &&
			msg.dec.Action.ID == dispatch.ActionExit {
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// sendTurn dispatches the current input as a turn.
func (m Model) sendTurn() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.waiting {
		return m, nil
	}
	m.input.Reset()
	m.seq++
	m.waiting = true
	m.entries = append(m.entries, entry{kind: entryUser, text: text})
	return m, m.dispatchCmd(m.seq, text)
}

// dispatchCmd runs one turn off the update loop. The state pointer is only
// read by the dispatcher; mutations are applied when the decision message
// comes back.
func (m Model) dispatchCmd(seq int, text string) tea.Cmd {
	dispatcher := m.dispatcher
	st := m.state
	in := dialog.TurnInput{Raw: text, Flags: m.flags}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()
		dec, muts := dispatcher.Dispatch(ctx, in, st)
		return decisionMsg{seq: seq, dec: dec, muts: muts}
	}
}
