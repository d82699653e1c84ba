package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/dispatch"
)

// badgeLetters label offered options the same way selection input accepts
// them.
const badgeLetters = "abcdefghijkl"

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "starting…"
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render("navigator · " + shortID(m.state.ID)))
	b.WriteString("\n\n")

	for _, e := range m.entries {
		b.WriteString(m.renderEntry(e))
	}
	if m.waiting {
		b.WriteString(m.styles.Trace.Render("thinking…"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderEntry(e entry) string {
	switch e.kind {
	case entryUser:
		return m.styles.UserLine.Render("you: "+e.text) + "\n"
	case entryDecision:
		return m.renderDecision(e.decision)
	case entryInfo:
		return m.styles.Trace.Render(e.text) + "\n"
	}
	return ""
}

func (m Model) renderDecision(dec dispatch.Decision) string {
	var b strings.Builder
	if m.showTrace {
		b.WriteString(m.styles.Trace.Render(fmt.Sprintf("tier %d · %s", dec.Tier, dec.Kind)))
		b.WriteString("\n")
	}

	switch dec.Kind {
	case dispatch.KindExecute:
		label := dec.Action.ID
		if dec.Action.Label != "" {
			label = dec.Action.Label
		}
		b.WriteString(m.styles.Action.Render("→ " + label))
		b.WriteString("\n")

	case dispatch.KindSelect:
		switch {
		case dec.Option != nil:
			b.WriteString(m.styles.Selection.Render("✓ " + dec.Option.Label))
		case dec.Candidate != nil:
			b.WriteString(m.styles.Selection.Render("✓ " + dec.Candidate.Label))
		}
		b.WriteString("\n")

	case dispatch.KindClarify:
		b.WriteString(m.styles.Prompt.Render(dec.Prompt))
		b.WriteString("\n")
		if len(dec.Options) > 0 {
			b.WriteString(m.renderPills(dec.Options))
			b.WriteString("\n")
		}

	case dispatch.KindAmbiguous:
		b.WriteString(m.styles.Prompt.Render(dec.Prompt))
		b.WriteString("\n")
		opts := make([]dialog.ClarificationOption, 0, len(dec.Candidates))
		for _, c := range dec.Candidates {
			opts = append(opts, dialog.ClarificationOption{ID: c.ID, Label: c.Label})
		}
		b.WriteString(m.renderPills(opts))
		b.WriteString("\n")

	case dispatch.KindRetrieve:
		b.WriteString(m.styles.Retrieval.Render("searching: " + dec.Query))
		b.WriteString("\n")
	}
	return b.String()
}

// renderPills draws an offered option list as one row of badge-labelled
// pills.
func (m Model) renderPills(opts []dialog.ClarificationOption) string {
	pills := make([]string, 0, len(opts))
	for i, opt := range opts {
		badge := "?"
		if i < len(badgeLetters) {
			badge = string(badgeLetters[i])
		}
		pills = append(pills, m.styles.Pill.Render(
			m.styles.PillBadge.Render(badge)+" "+opt.Label,
		))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, pills...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
