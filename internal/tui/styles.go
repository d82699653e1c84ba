package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the pre-computed lipgloss styles for the REPL. Keeping them in
// one place separates visual styling from the update/view logic.
type Styles struct {
	// Header is the title bar with the session id.
	Header lipgloss.Style

	// UserLine renders the echoed user input.
	UserLine lipgloss.Style

	// Prompt renders clarify and disambiguation prompts.
	Prompt lipgloss.Style

	// Action renders execute decisions.
	Action lipgloss.Style

	// Selection renders select decisions.
	Selection lipgloss.Style

	// Retrieval renders deferred queries.
	Retrieval lipgloss.Style

	// Pill renders one option in an offered list.
	Pill lipgloss.Style

	// PillBadge renders the option's ordinal badge inside a pill.
	PillBadge lipgloss.Style

	// Trace renders the per-turn tier trace line.
	Trace lipgloss.Style

	// Footer wraps the help line.
	Footer lipgloss.Style
}

func defaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1),
		UserLine: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")),
		Prompt: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Action: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")),
		Selection: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),
		Retrieval: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("245")),
		Pill: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			MarginRight(1),
		PillBadge: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")),
		Trace: lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("243")),
		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}
