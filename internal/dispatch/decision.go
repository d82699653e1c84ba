package dispatch

import "github.com/kmarchand/navigator/internal/dialog"

// Kind tags which variant of the decision union a turn produced.
type Kind string

const (
	// KindExecute carries a concrete action for the caller to perform.
	KindExecute Kind = "execute"
	// KindSelect resolves the turn to a previously offered option or
	// grounding candidate.
	KindSelect Kind = "select"
	// KindClarify asks the user a question, optionally with options.
	KindClarify Kind = "ask_clarify"
	// KindAmbiguous asks the user to disambiguate between named candidates.
	KindAmbiguous Kind = "ambiguous"
	// KindRetrieve defers the input to the general retrieval/answer path.
	KindRetrieve Kind = "defer_to_retrieval"
)

// Reserved action identifiers the caller interprets itself rather than
// routing to a panel.
const (
	// ActionExit ends the session.
	ActionExit = "session.exit"
)

// Action is what an execute decision asks the caller to perform. The
// dispatcher never performs the effect itself.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
	// Preview asks the caller to open the target in preview mode.
	Preview bool `json:"preview,omitempty"`
}

// Decision is the single outcome of one dispatched turn. Exactly one variant
// is populated, tagged by Kind; Tier records which tier produced it.
type Decision struct {
	Kind Kind `json:"kind"`
	Tier int  `json:"tier"`

	// Action is set for KindExecute.
	Action *Action `json:"action,omitempty"`

	// Option is set for KindSelect when the selection came from an option
	// list; SetID names the list, SurfaceID the widget surface when the
	// selection resolved against a latched surface instead.
	Option    *dialog.ClarificationOption `json:"option,omitempty"`
	SetID     string                      `json:"set_id,omitempty"`
	SurfaceID string                      `json:"surface_id,omitempty"`
	// Candidate is set for KindSelect when the selection came from a
	// grounding set rather than a displayed list.
	Candidate *dialog.Candidate `json:"candidate,omitempty"`

	// Prompt is the user-facing text for KindClarify and KindAmbiguous.
	Prompt string `json:"prompt,omitempty"`
	// Options accompany a clarify prompt when the user should pick from a
	// list.
	Options []dialog.ClarificationOption `json:"options,omitempty"`
	// Candidates accompany KindAmbiguous.
	Candidates []dialog.Candidate `json:"candidates,omitempty"`

	// Query is the text forwarded on KindRetrieve.
	Query string `json:"query,omitempty"`
}

func execute(tier int, action Action) Decision {
	return Decision{Kind: KindExecute, Tier: tier, Action: &action}
}

func selectOption(tier int, opt dialog.ClarificationOption, setID string) Decision {
	return Decision{Kind: KindSelect, Tier: tier, Option: &opt, SetID: setID}
}

func selectLatched(tier int, opt dialog.ClarificationOption, surfaceID string) Decision {
	return Decision{Kind: KindSelect, Tier: tier, Option: &opt, SurfaceID: surfaceID}
}

func selectCandidate(tier int, cand dialog.Candidate) Decision {
	return Decision{Kind: KindSelect, Tier: tier, Candidate: &cand}
}

func clarify(tier int, prompt string, options ...dialog.ClarificationOption) Decision {
	return Decision{Kind: KindClarify, Tier: tier, Prompt: prompt, Options: options}
}

func ambiguous(tier int, prompt string, candidates []dialog.Candidate) Decision {
	return Decision{Kind: KindAmbiguous, Tier: tier, Prompt: prompt, Candidates: candidates}
}

func retrieve(tier int, query string) Decision {
	return Decision{Kind: KindRetrieve, Tier: tier, Query: query}
}
