// Package dialog defines the shared data model for the turn-by-turn routing
// core: options shown to the user, grounding candidates, widget surfaces, and
// the per-turn input envelope. These types are consumed by the matchers, the
// grounding builder, the session state machines, and the dispatcher.
package dialog

// OptionKind distinguishes options the caller can act on from purely
// descriptive entries in a clarification list.
type OptionKind string

const (
	// OptionExecutable options carry an action the caller performs on select.
	OptionExecutable OptionKind = "executable"
	// OptionDescriptive options only narrow the conversation; selecting one
	// produces a follow-up clarification rather than an action.
	OptionDescriptive OptionKind = "descriptive"
)

// ClarificationOption is a single entry in an option list shown to the user.
// Options are immutable once shown: the dispatcher never rewrites a label or
// id after the list has been displayed.
type ClarificationOption struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Kind  OptionKind `json:"kind"`
}

// CandidateKind is the closed set of candidate shapes a grounding set may
// contain. Keeping the union closed lets matchers branch exhaustively.
type CandidateKind string

const (
	// CandidateAction is a selectable option that executes something.
	CandidateAction CandidateKind = "action"
	// CandidateReferent is a recently mentioned entity ("it", "that one").
	CandidateReferent CandidateKind = "referent"
	// CandidateCapability is a system capability offered as a suggestion.
	CandidateCapability CandidateKind = "capability"
)

// Candidate is one entry of a grounding set.
type Candidate struct {
	ID    string        `json:"id"`
	Label string        `json:"label"`
	Kind  CandidateKind `json:"kind"`
}

// SourceKind identifies where a grounding set's candidates came from.
type SourceKind string

const (
	SourceActiveList      SourceKind = "active_list"
	SourceWidgetList      SourceKind = "widget_list"
	SourcePausedList      SourceKind = "paused_list"
	SourceRecentReferents SourceKind = "recent_referents"
	SourceCapabilities    SourceKind = "capabilities"
)

// GroundingSet is a ranked, capped candidate list built fresh each turn. It is
// the search space handed to the strict resolver and, on miss, to the
// constrained classifier.
type GroundingSet struct {
	// IsList marks sets that represent a visible, enumerable list (widget or
	// paused options) as opposed to loose referents or capabilities.
	IsList     bool        `json:"is_list"`
	Candidates []Candidate `json:"candidates"`
	Source     SourceKind  `json:"source"`
}

// OpenWidget describes an externally rendered selectable surface that is
// currently open, as reported by the UI layer each turn.
type OpenWidget struct {
	// SurfaceID is an opaque identifier assigned per widget instance.
	SurfaceID string `json:"surface_id"`
	// StableRef is an optional reference that survives re-mounts of the same
	// logical surface; the focus latch awaits registrations by StableRef.
	StableRef string `json:"stable_ref,omitempty"`
	// Items are the widget's currently selectable entries.
	Items []ClarificationOption `json:"items"`
}

// SessionFlags carries per-session toggles supplied by the caller.
type SessionFlags struct {
	// PreviewEnabled allows preview shortcuts on Tier 2.
	PreviewEnabled bool `json:"preview_enabled"`
	// RetrievalEnabled gates the terminal retrieval fallback; when false the
	// terminal tier answers with a capability clarification instead.
	RetrievalEnabled bool `json:"retrieval_enabled"`
}

// TurnInput is the per-turn envelope handed to the dispatcher. It is created
// at the start of a turn and discarded when the decision is returned.
type TurnInput struct {
	// Raw is the user's text exactly as typed.
	Raw string `json:"raw"`
	// Normalized is the matcher-normalized form of Raw. The dispatcher fills
	// this in before tier evaluation; tiers that must not see a transformed
	// copy (the strict grounding resolver) read Raw instead.
	Normalized string `json:"normalized"`
	// Widgets are the external surfaces currently open.
	Widgets []OpenWidget `json:"widgets,omitempty"`
	// Flags are the session toggles in effect for this turn.
	Flags SessionFlags `json:"flags"`
}

// OptionsToCandidates converts an option list into action candidates,
// preserving order.
func OptionsToCandidates(opts []ClarificationOption) []Candidate {
	out := make([]Candidate, 0, len(opts))
	for _, o := range opts {
		out = append(out, Candidate{ID: o.ID, Label: o.Label, Kind: CandidateAction})
	}
	return out
}

// CandidateByID returns the candidate with the given id, if present.
func CandidateByID(cands []Candidate, id string) (Candidate, bool) {
	for _, c := range cands {
		if c.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}
