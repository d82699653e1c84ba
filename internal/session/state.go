// Package session holds the per-conversation state the dispatcher reads:
// the active option list, the paused snapshot, the focus latch, pending
// confirmations, and the turn counters. The dispatcher never mutates state
// directly; it returns Mutation requests that the caller applies atomically
// through State.Apply once the turn's decision is accepted.
package session

import (
	"github.com/google/uuid"

	"github.com/kmarchand/navigator/internal/dialog"
)

// PausedReason records why an option list was paused. The reason changes
// downstream policy: interrupt-paused lists may accept ordinals when no
// competing list context exists; stop-paused lists never resume without an
// explicit return phrase.
type PausedReason string

const (
	PausedInterrupt PausedReason = "interrupt"
	PausedStop      PausedReason = "stop"
)

// ActiveOptionSet is the option list currently awaiting a selection. SetID is
// generated when the list is shown and must match between display and
// selection so a stale list cannot be coincidentally revived.
type ActiveOptionSet struct {
	SetID          string                       `json:"set_id"`
	Options        []dialog.ClarificationOption `json:"options"`
	OriginalIntent string                       `json:"original_intent"`
	Type           string                       `json:"type"`
	TurnsSinceSet  int                          `json:"turns_since_set"`
}

// NewActiveOptionSet assigns a fresh set identifier to an option list.
func NewActiveOptionSet(options []dialog.ClarificationOption, intent, typ string) ActiveOptionSet {
	return ActiveOptionSet{
		SetID:          uuid.NewString(),
		Options:        options,
		OriginalIntent: intent,
		Type:           typ,
	}
}

// Snapshot is a paused, not discarded, option list retained for an explicit
// later return. At most one exists per conversation; it never expires on its
// own and is removed only by replace or clear.
type Snapshot struct {
	Options        []dialog.ClarificationOption `json:"options"`
	OriginalIntent string                       `json:"original_intent"`
	Type           string                       `json:"type"`
	TurnsSinceSet  int                          `json:"turns_since_set"`
	PausedReason   PausedReason                 `json:"paused_reason"`
}

// ConfirmKind tags what a pending yes/no confirmation is about.
type ConfirmKind string

const (
	// ConfirmExit asks whether an ambiguous stop meant "end the session".
	ConfirmExit ConfirmKind = "exit"
	// ConfirmReturn asks whether the user wants the paused options back.
	ConfirmReturn ConfirmKind = "return"
	// ConfirmCommand asks whether a near-match command was intended.
	ConfirmCommand ConfirmKind = "command"
)

// Confirm is a pending yes/no question the next turn must answer.
type Confirm struct {
	Kind ConfirmKind `json:"kind"`
	// ActionID is set for ConfirmCommand: the action to run on "yes".
	ActionID string `json:"action_id,omitempty"`
	// Label is the human-readable subject of the confirmation.
	Label string `json:"label,omitempty"`
}

// RegisteredSurface is an external widget surface announced through the
// registration API. Registrations outlive individual turns; the per-turn
// open-widget report in TurnInput may lag them.
type RegisteredSurface struct {
	SurfaceID string                       `json:"surface_id"`
	StableRef string                       `json:"stable_ref,omitempty"`
	Items     []dialog.ClarificationOption `json:"items"`
}

// DefaultLatchTTL is how many unresolved turns a pending latch survives
// before it expires gracefully.
const DefaultLatchTTL = 3

// maxRecentReferents bounds the referent ring the grounding builder reads.
const maxRecentReferents = 8

// State is the session-scoped conversation state. It is a plain value owned
// by the caller; the dispatcher reads it and requests changes via mutations.
type State struct {
	ID string `json:"id"`

	// Active is the option list awaiting selection, if any.
	Active *ActiveOptionSet `json:"active,omitempty"`
	// Paused is the at-most-one paused snapshot.
	Paused *Snapshot `json:"paused,omitempty"`
	// Latch tracks engagement with an external selectable surface.
	Latch FocusLatch `json:"latch"`
	// LatchTTL bounds how many turns a pending latch may wait. Zero means
	// DefaultLatchTTL.
	LatchTTL int `json:"latch_ttl,omitempty"`

	// PendingConfirm is the yes/no question the next turn answers, if any.
	PendingConfirm *Confirm `json:"pending_confirm,omitempty"`
	// StopSuppression counts turns during which a repeated stop gets a short
	// acknowledgement instead of another confirm prompt.
	StopSuppression int `json:"stop_suppression,omitempty"`

	// Surfaces are the externally registered widget surfaces, by SurfaceID.
	Surfaces map[string]RegisteredSurface `json:"surfaces,omitempty"`
	// RecentReferents is a bounded ring of recently mentioned entities,
	// newest first.
	RecentReferents []dialog.Candidate `json:"recent_referents,omitempty"`

	// Turn counts processed turns and doubles as the supersession epoch for
	// in-flight classifier calls.
	Turn int `json:"turn"`
}

// New creates an empty session state with a fresh identifier.
func New() *State {
	return &State{
		ID:       uuid.NewString(),
		Surfaces: make(map[string]RegisteredSurface),
	}
}

// latchTTL returns the effective pending-latch TTL.
func (s *State) latchTTL() int {
	if s.LatchTTL > 0 {
		return s.LatchTTL
	}
	return DefaultLatchTTL
}

// HasListContext reports whether any list-like context competes for ordinal
// input this turn: a visible active list or an open widget list.
func (s *State) HasListContext(widgets []dialog.OpenWidget) bool {
	if s.Active != nil && len(s.Active.Options) > 0 {
		return true
	}
	for _, w := range widgets {
		if len(w.Items) > 0 {
			return true
		}
	}
	return false
}

// LatchedItems returns the selectable items of the latched surface when the
// latch is engaged (resolved or pending, not suspended). The per-turn widget
// report wins over the stored registration when both exist.
func (s *State) LatchedItems(widgets []dialog.OpenWidget) ([]dialog.ClarificationOption, string, bool) {
	if !s.Latch.Engaged() {
		return nil, "", false
	}
	surfaceID := s.Latch.SurfaceID
	if s.Latch.Phase == LatchPending {
		// A pending latch can still shadow stale lists if the awaited surface
		// already reports items this turn.
		for _, w := range widgets {
			if w.StableRef != "" && w.StableRef == s.Latch.AwaitedRef {
				return w.Items, w.SurfaceID, true
			}
		}
		for _, reg := range s.Surfaces {
			if reg.StableRef != "" && reg.StableRef == s.Latch.AwaitedRef {
				return reg.Items, reg.SurfaceID, true
			}
		}
		return nil, "", false
	}
	for _, w := range widgets {
		if w.SurfaceID == surfaceID {
			return w.Items, surfaceID, true
		}
	}
	if reg, ok := s.Surfaces[surfaceID]; ok {
		return reg.Items, surfaceID, true
	}
	return nil, "", false
}

// Clone returns a deep copy. The dispatcher works against a clone in tests to
// prove it never writes through the pointer it was handed.
func (s *State) Clone() *State {
	cp := *s
	if s.Active != nil {
		a := *s.Active
		a.Options = append([]dialog.ClarificationOption(nil), s.Active.Options...)
		cp.Active = &a
	}
	if s.Paused != nil {
		p := *s.Paused
		p.Options = append([]dialog.ClarificationOption(nil), s.Paused.Options...)
		cp.Paused = &p
	}
	if s.PendingConfirm != nil {
		c := *s.PendingConfirm
		cp.PendingConfirm = &c
	}
	cp.Surfaces = make(map[string]RegisteredSurface, len(s.Surfaces))
	for k, v := range s.Surfaces {
		v.Items = append([]dialog.ClarificationOption(nil), v.Items...)
		cp.Surfaces[k] = v
	}
	cp.RecentReferents = append([]dialog.Candidate(nil), s.RecentReferents...)
	return &cp
}
