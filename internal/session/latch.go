package session

import "github.com/kmarchand/navigator/internal/dialog"

// LatchPhase is the focus latch's position in its lifecycle.
type LatchPhase int

const (
	// LatchNone: no external surface engagement.
	LatchNone LatchPhase = iota
	// LatchPending: the chat layer selected a target whose surface has not
	// registered yet. Upgrades to resolved on a matching registration.
	LatchPending
	// LatchResolved: the user is engaged with a known surface.
	LatchResolved
)

// String returns a human-readable phase name.
func (p LatchPhase) String() string {
	switch p {
	case LatchPending:
		return "pending"
	case LatchResolved:
		return "resolved"
	default:
		return "none"
	}
}

// FocusLatch tracks which externally registered selectable surface the user
// is engaged with, independent of chat-level option lists. While engaged and
// not suspended, selection-style input must resolve against the latched
// surface's items, never a stale option list — that invariant is enforced by
// the dispatcher at every tier; the latch only tracks the engagement.
type FocusLatch struct {
	Phase LatchPhase `json:"phase"`
	// AwaitedRef is the stable surface reference a pending latch waits for.
	AwaitedRef string `json:"awaited_ref,omitempty"`
	// SurfaceID is the resolved surface.
	SurfaceID string `json:"surface_id,omitempty"`
	// Suspended pauses the latch after an explicit "return to chat options".
	Suspended bool `json:"suspended,omitempty"`
	// TurnsWaiting counts turns spent pending without a registration.
	TurnsWaiting int `json:"turns_waiting,omitempty"`
}

// Engaged reports whether the latch currently overrides chat-level lists.
func (l FocusLatch) Engaged() bool {
	return (l.Phase == LatchResolved || l.Phase == LatchPending) && !l.Suspended
}

// Register records an external surface and upgrades a matching pending latch
// to resolved. It mutates the state directly: registration arrives from the
// widget layer, not from a dispatcher decision, so it is not a Mutation.
// It returns true when the latch transitioned.
func (s *State) Register(surfaceID, stableRef string, items []dialog.ClarificationOption) bool {
	if s.Surfaces == nil {
		s.Surfaces = make(map[string]RegisteredSurface)
	}
	s.Surfaces[surfaceID] = RegisteredSurface{
		SurfaceID: surfaceID,
		StableRef: stableRef,
		Items:     items,
	}

	if s.Latch.Phase == LatchPending && stableRef != "" && s.Latch.AwaitedRef == stableRef {
		s.Latch = FocusLatch{
			Phase:     LatchResolved,
			SurfaceID: surfaceID,
			Suspended: s.Latch.Suspended,
		}
		return true
	}
	return false
}

// Unregister removes a surface. A latch resolved onto the closing surface is
// cleared; a pending latch awaiting its stable reference is cleared too.
// It returns true when the latch transitioned.
func (s *State) Unregister(surfaceID string) bool {
	reg, had := s.Surfaces[surfaceID]
	delete(s.Surfaces, surfaceID)

	switch {
	case s.Latch.Phase == LatchResolved && s.Latch.SurfaceID == surfaceID:
		s.Latch = FocusLatch{}
		return true
	case s.Latch.Phase == LatchPending && had && reg.StableRef != "" && s.Latch.AwaitedRef == reg.StableRef:
		s.Latch = FocusLatch{}
		return true
	}
	return false
}
