package session

import "github.com/kmarchand/navigator/internal/dialog"

// Mutation is a state change requested by the dispatcher. The caller applies
// the turn's mutations atomically via State.Apply after accepting the
// decision; the dispatcher itself never writes session state.
type Mutation interface {
	apply(*State)
}

// SetActiveList replaces the active option list. Any previous active list is
// discarded (pause first to keep it).
type SetActiveList struct {
	Set ActiveOptionSet
}

func (m SetActiveList) apply(s *State) {
	set := m.Set
	s.Active = &set
}

// ClearActiveList drops the active list without pausing it.
type ClearActiveList struct{}

func (ClearActiveList) apply(s *State) { s.Active = nil }

// PauseActiveList moves the active list into the snapshot slot with the given
// reason, replacing any previous snapshot. Pausing never destroys options.
type PauseActiveList struct {
	Reason PausedReason
}

func (m PauseActiveList) apply(s *State) {
	if s.Active == nil {
		return
	}
	s.Paused = &Snapshot{
		Options:        s.Active.Options,
		OriginalIntent: s.Active.OriginalIntent,
		Type:           s.Active.Type,
		TurnsSinceSet:  s.Active.TurnsSinceSet,
		PausedReason:   m.Reason,
	}
	s.Active = nil
}

// ResumePaused restores the paused snapshot as the active list with a fresh
// set identifier. The options keep their ids and order exactly.
type ResumePaused struct{}

func (ResumePaused) apply(s *State) {
	if s.Paused == nil {
		return
	}
	set := NewActiveOptionSet(s.Paused.Options, s.Paused.OriginalIntent, s.Paused.Type)
	s.Active = &set
	s.Paused = nil
}

// ClearPaused discards the snapshot explicitly.
type ClearPaused struct{}

func (ClearPaused) apply(s *State) { s.Paused = nil }

// SetConfirm records the yes/no question the next turn answers.
type SetConfirm struct {
	Confirm Confirm
}

func (m SetConfirm) apply(s *State) {
	c := m.Confirm
	s.PendingConfirm = &c
}

// ClearConfirm drops a pending confirmation.
type ClearConfirm struct{}

func (ClearConfirm) apply(s *State) { s.PendingConfirm = nil }

// SetStopSuppression arms the repeat-stop suppression window.
type SetStopSuppression struct {
	Turns int
}

func (m SetStopSuppression) apply(s *State) { s.StopSuppression = m.Turns }

// ResetStopSuppression clears the suppression window. Issued on the first
// non-exit input, before any tier logic runs.
type ResetStopSuppression struct{}

func (ResetStopSuppression) apply(s *State) { s.StopSuppression = 0 }

// LatchPend arms the focus latch for a surface that has not registered yet.
type LatchPend struct {
	AwaitedRef string
}

func (m LatchPend) apply(s *State) {
	s.Latch = FocusLatch{Phase: LatchPending, AwaitedRef: m.AwaitedRef}
}

// LatchResolve points the latch at a registered surface.
type LatchResolve struct {
	SurfaceID string
}

func (m LatchResolve) apply(s *State) {
	s.Latch = FocusLatch{Phase: LatchResolved, SurfaceID: m.SurfaceID}
}

// LatchSuspend pauses the latch on an explicit "return to chat options".
type LatchSuspend struct{}

func (LatchSuspend) apply(s *State) { s.Latch.Suspended = true }

// LatchClear drops the latch entirely.
type LatchClear struct{}

func (LatchClear) apply(s *State) { s.Latch = FocusLatch{} }

// PushReferent records a recently mentioned entity for pronoun grounding.
// The ring is newest-first and bounded.
type PushReferent struct {
	Referent dialog.Candidate
}

func (m PushReferent) apply(s *State) {
	// Re-mentioning moves an entity to the front instead of duplicating it.
	for i, r := range s.RecentReferents {
		if r.ID == m.Referent.ID {
			s.RecentReferents = append(s.RecentReferents[:i], s.RecentReferents[i+1:]...)
			break
		}
	}
	s.RecentReferents = append([]dialog.Candidate{m.Referent}, s.RecentReferents...)
	if len(s.RecentReferents) > maxRecentReferents {
		s.RecentReferents = s.RecentReferents[:maxRecentReferents]
	}
}

// TickCounters advances the per-turn counters exactly once per turn: the
// turn epoch, active/paused list ages, pending-latch wait (with TTL expiry),
// and the stop-suppression window.
type TickCounters struct{}

func (TickCounters) apply(s *State) {
	s.Turn++
	if s.Active != nil {
		s.Active.TurnsSinceSet++
	}
	if s.Paused != nil {
		s.Paused.TurnsSinceSet++
	}
	if s.Latch.Phase == LatchPending {
		s.Latch.TurnsWaiting++
		if s.Latch.TurnsWaiting >= s.latchTTL() {
			s.Latch = FocusLatch{}
		}
	}
	if s.StopSuppression > 0 {
		s.StopSuppression--
	}
}

// Apply applies the turn's mutations in order. The slice is the atomic unit:
// callers apply all of a turn's mutations or none.
func (s *State) Apply(muts []Mutation) {
	for _, m := range muts {
		m.apply(s)
	}
}
