// Package grounding assembles the ranked, capped candidate sets a turn's
// selection-style input is resolved against. Sets are rebuilt from scratch
// every turn in a fixed precedence so the search space never drifts from what
// the user can actually see or refer to.
package grounding

import (
	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/session"
)

const (
	// ListCap bounds list-type sets (visible option or widget lists).
	ListCap = 12
	// ReferentCap bounds referent and capability sets.
	ReferentCap = 5
)

// Policy resolves the precedence between a paused snapshot and an open widget
// list when both exist. The source material leaves this underspecified, so it
// is configuration rather than a hard-coded order.
type Policy string

const (
	// PolicyWidgetFirst ranks open widget lists above the paused snapshot.
	PolicyWidgetFirst Policy = "widget_first"
	// PolicySnapshotFirst ranks the paused snapshot above widget lists.
	PolicySnapshotFirst Policy = "snapshot_first"
)

// BuildContext carries everything the builder may draw candidates from.
type BuildContext struct {
	// Active is the chat-level option list awaiting selection, if any.
	Active *session.ActiveOptionSet
	// Widgets are the externally open surfaces reported this turn.
	Widgets []dialog.OpenWidget
	// Paused is the paused snapshot, if any.
	Paused *session.Snapshot
	// Recent are recently mentioned referents, newest first.
	Recent []dialog.Candidate
	// Capabilities are system capabilities offered as a last-resort ground.
	Capabilities []dialog.Candidate
	// Policy orders widgets against the paused snapshot. Empty means
	// PolicyWidgetFirst.
	Policy Policy
}

// Build assembles the turn's grounding sets in precedence order, enforcing
// both caps before anything downstream sees a candidate. It runs even when no
// active list exists so pronoun-style input ("open it") still has ground to
// stand on. Empty sets are omitted.
func Build(bc BuildContext) []dialog.GroundingSet {
	var sets []dialog.GroundingSet

	appendSet := func(g dialog.GroundingSet) {
		if len(g.Candidates) > 0 {
			sets = append(sets, g)
		}
	}

	if bc.Active != nil {
		appendSet(dialog.GroundingSet{
			IsList:     true,
			Candidates: capCandidates(dialog.OptionsToCandidates(bc.Active.Options), ListCap),
			Source:     dialog.SourceActiveList,
		})
	}

	widgetSets := buildWidgetSets(bc.Widgets)
	pausedSet, hasPaused := buildPausedSet(bc.Paused)

	if bc.Policy == PolicySnapshotFirst {
		if hasPaused {
			appendSet(pausedSet)
		}
		for _, g := range widgetSets {
			appendSet(g)
		}
	} else {
		for _, g := range widgetSets {
			appendSet(g)
		}
		if hasPaused {
			appendSet(pausedSet)
		}
	}

	appendSet(dialog.GroundingSet{
		Candidates: capCandidates(bc.Recent, ReferentCap),
		Source:     dialog.SourceRecentReferents,
	})
	appendSet(dialog.GroundingSet{
		Candidates: capCandidates(bc.Capabilities, ReferentCap),
		Source:     dialog.SourceCapabilities,
	})

	return sets
}

// Flatten concatenates the sets' candidates in precedence order, dropping
// duplicates by id. The result is what a constrained classifier call sees; it
// inherits the per-set caps and so stays bounded.
func Flatten(sets []dialog.GroundingSet) []dialog.Candidate {
	seen := make(map[string]bool)
	var out []dialog.Candidate
	for _, g := range sets {
		for _, c := range g.Candidates {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	return out
}

func buildWidgetSets(widgets []dialog.OpenWidget) []dialog.GroundingSet {
	var sets []dialog.GroundingSet
	for _, w := range widgets {
		if len(w.Items) == 0 {
			continue
		}
		sets = append(sets, dialog.GroundingSet{
			IsList:     true,
			Candidates: capCandidates(dialog.OptionsToCandidates(w.Items), ListCap),
			Source:     dialog.SourceWidgetList,
		})
	}
	return sets
}

func buildPausedSet(p *session.Snapshot) (dialog.GroundingSet, bool) {
	if p == nil || len(p.Options) == 0 {
		return dialog.GroundingSet{}, false
	}
	return dialog.GroundingSet{
		IsList:     true,
		Candidates: capCandidates(dialog.OptionsToCandidates(p.Options), ListCap),
		Source:     dialog.SourcePausedList,
	}, true
}

func capCandidates(cands []dialog.Candidate, limit int) []dialog.Candidate {
	if len(cands) <= limit {
		return cands
	}
	return cands[:limit]
}
