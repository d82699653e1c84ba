package grounding

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/session"
)

func syntheticOptions(n int) []dialog.ClarificationOption {
	opts := make([]dialog.ClarificationOption, n)
	for i := range opts {
		opts[i] = dialog.ClarificationOption{
			ID:    fmt.Sprintf("opt-%d", i),
			Label: fmt.Sprintf("Option %d", i),
			Kind:  dialog.OptionExecutable,
		}
	}
	return opts
}

func syntheticCandidates(n int, kind dialog.CandidateKind) []dialog.Candidate {
	cands := make([]dialog.Candidate, n)
	for i := range cands {
		cands[i] = dialog.Candidate{
			ID:    fmt.Sprintf("%s-%d", kind, i),
			Label: fmt.Sprintf("%s %d", kind, i),
			Kind:  kind,
		}
	}
	return cands
}

// 50 synthetic candidates must truncate to the documented caps before any
// matcher or classifier sees them.
func TestBuild_CapsEnforced(t *testing.T) {
	set := session.NewActiveOptionSet(syntheticOptions(50), "", "")
	sets := Build(BuildContext{
		Active:       &set,
		Recent:       syntheticCandidates(50, dialog.CandidateReferent),
		Capabilities: syntheticCandidates(50, dialog.CandidateCapability),
	})

	require.Len(t, sets, 3)
	assert.Len(t, sets[0].Candidates, ListCap)
	assert.True(t, sets[0].IsList)
	assert.Len(t, sets[1].Candidates, ReferentCap)
	assert.False(t, sets[1].IsList)
	assert.Len(t, sets[2].Candidates, ReferentCap)
}

func TestBuild_DefaultPrecedence(t *testing.T) {
	paused := &session.Snapshot{Options: syntheticOptions(2), PausedReason: session.PausedInterrupt}
	widgets := []dialog.OpenWidget{{SurfaceID: "w1", Items: syntheticOptions(3)}}

	sets := Build(BuildContext{
		Widgets:      widgets,
		Paused:       paused,
		Recent:       syntheticCandidates(2, dialog.CandidateReferent),
		Capabilities: syntheticCandidates(2, dialog.CandidateCapability),
	})

	require.Len(t, sets, 4)
	assert.Equal(t, dialog.SourceWidgetList, sets[0].Source)
	assert.Equal(t, dialog.SourcePausedList, sets[1].Source)
	assert.Equal(t, dialog.SourceRecentReferents, sets[2].Source)
	assert.Equal(t, dialog.SourceCapabilities, sets[3].Source)
}

func TestBuild_SnapshotFirstPolicy(t *testing.T) {
	paused := &session.Snapshot{Options: syntheticOptions(2), PausedReason: session.PausedInterrupt}
	widgets := []dialog.OpenWidget{{SurfaceID: "w1", Items: syntheticOptions(3)}}

	sets := Build(BuildContext{
		Widgets: widgets,
		Paused:  paused,
		Policy:  PolicySnapshotFirst,
	})

	require.Len(t, sets, 2)
	assert.Equal(t, dialog.SourcePausedList, sets[0].Source)
	assert.Equal(t, dialog.SourceWidgetList, sets[1].Source)
}

func TestBuild_ActiveListRanksFirst(t *testing.T) {
	set := session.NewActiveOptionSet(syntheticOptions(2), "", "")
	widgets := []dialog.OpenWidget{{SurfaceID: "w1", Items: syntheticOptions(3)}}

	sets := Build(BuildContext{Active: &set, Widgets: widgets})
	require.NotEmpty(t, sets)
	assert.Equal(t, dialog.SourceActiveList, sets[0].Source)
}

func TestBuild_RunsWithoutActiveList(t *testing.T) {
	sets := Build(BuildContext{
		Recent: syntheticCandidates(1, dialog.CandidateReferent),
	})
	require.Len(t, sets, 1)
	assert.Equal(t, dialog.SourceRecentReferents, sets[0].Source)
}

func TestBuild_EmptySetsOmitted(t *testing.T) {
	assert.Empty(t, Build(BuildContext{}))

	sets := Build(BuildContext{
		Widgets: []dialog.OpenWidget{{SurfaceID: "empty"}},
	})
	assert.Empty(t, sets)
}

func TestFlatten_DeduplicatesByID(t *testing.T) {
	a := syntheticCandidates(3, dialog.CandidateAction)
	sets := []dialog.GroundingSet{
		{Candidates: a, Source: dialog.SourceActiveList},
		{Candidates: a[:2], Source: dialog.SourcePausedList},
	}
	flat := Flatten(sets)
	assert.Len(t, flat, 3)
}
