package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kmarchand/navigator/internal/dialog"
)

func panelOptions() []dialog.ClarificationOption {
	return []dialog.ClarificationOption{
		{ID: "opt-1", Label: "Export Panel", Kind: dialog.OptionExecutable},
		{ID: "opt-2", Label: "Import Panel", Kind: dialog.OptionExecutable},
		{ID: "opt-3", Label: "Settings", Kind: dialog.OptionExecutable},
	}
}

func TestMatchLabel_Exact(t *testing.T) {
	opts := panelOptions()

	hit, ok := MatchLabel("export panel", opts, Strict)
	assert.True(t, ok)
	assert.Equal(t, "opt-1", hit.Option.ID)
	assert.True(t, hit.Exact)
	assert.Equal(t, 1.0, hit.Confidence)

	// Strict mode refuses partial references.
	_, ok = MatchLabel("export", opts, Strict)
	assert.False(t, ok)
}

func TestMatchLabel_Permissive(t *testing.T) {
	opts := panelOptions()

	// Token subset.
	hit, ok := MatchLabel("the export panel", opts, Permissive)
	assert.True(t, ok)
	assert.Equal(t, "opt-1", hit.Option.ID)

	// Substring.
	hit, ok = MatchLabel("export", opts, Permissive)
	assert.True(t, ok)
	assert.Equal(t, "opt-1", hit.Option.ID)

	// Too short for a substring hit.
	_, ok = MatchLabel("ex", opts, Permissive)
	assert.False(t, ok)
}

// "panel" appears in two labels at equal confidence; the matcher must refuse
// to pick one rather than guess.
func TestMatchLabel_AmbiguityRefused(t *testing.T) {
	opts := panelOptions()

	_, ok := MatchLabel("panel", opts, Permissive)
	assert.False(t, ok)

	hits := MatchLabelAll("panel", opts, Permissive)
	assert.Len(t, hits, 2)
	assert.Equal(t, "opt-1", hits[0].Option.ID)
	assert.Equal(t, "opt-2", hits[1].Option.ID)
}

func TestMatchLabel_ExactBeatsPartial(t *testing.T) {
	opts := []dialog.ClarificationOption{
		{ID: "a", Label: "Export"},
		{ID: "b", Label: "Export Panel"},
	}
	hit, ok := MatchLabel("export", opts, Permissive)
	assert.True(t, ok)
	assert.Equal(t, "a", hit.Option.ID)
	assert.True(t, hit.Exact)
}

func TestMatchCandidateLabel(t *testing.T) {
	cands := []dialog.Candidate{
		{ID: "c1", Label: "Notes", Kind: dialog.CandidateReferent},
		{ID: "c2", Label: "Export Panel", Kind: dialog.CandidateAction},
	}
	c, conf, ok := MatchCandidateLabel("notes", cands, Strict)
	assert.True(t, ok)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, 1.0, conf)
}
