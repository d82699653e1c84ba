package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchOrdinal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		size      int
		wantIndex int
		wantOK    bool
	}{
		{"bare word", "first", 3, 0, true},
		{"bare digit", "2", 3, 1, true},
		{"suffixed digit", "3rd", 3, 2, true},
		{"hash digit", "#2", 3, 1, true},
		{"wordy form", "the first one", 3, 0, true},
		{"ordinal plus noun", "first option", 3, 0, true},
		{"option then digit", "option 2", 3, 1, true},
		{"last resolves to size", "last", 4, 3, true},
		{"badge letter", "b", 3, 1, true},
		{"badge with filler", "option c", 3, 2, true},
		{"out of range digit", "5", 3, 0, false},
		{"out of range word", "fourth", 3, 0, false},
		{"out of range badge", "d", 3, 0, false},
		{"not an ordinal", "settings", 3, 0, false},
		{"two content words", "first settings", 3, 0, false},
		{"empty list", "first", 0, 0, false},
		{"empty input", "", 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchOrdinal(tt.input, tt.size)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantIndex, got.Index)
				assert.Greater(t, got.Confidence, 0.0)
			}
		})
	}
}

func TestMatchOrdinal_Confidence(t *testing.T) {
	bare, ok := MatchOrdinal("first", 3)
	assert.True(t, ok)

	wordy, ok := MatchOrdinal("the first one", 3)
	assert.True(t, ok)

	badge, ok := MatchOrdinal("b", 3)
	assert.True(t, ok)

	assert.Greater(t, bare.Confidence, wordy.Confidence)
	assert.Greater(t, wordy.Confidence, badge.Confidence)
	assert.True(t, badge.Badge)
	assert.False(t, bare.Badge)
}

// The normalizer plus ordinal matcher must turn "first optoin" into the first
// entry without any help.
func TestMatchOrdinal_TypoPipeline(t *testing.T) {
	norm := Normalize("first optoin")
	got, ok := MatchOrdinal(norm, 3)
	assert.True(t, ok)
	assert.Equal(t, 0, got.Index)
}

func TestIsSelectionLike(t *testing.T) {
	tests := []struct {
		input string
		size  int
		want  bool
	}{
		{"first", 3, true},
		{"2", 3, true},
		{"that one", 0, true},
		{"pick it", 0, true},
		{"open settings panel now", 0, false},
		{"what is the export panel", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSelectionLike(tt.input, tt.size))
		})
	}
}

func TestIsReferential(t *testing.T) {
	assert.True(t, IsReferential("open it"))
	assert.True(t, IsReferential("show me that"))
	assert.False(t, IsReferential("open settings"))
	assert.False(t, IsReferential(""))
}
