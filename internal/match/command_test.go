package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVocabulary() *Vocabulary {
	return NewVocabulary([]Command{
		{Noun: "settings", ActionID: "open_settings", Aliases: []string{"preferences", "prefs"}},
		{Noun: "export panel", ActionID: "open_export"},
		{Noun: "notes", ActionID: "open_notes"},
		{Noun: "dashboard", ActionID: "open_dashboard", Aliases: []string{"home"}},
	})
}

func TestVocabulary_MatchExact(t *testing.T) {
	v := testVocabulary()

	tests := []struct {
		input          string
		wantAction     string
		wantImperative bool
		wantOK         bool
	}{
		{"settings", "open_settings", false, true},
		{"open settings", "open_settings", true, true},
		{"go to the export panel", "open_export", true, true},
		{"take me to prefs", "open_settings", true, true},
		{"home", "open_dashboard", false, true},
		{"open the notes", "open_notes", true, true},
		{"open unknownthing", "", true, false},
		{"", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := v.MatchExact(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantAction, got.Command.ActionID)
				assert.Equal(t, tt.wantImperative, got.Imperative)
			}
		})
	}
}

func TestVocabulary_MatchNear(t *testing.T) {
	v := testVocabulary()

	got, ok := v.MatchNear("setings")
	require.True(t, ok)
	assert.Equal(t, "open_settings", got.Command.ActionID)
	assert.Equal(t, 1, got.Distance)

	got, ok = v.MatchNear("open dashbord")
	require.True(t, ok)
	assert.Equal(t, "open_dashboard", got.Command.ActionID)

	// Exact hits belong to MatchExact, not the fuzzy path.
	_, ok = v.MatchNear("settings")
	assert.False(t, ok)

	// Too far from anything.
	_, ok = v.MatchNear("spreadsheet")
	assert.False(t, ok)

	// Too short to fuzz safely.
	_, ok = v.MatchNear("se")
	assert.False(t, ok)
}

func TestIsQuestion(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"what is the export panel?", true},
		{"what is settings", true},
		{"how does export work", true},
		{"tell me about notes", true},
		{"open settings", false},
		{"settings?", true},
		{"first", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsQuestion(tt.input))
		})
	}
}
