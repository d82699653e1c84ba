package match

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "Open Settings", "open settings"},
		{"trailing punctuation", "stop!!", "stop"},
		{"trailing question mark", "what is the export panel?", "what is the export panel"},
		{"politeness tail", "back pls", "back"},
		{"politeness chain", "go back please thanks", "go back"},
		{"politeness kept mid-sentence", "please open settings", "please open settings"},
		{"misspelled ordinal", "frist optoin", "first option"},
		{"collapsed letter run", "stooop", "stop"},
		{"double letters preserved", "off all good", "off all good"},
		{"concatenated ordinal noun", "1stoption", "1st option"},
		{"concatenated word ordinal", "secondoption", "second option"},
		{"whitespace squeeze", "  open   settings  ", "open settings"},
		{"empty", "", ""},
		{"punctuation only", "?!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Normalization must be stable under re-application: downstream matchers rely
// on normalized text being a fixed point.
func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Open Settings",
		"frist optoin pls",
		"stooop!!",
		"1stoption",
		"back pls please",
		"what were the options?",
		"",
		"   ",
		"the THIRD one, thanks",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestCollapseRuns(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"stooop", "stop"},
		{"yesss", "yes"},
		{"all", "all"},
		{"good", "good"},
		{"aaa", "a"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := collapseRuns(tt.input); got != tt.want {
			t.Errorf("collapseRuns(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
