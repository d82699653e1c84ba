package match

import (
	"strconv"
	"strings"
)

// Ordinal is a recognized positional reference into an option list.
type Ordinal struct {
	// Index is zero-based into the list the ordinal was matched against.
	Index int
	// Confidence reflects how directly the input expressed the position.
	Confidence float64
	// Badge is true when the position came from a badge letter ("b").
	Badge bool
}

// ordinalWords maps ordinal words to zero-based indices.
var ordinalWords = map[string]int{
	"first": 0, "second": 1, "third": 2, "fourth": 3, "fifth": 4,
	"sixth": 5, "seventh": 6, "eighth": 7, "ninth": 8, "tenth": 9,
	"eleventh": 10, "twelfth": 11,
	"1st": 0, "2nd": 1, "3rd": 2, "4th": 3, "5th": 4, "6th": 5,
	"7th": 6, "8th": 7, "9th": 8, "10th": 9, "11th": 10, "12th": 11,
	"last": -1, // resolved against the list size
}

// positional confidence levels.
const (
	confBareOrdinal  = 1.0
	confWordyOrdinal = 0.9
	confBadgeLetter  = 0.85
)

// MatchOrdinal recognizes a positional reference in normalized text against a
// list of size n. It accepts bare ordinals ("first", "2", "2nd", "#2"), wordy
// forms ("the first one", "option 2", "number three"), and single badge
// letters ("b", "option b"). Out-of-range positions do not match.
func MatchOrdinal(text string, n int) (Ordinal, bool) {
	if n <= 0 || text == "" {
		return Ordinal{}, false
	}

	fields := strings.Fields(text)
	stripped := stripFillers(text)

	// Wordiness only lowers confidence when fillers were actually removed.
	conf := confBareOrdinal
	if len(stripped) != len(fields) {
		conf = confWordyOrdinal
	}

	if len(stripped) != 1 {
		return Ordinal{}, false
	}
	tok := strings.TrimPrefix(stripped[0], "#")

	if idx, ok := ordinalWords[tok]; ok {
		if idx == -1 {
			idx = n - 1
		}
		if idx < n {
			return Ordinal{Index: idx, Confidence: conf}, true
		}
		return Ordinal{}, false
	}

	// Numeric position, one-based.
	if v, err := strconv.Atoi(tok); err == nil {
		if v >= 1 && v <= n {
			return Ordinal{Index: v - 1, Confidence: conf}, true
		}
		return Ordinal{}, false
	}

	// Badge letter: a single letter a..l addressing up to twelve entries.
	if len(tok) == 1 && tok[0] >= 'a' && tok[0] <= 'l' {
		idx := int(tok[0] - 'a')
		if idx < n {
			return Ordinal{Index: idx, Confidence: confBadgeLetter, Badge: true}, true
		}
	}

	return Ordinal{}, false
}

// numberWords augments ordinalWords for "number three" style references.
var numberWords = map[string]int{
	"one": 0, "two": 1, "three": 2, "four": 3, "five": 4,
	"six": 5, "seven": 6, "eight": 7, "nine": 8, "ten": 9,
	"eleven": 10, "twelve": 11,
}

// MatchNumberWord recognizes "number three" / "three" style cardinal
// references. It is kept separate from MatchOrdinal because bare cardinals
// are riskier ("one" is a filler) and only consulted when the dispatcher has
// already decided the input is selection-like.
func MatchNumberWord(text string, n int) (Ordinal, bool) {
	stripped := stripFillers(text)
	if len(stripped) != 1 {
		return Ordinal{}, false
	}
	idx, ok := numberWords[stripped[0]]
	if !ok || idx >= n {
		return Ordinal{}, false
	}
	return Ordinal{Index: idx, Confidence: confWordyOrdinal}, true
}

// selectionVerbs mark an utterance as selection-like even without a resolvable
// position ("take that one", "pick it").
var selectionVerbs = map[string]bool{
	"pick": true, "select": true, "choose": true, "take": true,
	"go": true, "use": true, "open": true, "that": true, "this": true,
}

// IsSelectionLike reports whether normalized text reads like an attempt to
// select from a list: it matches an ordinal, or it is short and built from
// selection verbs and fillers.
func IsSelectionLike(text string, n int) bool {
	if _, ok := MatchOrdinal(text, maxInt(n, 12)); ok {
		return true
	}
	fields := strings.Fields(text)
	if len(fields) == 0 || len(fields) > 4 {
		return false
	}
	for _, tok := range fields {
		if selectionVerbs[tok] || fillerTokens[tok] {
			continue
		}
		return false
	}
	return true
}

// referentialPronouns signal pronoun-style references resolvable only through
// a grounding set.
var referentialPronouns = map[string]bool{
	"it": true, "that": true, "this": true, "them": true,
	"those": true, "these": true, "him": true, "her": true,
}

// IsReferential reports whether normalized text leans on a pronoun-style
// reference ("open it", "show me that").
func IsReferential(text string) bool {
	for _, tok := range strings.Fields(text) {
		if referentialPronouns[tok] {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
