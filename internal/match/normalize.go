// Package match implements the deterministic matchers of the routing core:
// input normalization, ordinal and badge-letter recognition, label matching,
// known-command lookup, return/exit cue detection, and affirmation
// classification. Every matcher is a pure function over normalized text: it
// returns a match plus confidence or reports no match, never errors, and
// performs no I/O.
package match

import (
	"regexp"
	"strings"
)

// politenessTokens are trailing tokens stripped during normalization. They
// carry no routing signal ("back pls" must match the same cues as "back").
var politenessTokens = map[string]bool{
	"please": true,
	"pls":    true,
	"plz":    true,
	"thanks": true,
	"thank":  true,
	"thx":    true,
	"ty":     true,
	"kindly": true,
}

// misspellings maps frequent typos to their canonical form. The table is
// closed: no value appears as a key, which keeps Normalize idempotent.
var misspellings = map[string]string{
	"frist":    "first",
	"fisrt":    "first",
	"firt":     "first",
	"secund":   "second",
	"secound":  "second",
	"seocnd":   "second",
	"thrid":    "third",
	"tihrd":    "third",
	"fourht":   "fourth",
	"foruth":   "fourth",
	"fith":     "fifth",
	"optoin":   "option",
	"opiton":   "option",
	"optin":    "option",
	"opton":    "option",
	"optionn":  "option",
	"selct":    "select",
	"slect":    "select",
	"chose":    "choose",
	"cancle":   "cancel",
	"cacnel":   "cancel",
	"nvm":      "nevermind",
	"nevermnd": "nevermind",
}

// ordinalSplit detects a concatenated ordinal+noun token such as "1stoption"
// or "secondone" so it can be split back into two tokens.
var ordinalSplit = regexp.MustCompile(`^(1st|2nd|3rd|[4-9]th|1[0-2]th|first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)([a-z]{3,})$`)

// trailingPunct trims terminal punctuation. Question marks are included; the
// dispatcher inspects the raw text when interrogative routing matters.
var trailingPunct = regexp.MustCompile(`[\s!?.,;:]+$`)

// Normalize lowers, de-noises and canonicalizes raw user text. The result is
// stable under re-application: Normalize(Normalize(x)) == Normalize(x).
//
// Steps, in order: case fold, trim terminal punctuation, collapse letter runs
// of three or more, apply the fixed misspelling table, split concatenated
// ordinal+noun tokens, strip trailing politeness tokens, squeeze whitespace.
// Stripping politeness can expose new terminal punctuation ("back, thanks"),
// so the pipeline runs until it reaches a fixed point.
func Normalize(raw string) string {
	s := raw
	for i := 0; i < 5; i++ {
		next := normalizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func normalizeOnce(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = trailingPunct.ReplaceAllString(s, "")

	fields := strings.Fields(s)
	tokens := make([]string, 0, len(fields)+2)
	for _, tok := range fields {
		tok = collapseRuns(tok)
		if fixed, ok := misspellings[tok]; ok {
			tok = fixed
		}
		if m := ordinalSplit.FindStringSubmatch(tok); m != nil {
			tokens = append(tokens, m[1], canonicalToken(m[2]))
			continue
		}
		tokens = append(tokens, tok)
	}

	// Politeness is only stripped from the tail so "please open settings"
	// keeps its imperative shape while "open settings please" loses the tail.
	for len(tokens) > 0 && politenessTokens[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}

// canonicalToken runs the single-token normalization steps used when a token
// is produced mid-pipeline (after an ordinal split).
func canonicalToken(tok string) string {
	tok = collapseRuns(tok)
	if fixed, ok := misspellings[tok]; ok {
		return fixed
	}
	return tok
}

// collapseRuns reduces any run of three or more identical characters to a
// single character ("stooop" -> "stop"). Natural doubles ("off", "all") are
// left untouched.
func collapseRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		n := j - i
		if n >= 3 {
			n = 1
		}
		for k := 0; k < n; k++ {
			b.WriteRune(runes[i])
		}
		i = j
	}
	return b.String()
}

// fillerTokens are ignored when deciding whether an utterance is purely a
// selection ("the first one" == "first").
// The article "a" is deliberately absent: it doubles as a badge letter.
var fillerTokens = map[string]bool{
	"the": true, "an": true, "one": true, "that": true,
	"this": true, "option": true, "number": true, "item": true,
	"choice": true, "pick": true, "select": true, "choose": true,
	"go": true, "with": true, "take": true, "do": true, "use": true,
	"open": true, "show": true, "me": true, "it": true, "lets": true,
	"let's": true,
}

// stripFillers removes filler tokens, preserving order.
func stripFillers(text string) []string {
	var out []string
	for _, tok := range strings.Fields(text) {
		if fillerTokens[tok] {
			continue
		}
		out = append(out, tok)
	}
	return out
}
