package match

import (
	"regexp"
	"strings"
)

// return-cue confidence levels.
const (
	confReturnExact   = 1.0
	confReturnPattern = 0.9
)

// returnCueExact are whole-input return/resume phrases. Normalization strips
// trailing politeness first, so "back pls" arrives here as "back".
var returnCueExact = map[string]bool{
	"back":                true,
	"go back":             true,
	"take me back":        true,
	"back up":             true,
	"previous":            true,
	"previous options":    true,
	"return":              true,
	"resume":              true,
	"continue":            true,
	"restore":             true,
	"restore options":     true,
	"back to options":     true,
	"back to the options": true,
	"show options again":  true,
	"options again":       true,
	"where were we":       true,
	"where was i":         true,
	"as you were":         true,
}

// returnCuePatterns catch wordier return phrasings.
var returnCuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(go|get|take me|bring me) back( to (the )?(options|list|choices))?$`),
	regexp.MustCompile(`^(back|return|resume|restore) (to )?(the )?(options|list|choices)$`),
	regexp.MustCompile(`^(show|give) me (the |those )?(options|choices) again$`),
	regexp.MustCompile(`^what (were|was) (the|those|my) (options|choices)$`),
	regexp.MustCompile(`^pick up where (we|i) left off$`),
}

// ReturnCue is a recognized request to restore a paused option list.
type ReturnCue struct {
	Confidence float64
}

// MatchReturnCue recognizes explicit return/resume phrases in normalized text.
func MatchReturnCue(text string) (ReturnCue, bool) {
	if text == "" {
		return ReturnCue{}, false
	}
	if returnCueExact[text] {
		return ReturnCue{Confidence: confReturnExact}, true
	}
	for _, re := range returnCuePatterns {
		if re.MatchString(text) {
			return ReturnCue{Confidence: confReturnPattern}, true
		}
	}
	return ReturnCue{}, false
}

// returnHintTokens are weak return signals. They do not fire on their own;
// the dispatcher uses them to decide whether a binary return/not-return
// classifier call is worth making at all.
var returnHintTokens = map[string]bool{
	"back": true, "return": true, "resume": true, "restore": true,
	"again": true, "before": true, "earlier": true, "previous": true,
	"were": true, "left": true,
}

// LooksLikeReturn reports whether normalized text hints at returning to a
// paused context without matching an explicit cue. Weak signal only.
func LooksLikeReturn(text string) bool {
	for _, tok := range strings.Fields(text) {
		if returnHintTokens[tok] {
			return true
		}
	}
	return false
}

// ExitKind classifies stop phrasing strength.
type ExitKind int

const (
	// ExitNone means the input is not an exit phrase.
	ExitNone ExitKind = iota
	// ExitAmbiguous phrases ("stop", "cancel") might target the current list
	// rather than the whole session; they trigger a yes/no confirm.
	ExitAmbiguous
	// ExitExplicit phrases ("exit", "quit") end the session immediately.
	ExitExplicit
)

// explicitExits end the session without confirmation.
var explicitExits = map[string]bool{
	"exit":              true,
	"quit":              true,
	"goodbye":           true,
	"bye":               true,
	"stop everything":   true,
	"cancel everything": true,
	"end session":       true,
	"close the assistant": true,
	"shut down":         true,
}

// ambiguousExits could mean "drop this list" or "end the session".
var ambiguousExits = map[string]bool{
	"stop":        true,
	"cancel":      true,
	"enough":      true,
	"never mind":  true,
	"nevermind":   true,
	"forget it":   true,
	"leave it":    true,
	"drop it":     true,
	"stop it":     true,
	"cancel that": true,
	"no stop":     true,
}

// ClassifyExit recognizes stop/exit phrases in normalized text.
func ClassifyExit(text string) ExitKind {
	switch {
	case explicitExits[text]:
		return ExitExplicit
	case ambiguousExits[text]:
		return ExitAmbiguous
	default:
		return ExitNone
	}
}
