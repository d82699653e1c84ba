package match

import (
	"strings"

	"github.com/kmarchand/navigator/internal/dialog"
)

// Strictness selects how aggressively labels are matched. Strict is used for
// stale-context guards where a false positive would revive the wrong list;
// Permissive is used for in-flow parsing against the list the user is looking
// at. Both modes share one implementation so the two call sites cannot drift.
type Strictness int

const (
	// Strict accepts only whole-input label equality.
	Strict Strictness = iota
	// Permissive additionally accepts token-subset and substring matches.
	Permissive
)

// label matching confidence levels.
const (
	confLabelExact    = 1.0
	confLabelSubset   = 0.85
	confLabelContains = 0.75
)

// LabelMatch is a label matcher hit against one option.
type LabelMatch struct {
	Index      int
	Option     dialog.ClarificationOption
	Confidence float64
	Exact      bool
}

// MatchLabel resolves normalized input against an option list. It returns the
// single best hit; when several options match at the same confidence the
// matcher reports no match rather than guessing (the dispatcher asks "which
// one" instead). Use MatchLabelAll when the competing hits themselves are
// needed.
func MatchLabel(text string, opts []dialog.ClarificationOption, mode Strictness) (LabelMatch, bool) {
	hits := MatchLabelAll(text, opts, mode)
	if len(hits) == 0 {
		return LabelMatch{}, false
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h.Confidence > best.Confidence {
			best = h
		} else if h.Confidence == best.Confidence && h.Index != best.Index {
			return LabelMatch{}, false
		}
	}
	return best, true
}

// MatchLabelAll returns every option the input could refer to under the given
// strictness, in list order.
func MatchLabelAll(text string, opts []dialog.ClarificationOption, mode Strictness) []LabelMatch {
	if text == "" {
		return nil
	}
	var hits []LabelMatch
	inputTokens := strings.Fields(text)

	for i, opt := range opts {
		label := Normalize(opt.Label)
		if label == "" {
			continue
		}
		if text == label {
			hits = append(hits, LabelMatch{Index: i, Option: opt, Confidence: confLabelExact, Exact: true})
			continue
		}
		if mode != Permissive {
			continue
		}
		if tokenSubset(inputTokens, strings.Fields(label)) {
			hits = append(hits, LabelMatch{Index: i, Option: opt, Confidence: confLabelSubset})
			continue
		}
		// Substring matches need a minimum length so "a" does not hit
		// every label containing the letter.
		if len(text) >= 3 && strings.Contains(label, text) {
			hits = append(hits, LabelMatch{Index: i, Option: opt, Confidence: confLabelContains})
		}
	}
	return hits
}

// MatchCandidateLabel is MatchLabel over grounding candidates.
func MatchCandidateLabel(text string, cands []dialog.Candidate, mode Strictness) (dialog.Candidate, float64, bool) {
	opts := make([]dialog.ClarificationOption, len(cands))
	for i, c := range cands {
		opts[i] = dialog.ClarificationOption{ID: c.ID, Label: c.Label}
	}
	hit, ok := MatchLabel(text, opts, mode)
	if !ok {
		return dialog.Candidate{}, 0, false
	}
	return cands[hit.Index], hit.Confidence, true
}

// tokenSubset reports whether every input token appears among the label
// tokens. Fillers in the input are ignored so "the export panel" matches the
// label "Export Panel".
func tokenSubset(input, label []string) bool {
	if len(input) == 0 {
		return false
	}
	set := make(map[string]bool, len(label))
	for _, t := range label {
		set[t] = true
	}
	matched := 0
	for _, t := range input {
		if fillerTokens[t] {
			continue
		}
		if !set[t] {
			return false
		}
		matched++
	}
	return matched > 0
}
