package match

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxCommandDistance bounds the edit distance accepted for a near-match. Two
// edits cover the typo shapes the normalizer's fixed table does not.
const maxCommandDistance = 2

// Command is one fixed-vocabulary noun the assistant can navigate to.
type Command struct {
	// Noun is the canonical name ("settings", "export panel").
	Noun string
	// ActionID is what the caller executes when the command fires.
	ActionID string
	// Aliases are alternative spellings matched exactly.
	Aliases []string
	// Description is surfaced in capability grounding sets.
	Description string
}

// Vocabulary is the set of known noun commands, indexed for exact lookup.
type Vocabulary struct {
	commands []Command
	index    map[string]int
}

// NewVocabulary builds a vocabulary from the given commands. Nouns and
// aliases are normalized on the way in so lookups and near-matching operate
// on the same space the input does.
func NewVocabulary(commands []Command) *Vocabulary {
	v := &Vocabulary{index: make(map[string]int)}
	for _, c := range commands {
		c.Noun = Normalize(c.Noun)
		i := len(v.commands)
		v.commands = append(v.commands, c)
		v.index[c.Noun] = i
		for _, a := range c.Aliases {
			v.index[Normalize(a)] = i
		}
	}
	return v
}

// Commands returns the vocabulary in registration order.
func (v *Vocabulary) Commands() []Command {
	return v.commands
}

// commandVerbs are imperative lead-ins stripped before noun lookup.
var commandVerbs = regexp.MustCompile(`^(open|show|go to|goto|switch to|take me to|navigate to|bring up|display|view|launch)\s+`)

// articlePrefix strips a leading article left after the verb.
var articlePrefix = regexp.MustCompile(`^(the|my|a|an)\s+`)

// stripCommandShape removes the imperative verb and article from normalized
// text, returning the remaining noun phrase and whether a verb was present.
func stripCommandShape(text string) (noun string, hadVerb bool) {
	noun = text
	if m := commandVerbs.FindString(noun); m != "" {
		noun = strings.TrimPrefix(noun, m)
		hadVerb = true
	}
	noun = articlePrefix.ReplaceAllString(noun, "")
	return strings.TrimSpace(noun), hadVerb
}

// SplitCommand exposes the imperative analysis: the noun phrase left after
// stripping a navigation verb and article, and whether a verb was present.
func SplitCommand(text string) (noun string, imperative bool) {
	return stripCommandShape(text)
}

// ExactMatch is a confident vocabulary hit.
type ExactMatch struct {
	Command Command
	// Imperative is true when the input carried a navigation verb, which is
	// what lets an exact command override an active option list.
	Imperative bool
}

// MatchExact resolves normalized text against the vocabulary by exact noun or
// alias equality, with or without an imperative lead-in.
func (v *Vocabulary) MatchExact(text string) (ExactMatch, bool) {
	noun, hadVerb := stripCommandShape(text)
	if noun == "" {
		return ExactMatch{}, false
	}
	if i, ok := v.index[noun]; ok {
		return ExactMatch{Command: v.commands[i], Imperative: hadVerb}, true
	}
	return ExactMatch{}, false
}

// MatchPartial returns every command whose noun contains the given phrase as
// a token subset, in registration order. Used for multi-target
// disambiguation: "open the panel" against "export panel" and "import panel"
// returns both.
func (v *Vocabulary) MatchPartial(text string) []Command {
	noun, _ := stripCommandShape(Normalize(text))
	if noun == "" {
		return nil
	}
	tokens := strings.Fields(noun)

	var hits []Command
	for _, c := range v.commands {
		if tokenSubset(tokens, strings.Fields(c.Noun)) {
			hits = append(hits, c)
		}
	}
	return hits
}

// NearMatch is a fuzzy vocabulary hit that requires confirmation before
// firing.
type NearMatch struct {
	Command  Command
	Distance int
}

// MatchNear finds the closest vocabulary noun within the bounded edit
// distance. Ties at the same distance are treated as no match: confirming
// against an arbitrary pick is worse than admitting the reference is unknown.
func (v *Vocabulary) MatchNear(text string) (NearMatch, bool) {
	noun, _ := stripCommandShape(text)
	if len(noun) < 3 {
		return NearMatch{}, false
	}

	best := NearMatch{Distance: maxCommandDistance + 1}
	tied := false
	for key, i := range v.index {
		d := levenshtein.ComputeDistance(noun, key)
		switch {
		case d < best.Distance:
			best = NearMatch{Command: v.commands[i], Distance: d}
			tied = false
		case d == best.Distance && v.commands[i].ActionID != best.Command.ActionID:
			tied = true
		}
	}
	if best.Distance > maxCommandDistance || best.Distance == 0 || tied {
		// Distance zero is an exact hit and belongs to MatchExact.
		return NearMatch{}, false
	}
	return best, true
}

// interrogativeLead matches question openers that route to retrieval even
// when the sentence mentions a known noun.
var interrogativeLead = regexp.MustCompile(`^(what|what's|whats|why|how|when|where|who|which|tell me about|explain)\b`)

// IsQuestion reports whether raw input reads as an informational question:
// a trailing question mark or an interrogative opener.
func IsQuestion(raw string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	return interrogativeLead.MatchString(trimmed)
}
