package match

// Stance classifies short reactive utterances that are neither selections nor
// commands: agreement, refusal, hedging, or plain noise.
type Stance int

const (
	// StanceNone means the input carries content beyond a reaction.
	StanceNone Stance = iota
	// StanceAffirm is agreement ("yes", "sure", "do it").
	StanceAffirm
	// StanceReject is refusal ("no", "not that").
	StanceReject
	// StanceHesitant is hedging ("hmm", "maybe", "not sure").
	StanceHesitant
	// StanceNoise is empty or content-free input (punctuation, lone emoji).
	StanceNoise
)

// String returns a human-readable stance name.
func (s Stance) String() string {
	switch s {
	case StanceAffirm:
		return "affirm"
	case StanceReject:
		return "reject"
	case StanceHesitant:
		return "hesitant"
	case StanceNoise:
		return "noise"
	default:
		return "none"
	}
}

var affirmations = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"ok": true, "okay": true, "fine": true, "alright": true,
	"do it": true, "go ahead": true, "sounds good": true, "correct": true,
	"right": true, "exactly": true, "confirm": true, "yes please": true,
	"affirmative": true, "absolutely": true, "definitely": true,
}

var rejections = map[string]bool{
	"no": true, "nope": true, "nah": true, "not that": true,
	"no thanks": true, "negative": true, "wrong": true,
	"none of those": true, "none of these": true, "neither": true,
	"not really": true, "dont": true, "don't": true,
}

var hesitations = map[string]bool{
	"hmm": true, "hm": true, "uh": true, "um": true, "er": true,
	"maybe": true, "not sure": true, "i guess": true,
	"im not sure": true, "i'm not sure": true, "dunno": true,
	"i dont know": true, "i don't know": true, "idk": true,
	"let me think": true, "hold on": true, "wait": true,
}

// ClassifyStance classifies normalized text as a reactive utterance. Inputs
// with real content return StanceNone so the tiers above keep handling them.
func ClassifyStance(text string) Stance {
	if isNoise(text) {
		return StanceNoise
	}
	switch {
	case affirmations[text]:
		return StanceAffirm
	case rejections[text]:
		return StanceReject
	case hesitations[text]:
		return StanceHesitant
	default:
		return StanceNone
	}
}

// isNoise reports whether the input carries no alphanumeric content at all.
func isNoise(text string) bool {
	for _, r := range text {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}
