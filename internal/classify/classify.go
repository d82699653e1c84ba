// Package classify is the bounded escape hatch to an external language-model
// classifier. The model is only ever asked to choose among a capped candidate
// list or abstain; every response is re-validated by the caller-side guard
// before a tier may act on it.
package classify

import (
	"context"
	"errors"

	"github.com/kmarchand/navigator/internal/dialog"
)

// TaskKind tells the classifier what decision it is scoped to.
type TaskKind string

const (
	// TaskSelect asks which candidate (if any) the input refers to.
	TaskSelect TaskKind = "select"
	// TaskReturnIntent asks a binary question: is the input a request to
	// return to the paused options, or not.
	TaskReturnIntent TaskKind = "return_intent"
)

// DecisionKind is the classifier's verdict.
type DecisionKind string

const (
	DecisionSelect     DecisionKind = "select"
	DecisionAskClarify DecisionKind = "ask_clarify"
	DecisionAbstain    DecisionKind = "abstain"
)

// Request is a single constrained classification. Candidates are always
// capped upstream; the guard re-checks the bound defensively.
type Request struct {
	Input      string             `json:"input"`
	Candidates []dialog.Candidate `json:"candidates"`
	Task       TaskKind           `json:"task_kind"`
	// Intent is the original intent behind the list, when known. It gives
	// the model context without widening its choice space.
	Intent string `json:"intent,omitempty"`
}

// Response is the classifier's raw answer, before guard validation.
type Response struct {
	Decision   DecisionKind `json:"decision"`
	ChoiceID   string       `json:"choice_id,omitempty"`
	Confidence float64      `json:"confidence"`
}

// Classifier is implemented by concrete model backends and by the scripted
// test double. Implementations honor ctx cancellation and deadlines.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Response, error)
}

// Error taxonomy. All of these are recovered locally by the dispatcher into a
// confirm or clarify prompt; none reach the user as raw errors.
var (
	// ErrTimeout: the model did not answer inside the deadline.
	ErrTimeout = errors.New("classify: timed out")
	// ErrInvalidResponse: malformed payload or a choice id that was not in
	// the candidate list sent.
	ErrInvalidResponse = errors.New("classify: invalid response")
	// ErrUnavailable: the backend could not be reached at all.
	ErrUnavailable = errors.New("classify: backend unavailable")
)
