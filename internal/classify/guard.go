package classify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kmarchand/navigator/internal/dialog"
)

const (
	// DefaultTimeout bounds a single classifier call. Sub-second: the user
	// is waiting on the turn.
	DefaultTimeout = 800 * time.Millisecond
	// DefaultMinConfidence is the floor below which a select verdict is
	// downgraded to abstain.
	DefaultMinConfidence = 0.55
	// maxCandidates is the defensive upper bound on the list sent to the
	// model. Upstream caps are tighter; this guard only catches bugs.
	maxCandidates = 16
)

// Outcome describes how a guarded call ended, for telemetry and tests.
type Outcome string

const (
	OutcomeSelect   Outcome = "select"
	OutcomeClarify  Outcome = "ask_clarify"
	OutcomeAbstain  Outcome = "abstain"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeError    Outcome = "error"
	OutcomeSuperseded Outcome = "superseded"
)

// Guard wraps a Classifier with the caller-side safety the model is never
// trusted to provide: a hard deadline, candidate-list membership checks on
// the returned choice, a confidence floor, and truncation of oversized lists.
type Guard struct {
	backend       Classifier
	timeout       time.Duration
	minConfidence float64
	log           zerolog.Logger
}

// NewGuard wraps backend with default bounds.
func NewGuard(backend Classifier, log zerolog.Logger) *Guard {
	return &Guard{
		backend:       backend,
		timeout:       DefaultTimeout,
		minConfidence: DefaultMinConfidence,
		log:           log,
	}
}

// WithTimeout overrides the per-call deadline.
func (g *Guard) WithTimeout(d time.Duration) *Guard {
	if d > 0 {
		g.timeout = d
	}
	return g
}

// WithMinConfidence overrides the abstain floor.
func (g *Guard) WithMinConfidence(c float64) *Guard {
	if c > 0 {
		g.minConfidence = c
	}
	return g
}

// Classify runs one guarded call. The returned Response is safe to act on:
// a select verdict always names a candidate from the request, and every
// failure mode (timeout, malformed payload, unknown choice id, low
// confidence, backend error) collapses to an abstain with a matching
// Outcome. Classify never returns an error to the dispatcher — abstain IS
// the error surface, because policy decides what abstain means per tier.
func (g *Guard) Classify(ctx context.Context, req Request) (Response, Outcome) {
	if g.backend == nil {
		return abstain(), OutcomeError
	}
	if len(req.Candidates) == 0 {
		return abstain(), OutcomeAbstain
	}
	if len(req.Candidates) > maxCandidates {
		g.log.Warn().
			Int("sent", len(req.Candidates)).
			Int("cap", maxCandidates).
			Msg("oversized candidate list reached classifier guard; truncating")
		req.Candidates = req.Candidates[:maxCandidates]
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.backend.Classify(ctx, req)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		g.log.Debug().Str("task", string(req.Task)).Msg("classifier timed out")
		return abstain(), OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return abstain(), OutcomeSuperseded
	case errors.Is(err, ErrInvalidResponse):
		g.log.Warn().Err(err).Msg("classifier returned malformed payload")
		return abstain(), OutcomeInvalid
	case err != nil:
		g.log.Warn().Err(err).Msg("classifier call failed")
		return abstain(), OutcomeError
	}

	switch resp.Decision {
	case DecisionSelect:
		if _, ok := dialog.CandidateByID(req.Candidates, resp.ChoiceID); !ok {
			// The model named something it was never offered. Contract
			// violation: reject at the point of use.
			g.log.Error().
				Str("choice_id", resp.ChoiceID).
				Msg("classifier chose an id outside the sent candidate list")
			return abstain(), OutcomeInvalid
		}
		if resp.Confidence < g.minConfidence {
			g.log.Debug().
				Float64("confidence", resp.Confidence).
				Float64("floor", g.minConfidence).
				Msg("classifier confidence below floor; treating as abstain")
			return abstain(), OutcomeAbstain
		}
		return resp, OutcomeSelect
	case DecisionAskClarify:
		return resp, OutcomeClarify
	case DecisionAbstain:
		return resp, OutcomeAbstain
	default:
		g.log.Warn().Str("decision", string(resp.Decision)).Msg("unknown classifier decision")
		return abstain(), OutcomeInvalid
	}
}

func abstain() Response {
	return Response{Decision: DecisionAbstain}
}
