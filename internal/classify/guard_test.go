package classify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmarchand/navigator/internal/dialog"
)

func testCandidates(n int) []dialog.Candidate {
	cands := make([]dialog.Candidate, n)
	for i := range cands {
		cands[i] = dialog.Candidate{
			ID:    fmt.Sprintf("c-%d", i),
			Label: fmt.Sprintf("Candidate %d", i),
			Kind:  dialog.CandidateAction,
		}
	}
	return cands
}

func testGuard(backend Classifier) *Guard {
	return NewGuard(backend, zerolog.Nop())
}

func TestGuard_SelectPassesValidation(t *testing.T) {
	backend := NewScriptedClassifier().Respond(Response{
		Decision: DecisionSelect, ChoiceID: "c-1", Confidence: 0.9,
	})
	resp, outcome := testGuard(backend).Classify(context.Background(), Request{
		Input: "the second one", Candidates: testCandidates(3), Task: TaskSelect,
	})

	assert.Equal(t, OutcomeSelect, outcome)
	assert.Equal(t, "c-1", resp.ChoiceID)
}

// A choice id that was never offered is a contract violation and must be
// rejected at the point of use, not acted on.
func TestGuard_UnknownChoiceIDRejected(t *testing.T) {
	backend := NewScriptedClassifier().Respond(Response{
		Decision: DecisionSelect, ChoiceID: "not-sent", Confidence: 0.99,
	})
	resp, outcome := testGuard(backend).Classify(context.Background(), Request{
		Input: "that", Candidates: testCandidates(3), Task: TaskSelect,
	})

	assert.Equal(t, OutcomeInvalid, outcome)
	assert.Equal(t, DecisionAbstain, resp.Decision)
}

func TestGuard_LowConfidenceBecomesAbstain(t *testing.T) {
	backend := NewScriptedClassifier().Respond(Response{
		Decision: DecisionSelect, ChoiceID: "c-0", Confidence: 0.2,
	})
	resp, outcome := testGuard(backend).Classify(context.Background(), Request{
		Input: "hm that one", Candidates: testCandidates(3), Task: TaskSelect,
	})

	assert.Equal(t, OutcomeAbstain, outcome)
	assert.Equal(t, DecisionAbstain, resp.Decision)
}

func TestGuard_TimeoutBecomesAbstain(t *testing.T) {
	backend := NewScriptedClassifier().
		Respond(Response{Decision: DecisionSelect, ChoiceID: "c-0", Confidence: 0.9}).
		WithDelay(200 * time.Millisecond)

	guard := testGuard(backend).WithTimeout(20 * time.Millisecond)
	resp, outcome := guard.Classify(context.Background(), Request{
		Input: "first", Candidates: testCandidates(3), Task: TaskSelect,
	})

	assert.Equal(t, OutcomeTimeout, outcome)
	assert.Equal(t, DecisionAbstain, resp.Decision)
}

// A turn superseded mid-call cancels the context; the late result must be
// discarded rather than applied.
func TestGuard_SupersededCallDiscarded(t *testing.T) {
	backend := NewScriptedClassifier().
		Respond(Response{Decision: DecisionSelect, ChoiceID: "c-0", Confidence: 0.9}).
		WithDelay(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	resp, outcome := testGuard(backend).Classify(ctx, Request{
		Input: "first", Candidates: testCandidates(3), Task: TaskSelect,
	})

	assert.Equal(t, OutcomeSuperseded, outcome)
	assert.Equal(t, DecisionAbstain, resp.Decision)
}

func TestGuard_BackendErrorBecomesAbstain(t *testing.T) {
	backend := NewScriptedClassifier().Fail(errors.New("connection refused"))
	_, outcome := testGuard(backend).Classify(context.Background(), Request{
		Input: "x", Candidates: testCandidates(1), Task: TaskSelect,
	})
	assert.Equal(t, OutcomeError, outcome)
}

func TestGuard_InvalidPayloadOutcome(t *testing.T) {
	backend := NewScriptedClassifier().Fail(fmt.Errorf("%w: gibberish", ErrInvalidResponse))
	_, outcome := testGuard(backend).Classify(context.Background(), Request{
		Input: "x", Candidates: testCandidates(1), Task: TaskSelect,
	})
	assert.Equal(t, OutcomeInvalid, outcome)
}

func TestGuard_EmptyCandidatesAbstainWithoutCall(t *testing.T) {
	backend := NewScriptedClassifier()
	_, outcome := testGuard(backend).Classify(context.Background(), Request{
		Input: "x", Task: TaskSelect,
	})
	assert.Equal(t, OutcomeAbstain, outcome)
	assert.Equal(t, 0, backend.Calls())
}

func TestGuard_OversizedListTruncated(t *testing.T) {
	backend := NewScriptedClassifier().Respond(Response{Decision: DecisionAbstain})
	testGuard(backend).Classify(context.Background(), Request{
		Input: "x", Candidates: testCandidates(50), Task: TaskSelect,
	})

	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Candidates, maxCandidates)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Response
		wantErr bool
	}{
		{
			name:    "clean select",
			content: `{"decision":"select","choice_id":"c-1","confidence":0.9}`,
			want:    Response{Decision: DecisionSelect, ChoiceID: "c-1", Confidence: 0.9},
		},
		{
			name:    "fenced",
			content: "```json\n{\"decision\":\"abstain\",\"confidence\":0.3}\n```",
			want:    Response{Decision: DecisionAbstain, Confidence: 0.3},
		},
		{
			name:    "select without choice id",
			content: `{"decision":"select","confidence":0.9}`,
			wantErr: true,
		},
		{
			name:    "unknown decision",
			content: `{"decision":"execute","confidence":0.9}`,
			wantErr: true,
		},
		{
			name:    "no json",
			content: "sorry, I cannot help with that",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVerdict(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
