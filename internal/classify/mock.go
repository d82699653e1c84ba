package classify

import (
	"context"
	"sync"
	"time"
)

// ScriptedClassifier is a test double that replays a scripted sequence of
// responses and records every request it receives. A zero value abstains
// forever.
type ScriptedClassifier struct {
	mu       sync.Mutex
	script   []scriptedStep
	requests []Request
	delay    time.Duration
}

type scriptedStep struct {
	resp Response
	err  error
}

// NewScriptedClassifier creates an empty script.
func NewScriptedClassifier() *ScriptedClassifier {
	return &ScriptedClassifier{}
}

// Respond appends a successful response to the script.
func (s *ScriptedClassifier) Respond(resp Response) *ScriptedClassifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, scriptedStep{resp: resp})
	return s
}

// Fail appends an error step to the script.
func (s *ScriptedClassifier) Fail(err error) *ScriptedClassifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, scriptedStep{err: err})
	return s
}

// WithDelay makes every call block for d first, so timeout behavior can be
// exercised deterministically.
func (s *ScriptedClassifier) WithDelay(d time.Duration) *ScriptedClassifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// Classify implements Classifier by consuming the script in order. An
// exhausted script abstains.
func (s *ScriptedClassifier) Classify(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	delay := s.delay
	var step scriptedStep
	hasStep := len(s.script) > 0
	if hasStep {
		step = s.script[0]
		s.script = s.script[1:]
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return Response{}, ctx.Err()
	}
	if !hasStep {
		return Response{Decision: DecisionAbstain}, nil
	}
	if step.err != nil {
		return Response{}, step.err
	}
	return step.resp, nil
}

// Requests returns a copy of every request seen so far.
func (s *ScriptedClassifier) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Calls returns how many classification calls were made.
func (s *ScriptedClassifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
