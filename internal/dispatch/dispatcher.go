// Package dispatch implements the tier chain that turns one user utterance
// into exactly one decision. Tiers are evaluated in strict priority order;
// the first to fire ends the turn, and the terminal tier always fires.
// The dispatcher is a pure function over the session state: it reads the
// state it is handed and returns mutation requests, never writing them
// itself, so a turn's effects apply atomically at the caller.
package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kmarchand/navigator/internal/classify"
	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/grounding"
	"github.com/kmarchand/navigator/internal/match"
	"github.com/kmarchand/navigator/internal/session"
	"github.com/kmarchand/navigator/internal/telemetry"
)

// DefaultSuppressionWindow is how many turns a repeated stop phrase gets a
// short acknowledgement instead of another confirm prompt.
const DefaultSuppressionWindow = 2

// Dispatcher evaluates the tier chain. One Dispatcher serves any number of
// sessions; all per-conversation state lives in session.State.
type Dispatcher struct {
	vocab            *match.Vocabulary
	classifier       *classify.Guard
	bus              telemetry.Publisher
	policy           grounding.Policy
	suppressionTurns int
	capabilities     []dialog.Candidate
	log              zerolog.Logger
	stats            Stats
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClassifier attaches the guarded classifier used by tiers 1 and 5.
// Without one, both tiers fall back to deterministic confirm/clarify prompts.
func WithClassifier(g *classify.Guard) Option {
	return func(d *Dispatcher) { d.classifier = g }
}

// WithTelemetry attaches the event sink. Publishing is fire-and-forget.
func WithTelemetry(p telemetry.Publisher) Option {
	return func(d *Dispatcher) { d.bus = p }
}

// WithPolicy sets the snapshot-versus-widget grounding precedence.
func WithPolicy(p grounding.Policy) Option {
	return func(d *Dispatcher) { d.policy = p }
}

// WithSuppressionWindow overrides the repeat-stop suppression window.
func WithSuppressionWindow(turns int) Option {
	return func(d *Dispatcher) {
		if turns > 0 {
			d.suppressionTurns = turns
		}
	}
}

// New creates a Dispatcher over the given command vocabulary.
func New(vocab *match.Vocabulary, log zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		vocab:            vocab,
		bus:              telemetry.NopPublisher{},
		suppressionTurns: DefaultSuppressionWindow,
		log:              log,
	}
	for _, opt := range opts {
		opt(d)
	}
	if vocab != nil {
		for _, c := range vocab.Commands() {
			d.capabilities = append(d.capabilities, dialog.Candidate{
				ID:    c.ActionID,
				Label: c.Noun,
				Kind:  dialog.CandidateCapability,
			})
		}
	}
	return d
}

// Stats returns the per-tier invocation counters.
func (d *Dispatcher) Stats() *Stats {
	return &d.stats
}

// turn bundles one dispatch evaluation. It accumulates mutation requests as
// the tiers run; nothing touches the state until the caller applies them.
type turn struct {
	d          *Dispatcher
	ctx        context.Context
	in         dialog.TurnInput
	st         *session.State
	norm       string
	exit       match.ExitKind
	isQuestion bool
	muts       []session.Mutation
}

func (t *turn) mutate(m session.Mutation) {
	t.muts = append(t.muts, m)
}

// Dispatch resolves one utterance into a decision and the mutations the
// caller applies on accepting it. It is total: some tier always fires.
func (d *Dispatcher) Dispatch(ctx context.Context, in dialog.TurnInput, st *session.State) (Decision, []session.Mutation) {
	if in.Normalized == "" {
		in.Normalized = match.Normalize(in.Raw)
	}
	t := &turn{
		d:          d,
		ctx:        ctx,
		in:         in,
		st:         st,
		norm:       in.Normalized,
		exit:       match.ClassifyExit(in.Normalized),
		isQuestion: match.IsQuestion(in.Raw),
	}

	ev := telemetry.NewEvent(telemetry.EventTurn)
	ev.SessionID = st.ID
	ev.Turn = st.Turn
	ev.Detail = t.norm
	d.bus.Publish(ev)

	// Stop suppression resets on the first non-exit input, before any tier
	// logic runs.
	if t.exit == match.ExitNone && st.StopSuppression > 0 {
		t.mutate(session.ResetStopSuppression{})
	}

	tiers := []func() (Decision, bool){
		t.tier0Safety,
		t.tier1Return,
		t.tier2Interrupt,
		t.tier3Selection,
		t.tier4Command,
		t.tier5Grounding,
		t.tier6Retrieval,
	}

	for i, tier := range tiers {
		d.stats.markEvaluated(i)
		dec, fired := tier()
		if !fired {
			continue
		}
		d.stats.markFired(i)
		t.mutate(session.TickCounters{})

		fe := telemetry.NewEvent(telemetry.EventTierFired)
		fe.SessionID = st.ID
		fe.Turn = st.Turn
		fe.Tier = i
		d.bus.Publish(fe)

		de := telemetry.NewEvent(telemetry.EventDecision)
		de.SessionID = st.ID
		de.Turn = st.Turn
		de.Tier = i
		de.Outcome = string(dec.Kind)
		d.bus.Publish(de)

		d.log.Debug().
			Str("session", st.ID).
			Int("tier", i).
			Str("decision", string(dec.Kind)).
			Msg("turn dispatched")
		return dec, t.muts
	}

	// The terminal tier always fires; this is unreachable but keeps the
	// function total even if the chain is misassembled.
	d.stats.markFired(TierCount - 1)
	t.mutate(session.TickCounters{})
	return retrieve(TierCount-1, strings.TrimSpace(in.Raw)), t.muts
}

// classifyGuarded runs one guarded classifier call and publishes its outcome.
func (t *turn) classifyGuarded(req classify.Request) (classify.Response, classify.Outcome) {
	start := time.Now()
	resp, outcome := t.d.classifier.Classify(t.ctx, req)

	ev := telemetry.NewEvent(telemetry.EventLLMOutcome)
	ev.SessionID = t.st.ID
	ev.Turn = t.st.Turn
	ev.Outcome = string(outcome)
	ev.Detail = string(req.Task)
	ev.DurationMs = time.Since(start).Milliseconds()
	t.d.bus.Publish(ev)

	return resp, outcome
}

func (t *turn) publishSnapshot(transition string) {
	ev := telemetry.NewEvent(telemetry.EventSnapshotTransition)
	ev.SessionID = t.st.ID
	ev.Turn = t.st.Turn
	ev.Transition = transition
	t.d.bus.Publish(ev)
}

func (t *turn) publishLatch(transition string) {
	ev := telemetry.NewEvent(telemetry.EventLatchTransition)
	ev.SessionID = t.st.ID
	ev.Turn = t.st.Turn
	ev.Transition = transition
	t.d.bus.Publish(ev)
}

// pauseActive moves a live option list into the snapshot slot.
func (t *turn) pauseActive(reason session.PausedReason) {
	if t.st.Active == nil {
		return
	}
	t.mutate(session.PauseActiveList{Reason: reason})
	t.publishSnapshot("paused:" + string(reason))
}

// candidateOptions renders grounding candidates as clarification options for
// a grounded prompt.
func candidateOptions(cands []dialog.Candidate) []dialog.ClarificationOption {
	opts := make([]dialog.ClarificationOption, 0, len(cands))
	for _, c := range cands {
		kind := dialog.OptionExecutable
		if c.Kind == dialog.CandidateReferent {
			kind = dialog.OptionDescriptive
		}
		opts = append(opts, dialog.ClarificationOption{ID: c.ID, Label: c.Label, Kind: kind})
	}
	return opts
}
