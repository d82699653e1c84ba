package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kmarchand/navigator/internal/classify"
	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/grounding"
	"github.com/kmarchand/navigator/internal/match"
	"github.com/kmarchand/navigator/internal/session"
)

// Identifiers for the binary return/not-return classification on tier 1.
const (
	returnChoiceYes = "return.yes"
	returnChoiceNo  = "return.no"
)

// tier0Safety handles stop/exit phrases and answers to a pending exit
// confirm. Explicit exits end the session immediately; ambiguous stops ask
// once and then suppress repeated confirms for a bounded window.
func (t *turn) tier0Safety() (Decision, bool) {
	if c := t.st.PendingConfirm; c != nil && c.Kind == session.ConfirmExit {
		switch match.ClassifyStance(t.norm) {
		case match.StanceAffirm:
			t.mutate(session.ClearConfirm{})
			return execute(0, Action{ID: ActionExit, Label: "exit"}), true
		case match.StanceReject:
			t.mutate(session.ClearConfirm{})
			prompt := "Okay, not stopping."
			if t.st.Paused != nil {
				prompt += ` Say "back" to pick up your options again.`
			}
			return clarify(0, prompt), true
		case match.StanceHesitant:
			return clarify(0, "No rush. Should I stop? (yes/no)"), true
		default:
			// Real content: the user moved on, drop the question.
			t.mutate(session.ClearConfirm{})
		}
	}

	switch t.exit {
	case match.ExitExplicit:
		t.mutate(session.ClearConfirm{})
		return execute(0, Action{ID: ActionExit, Label: "exit"}), true
	case match.ExitAmbiguous:
		if t.st.StopSuppression > 0 {
			// Already asked on a previous stop; acknowledge instead of
			// looping the confirm.
			t.mutate(session.SetStopSuppression{Turns: t.d.suppressionTurns})
			return clarify(0, "Okay."), true
		}
		t.pauseActive(session.PausedStop)
		t.mutate(session.SetConfirm{Confirm: session.Confirm{Kind: session.ConfirmExit}})
		t.mutate(session.SetStopSuppression{Turns: t.d.suppressionTurns})
		return clarify(0, "Do you want to stop? (yes/no)"), true
	}
	return Decision{}, false
}

// tier1Return handles return/resume/repair: answers to pending return and
// near-command confirms, deterministic return cues, ordinals against a paused
// snapshot, and the binary return-intent classification on weak signals.
func (t *turn) tier1Return() (Decision, bool) {
	if c := t.st.PendingConfirm; c != nil {
		if dec, fired := t.answerConfirm(c); fired {
			return dec, true
		}
	}

	if _, ok := match.MatchReturnCue(t.norm); ok {
		latched := t.st.Latch.Engaged()
		if latched {
			t.mutate(session.LatchSuspend{})
			t.publishLatch("suspended")
		}
		switch {
		case t.st.Paused != nil:
			return t.resumePaused(1)
		case t.st.Active != nil:
			return clarify(1, "You're back with these options:", t.st.Active.Options...), true
		case latched:
			return clarify(1, "Back to the chat."), true
		default:
			return clarify(1, "There's nothing to go back to yet."), true
		}
	}

	if t.st.Paused == nil {
		return Decision{}, false
	}

	// Ordinal against the paused list. Stop-paused snapshots never take
	// ordinals; interrupt-paused ones only when nothing else list-like is
	// competing for the position.
	if ord, ok := match.MatchOrdinal(t.norm, len(t.st.Paused.Options)); ok {
		if t.st.HasListContext(t.in.Widgets) || t.st.Latch.Engaged() {
			// A visible list or latched surface owns the position.
			return Decision{}, false
		}
		if t.st.Paused.PausedReason == session.PausedStop {
			return clarify(1, `Those options were stopped. Say "back" if you want them again.`), true
		}
		opt := t.st.Paused.Options[ord.Index]
		t.mutate(session.ClearPaused{})
		t.publishSnapshot("cleared")
		t.mutate(session.PushReferent{Referent: dialog.Candidate{ID: opt.ID, Label: opt.Label, Kind: dialog.CandidateAction}})
		return Decision{Kind: KindSelect, Tier: 1, Option: &opt}, true
	}

	// Weak return hints escalate to a binary classification. A miss there is
	// never a silent fallthrough: abstain, timeout, and errors all become an
	// explicit confirm.
	if match.LooksLikeReturn(t.norm) {
		if t.d.classifier != nil {
			resp, outcome := t.classifyGuarded(classify.Request{
				Input:  t.norm,
				Task:   classify.TaskReturnIntent,
				Intent: t.st.Paused.OriginalIntent,
				Candidates: []dialog.Candidate{
					{ID: returnChoiceYes, Label: "return to the paused options", Kind: dialog.CandidateAction},
					{ID: returnChoiceNo, Label: "something else", Kind: dialog.CandidateAction},
				},
			})
			if outcome == classify.OutcomeSelect {
				if resp.ChoiceID == returnChoiceYes {
					return t.resumePaused(1)
				}
				// Confidently not a return; the rest of the chain owns it.
				return Decision{}, false
			}
		}
		t.mutate(session.SetConfirm{Confirm: session.Confirm{Kind: session.ConfirmReturn}})
		return clarify(1, "Did you want to go back to your earlier options? (yes/no)"), true
	}

	return Decision{}, false
}

// answerConfirm resolves a pending return or near-command confirmation.
func (t *turn) answerConfirm(c *session.Confirm) (Decision, bool) {
	stance := match.ClassifyStance(t.norm)
	switch c.Kind {
	case session.ConfirmReturn:
		switch stance {
		case match.StanceAffirm:
			t.mutate(session.ClearConfirm{})
			return t.resumePaused(1)
		case match.StanceReject:
			t.mutate(session.ClearConfirm{})
			return clarify(1, "Okay, leaving those aside."), true
		case match.StanceHesitant:
			return clarify(1, "They're still here if you want them. Go back? (yes/no)"), true
		default:
			t.mutate(session.ClearConfirm{})
		}
	case session.ConfirmCommand:
		switch stance {
		case match.StanceAffirm:
			t.mutate(session.ClearConfirm{})
			t.mutate(session.PushReferent{Referent: dialog.Candidate{ID: c.ActionID, Label: c.Label, Kind: dialog.CandidateAction}})
			return execute(1, Action{ID: c.ActionID, Label: c.Label}), true
		case match.StanceReject:
			t.mutate(session.ClearConfirm{})
			return clarify(1, "Okay. What would you like to open instead?"), true
		case match.StanceHesitant:
			return clarify(1, fmt.Sprintf("Should I open %q? (yes/no)", c.Label)), true
		default:
			t.mutate(session.ClearConfirm{})
		}
	}
	return Decision{}, false
}

// resumePaused restores the snapshot as the active list and re-presents its
// options, ids and order untouched.
func (t *turn) resumePaused(tier int) (Decision, bool) {
	opts := t.st.Paused.Options
	prompt := "Here are your options again:"
	if intent := t.st.Paused.OriginalIntent; intent != "" {
		prompt = fmt.Sprintf("Back to %s:", intent)
	}
	t.mutate(session.ResumePaused{})
	t.publishSnapshot("resumed")
	return clarify(tier, prompt, opts...), true
}

// tier2Interrupt handles new-topic imperative commands, preview shortcuts,
// and multi-target disambiguation. Firing pauses, never destroys, a live
// option list.
func (t *turn) tier2Interrupt() (Decision, bool) {
	// Questions route to retrieval; they never read as commands.
	if t.isQuestion || t.d.vocab == nil {
		return Decision{}, false
	}

	norm := t.norm
	preview := false
	if t.in.Flags.PreviewEnabled {
		if rest, ok := strings.CutPrefix(norm, "preview "); ok {
			norm = rest
			preview = true
		}
	}

	if m, ok := t.d.vocab.MatchExact(norm); ok && (m.Imperative || preview) {
		return t.fireCommand(2, m.Command, preview)
	}

	noun, imperative := match.SplitCommand(norm)
	if !imperative && !preview || noun == "" || match.IsReferential(noun) {
		return Decision{}, false
	}
	hits := t.d.vocab.MatchPartial(noun)
	switch {
	case len(hits) == 1:
		return t.fireCommand(2, hits[0], preview)
	case len(hits) > 1:
		cands := make([]dialog.Candidate, 0, len(hits))
		for _, h := range hits {
			cands = append(cands, dialog.Candidate{ID: h.ActionID, Label: h.Noun, Kind: dialog.CandidateAction})
		}
		t.pauseActive(session.PausedInterrupt)
		set := session.NewActiveOptionSet(candidateOptions(cands), noun, "disambiguation")
		t.mutate(session.SetActiveList{Set: set})
		return ambiguous(2, fmt.Sprintf("A few things match %q. Which one?", noun), cands), true
	}
	return Decision{}, false
}

// fireCommand executes a vocabulary command, pausing any live list first.
func (t *turn) fireCommand(tier int, cmd match.Command, preview bool) (Decision, bool) {
	t.pauseActive(session.PausedInterrupt)
	t.mutate(session.ClearConfirm{})
	t.mutate(session.PushReferent{Referent: dialog.Candidate{ID: cmd.ActionID, Label: cmd.Noun, Kind: dialog.CandidateAction}})
	return execute(tier, Action{ID: cmd.ActionID, Label: cmd.Noun, Preview: preview}), true
}

// tier3Selection resolves strictly selection-like input against the latched
// surface or the active option list. The latch owns selection input while
// engaged: a stale chat list never claims it.
func (t *turn) tier3Selection() (Decision, bool) {
	if items, surfaceID, ok := t.st.LatchedItems(t.in.Widgets); ok && len(items) > 0 {
		if ord, ok := match.MatchOrdinal(t.norm, len(items)); ok {
			opt := items[ord.Index]
			t.mutate(session.PushReferent{Referent: dialog.Candidate{ID: opt.ID, Label: opt.Label, Kind: dialog.CandidateAction}})
			return selectLatched(3, opt, surfaceID), true
		}
		if hit, ok := match.MatchLabel(t.norm, items, match.Permissive); ok {
			t.mutate(session.PushReferent{Referent: dialog.Candidate{ID: hit.Option.ID, Label: hit.Option.Label, Kind: dialog.CandidateAction}})
			return selectLatched(3, hit.Option, surfaceID), true
		}
		if match.IsSelectionLike(t.norm, len(items)) {
			return clarify(3, "Which one in the open panel?", items...), true
		}
		// Not a selection; the rest of the chain keeps the turn.
	}

	if t.st.Active == nil || len(t.st.Active.Options) == 0 {
		return Decision{}, false
	}
	opts := t.st.Active.Options

	if ord, ok := match.MatchOrdinal(t.norm, len(opts)); ok {
		return t.selectFromActive(ord.Index)
	}
	// Bare cardinals ("three") are safe here: an awaiting list is exactly
	// the selection-like context MatchNumberWord requires.
	if ord, ok := match.MatchNumberWord(t.norm, len(opts)); ok {
		return t.selectFromActive(ord.Index)
	}
	if hit, ok := match.MatchLabel(t.norm, opts, match.Permissive); ok {
		return t.selectFromActive(hit.Index)
	}
	if hits := match.MatchLabelAll(t.norm, opts, match.Permissive); len(hits) > 1 {
		cands := make([]dialog.Candidate, 0, len(hits))
		for _, h := range hits {
			cands = append(cands, dialog.Candidate{ID: h.Option.ID, Label: h.Option.Label, Kind: dialog.CandidateAction})
		}
		return ambiguous(3, "Which one did you mean?", cands), true
	}

	switch match.ClassifyStance(t.norm) {
	case match.StanceAffirm:
		if len(opts) == 1 {
			return t.selectFromActive(0)
		}
		return clarify(3, "Which one?", opts...), true
	case match.StanceReject:
		t.mutate(session.ClearActiveList{})
		return clarify(3, "Okay, none of those. What would you like instead?"), true
	case match.StanceHesitant:
		return clarify(3, "Take your time, the options are still here:", opts...), true
	case match.StanceNoise:
		return clarify(3, "Sorry, I didn't catch that. The options are:", opts...), true
	}

	return Decision{}, false
}

// selectFromActive resolves the active list to one option and retires the
// list. Selecting an executable option arms the focus latch for the surface
// it is about to open.
func (t *turn) selectFromActive(idx int) (Decision, bool) {
	set := t.st.Active
	opt := set.Options[idx]
	t.mutate(session.ClearActiveList{})
	t.mutate(session.ClearConfirm{})
	t.mutate(session.PushReferent{Referent: dialog.Candidate{ID: opt.ID, Label: opt.Label, Kind: dialog.CandidateAction}})
	if opt.Kind == dialog.OptionExecutable {
		t.mutate(session.LatchPend{AwaitedRef: opt.ID})
		t.publishLatch("none->pending")
	}
	return selectOption(3, opt, set.SetID), true
}

// tier4Command routes fixed-vocabulary noun commands: exact match fires even
// over an active list; a near-match needs confirmation and never fires while
// a list is awaiting selection.
func (t *turn) tier4Command() (Decision, bool) {
	if t.isQuestion || t.d.vocab == nil {
		return Decision{}, false
	}
	if m, ok := t.d.vocab.MatchExact(t.norm); ok {
		return t.fireCommand(4, m.Command, false)
	}
	if t.st.Active == nil {
		if near, ok := t.d.vocab.MatchNear(t.norm); ok {
			t.mutate(session.SetConfirm{Confirm: session.Confirm{
				Kind:     session.ConfirmCommand,
				ActionID: near.Command.ActionID,
				Label:    near.Command.Noun,
			}})
			return clarify(4, fmt.Sprintf("Did you mean %q? (yes/no)", near.Command.Noun)), true
		}
	}
	return Decision{}, false
}

// tier5Grounding builds the turn's grounding sets, applies the strict
// raw-exact resolver, and only then escalates selection-like or referential
// input to the constrained classifier. A classifier miss always produces a
// grounded clarifying question over real candidates.
func (t *turn) tier5Grounding() (Decision, bool) {
	if t.isQuestion {
		return Decision{}, false
	}

	sets := grounding.Build(grounding.BuildContext{
		Active:       t.st.Active,
		Widgets:      t.in.Widgets,
		Paused:       t.st.Paused,
		Recent:       t.st.RecentReferents,
		Capabilities: t.d.capabilities,
		Policy:       t.d.policy,
	})

	noun, imperative := match.SplitCommand(t.norm)

	// Strict resolver against the raw input, never a transformed copy.
	raw := strings.TrimSpace(t.in.Raw)
	stopPaused := t.st.Paused != nil && t.st.Paused.PausedReason == session.PausedStop
	for _, g := range sets {
		allowOrdinal := !(g.Source == dialog.SourcePausedList && stopPaused)
		cand, ok := resolveRawExact(raw, g, allowOrdinal)
		if !ok {
			continue
		}
		switch g.Source {
		case dialog.SourcePausedList:
			t.mutate(session.ClearPaused{})
			t.publishSnapshot("cleared")
		case dialog.SourceActiveList:
			t.mutate(session.ClearActiveList{})
		}
		t.mutate(session.PushReferent{Referent: cand})
		return selectCandidate(5, cand), true
	}

	selectionLike := match.IsSelectionLike(t.norm, grounding.ListCap) || match.IsReferential(t.norm)
	if !selectionLike {
		// A verb-led reference that grounds nowhere gets a graceful unknown
		// rather than a retrieval guess.
		if imperative && noun != "" && !match.IsReferential(noun) {
			return clarify(5, fmt.Sprintf("I don't know %q here. I can take you to:", noun),
				candidateOptions(t.d.capabilities)...), true
		}
		return Decision{}, false
	}

	flat := grounding.Flatten(sets)
	if len(flat) > grounding.ListCap {
		flat = flat[:grounding.ListCap]
	}
	if len(flat) == 0 {
		return Decision{}, false
	}

	if t.d.classifier != nil {
		resp, outcome := t.classifyGuarded(classify.Request{
			Input:      t.norm,
			Candidates: flat,
			Task:       classify.TaskSelect,
		})
		if outcome == classify.OutcomeSelect {
			if cand, ok := dialog.CandidateByID(flat, resp.ChoiceID); ok {
				t.mutate(session.PushReferent{Referent: cand})
				return selectCandidate(5, cand), true
			}
		}
	}

	return clarify(5, "I'm not sure which one you mean. Did you want one of these?",
		candidateOptions(flat)...), true
}

// resolveRawExact applies the strict resolver to one grounding set: exact
// label equality, a bare one-based position, or a single badge letter.
func resolveRawExact(raw string, g dialog.GroundingSet, allowOrdinal bool) (dialog.Candidate, bool) {
	for _, c := range g.Candidates {
		if strings.EqualFold(raw, c.Label) {
			return c, true
		}
	}
	if !allowOrdinal || !g.IsList {
		return dialog.Candidate{}, false
	}
	trim := strings.ToLower(strings.TrimSpace(raw))
	if v, err := strconv.Atoi(trim); err == nil && v >= 1 && v <= len(g.Candidates) {
		return g.Candidates[v-1], true
	}
	if len(trim) == 1 && trim[0] >= 'a' && trim[0] <= 'l' && int(trim[0]-'a') < len(g.Candidates) {
		return g.Candidates[trim[0]-'a'], true
	}
	return dialog.Candidate{}, false
}

// tier6Retrieval is terminal: anything unresolved is a general query, or a
// capability pointer when retrieval is disabled for the session.
func (t *turn) tier6Retrieval() (Decision, bool) {
	if !t.in.Flags.RetrievalEnabled {
		return clarify(6, "I can't look that up here, but I can take you places:",
			candidateOptions(t.d.capabilities)...), true
	}
	return retrieve(6, strings.TrimSpace(t.in.Raw)), true
}
