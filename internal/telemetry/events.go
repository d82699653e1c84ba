// Package telemetry is the in-process event bus for routing observability.
// Every tier firing, classifier outcome, and snapshot/latch transition is
// published as a structured event; subscribers (log sink, websocket stream,
// tests) consume them fire-and-forget. A slow or failing subscriber never
// affects routing: publishes drop rather than block.
package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags what a telemetry event describes.
type EventType string

const (
	// EventTurn is published when a turn enters the dispatcher.
	EventTurn EventType = "turn"
	// EventTierFired is published when a tier produces the turn's decision.
	EventTierFired EventType = "tier_fired"
	// EventLLMOutcome is published per guarded classifier call.
	EventLLMOutcome EventType = "llm_outcome"
	// EventSnapshotTransition is published on pause/resume/clear of the
	// option-list snapshot.
	EventSnapshotTransition EventType = "snapshot_transition"
	// EventLatchTransition is published on focus latch phase changes.
	EventLatchTransition EventType = "latch_transition"
	// EventDecision is published with the turn's final decision.
	EventDecision EventType = "decision"
)

// Event is a single structured telemetry record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	// SessionID ties the event to a conversation.
	SessionID string `json:"session_id,omitempty"`
	// Turn is the session turn epoch the event belongs to.
	Turn int `json:"turn,omitempty"`

	// Tier is the tier number for tier_fired events.
	Tier int `json:"tier,omitempty"`
	// Outcome carries the classifier outcome or decision kind.
	Outcome string `json:"outcome,omitempty"`
	// Transition describes a snapshot/latch state change ("paused:interrupt",
	// "pending->resolved").
	Transition string `json:"transition,omitempty"`

	// Detail is free-form context (matched phrase, candidate count).
	Detail string `json:"detail,omitempty"`
	// DurationMs is set for events that wrap a timed call.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// NewEvent stamps a fresh event of the given type.
func NewEvent(t EventType) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      t,
	}
}
