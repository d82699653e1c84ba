package server

import (
	"github.com/kmarchand/navigator/internal/dialog"
	"github.com/kmarchand/navigator/internal/dispatch"
)

// Frame types on the session socket.
const (
	FrameTurn             = "turn"
	FrameDecision         = "decision"
	FrameWidgetRegister   = "widget_register"
	FrameWidgetUnregister = "widget_unregister"
	FrameError            = "error"
)

// Frame is the wire envelope for the session socket, both directions. Type
// selects which fields are meaningful.
type Frame struct {
	Type string `json:"type"`

	// Text carries the user input on a turn frame.
	Text string `json:"text,omitempty"`

	// SurfaceID, StableRef and Items describe an external widget surface on
	// register/unregister frames.
	SurfaceID string                       `json:"surface_id,omitempty"`
	StableRef string                       `json:"stable_ref,omitempty"`
	Items     []dialog.ClarificationOption `json:"items,omitempty"`

	// SessionID, Turn and Decision are set on decision frames.
	SessionID string             `json:"session_id,omitempty"`
	Turn      int                `json:"turn,omitempty"`
	Decision  *dispatch.Decision `json:"decision,omitempty"`

	// Message is set on error frames.
	Message string `json:"message,omitempty"`
}

func errorFrame(msg string) Frame {
	return Frame{Type: FrameError, Message: msg}
}

func decisionFrame(sessionID string, turn int, dec dispatch.Decision) Frame {
	return Frame{Type: FrameDecision, SessionID: sessionID, Turn: turn, Decision: &dec}
}
