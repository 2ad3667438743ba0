package websocket

import (
	"time"

	"github.com/satriahrh/cocoa-chat/domain"
)

// Frame types exchanged over /ws.
const (
	FrameSubmit = "submit"
	FrameAck    = "ack"
	FrameState  = "state"
	FrameError  = "error"

	FrameShutdown = "shutdown"
)

// Frame is the JSON envelope of every WebSocket message in both directions.
type Frame struct {
	Type      string               `json:"type"`
	SessionID string               `json:"session_id,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	Text      string               `json:"text,omitempty"`
	Accepted  bool                 `json:"accepted,omitempty"`
	State     *domain.SessionState `json:"state,omitempty"`
	Error     *ErrorResponse       `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func stateFrame(state domain.SessionState) Frame {
	return Frame{
		Type:      FrameState,
		SessionID: state.SessionID,
		Timestamp: time.Now().UTC(),
		State:     &state,
	}
}
