package event

import "time"

// Call event types published on the bus.
const (
	TypeCallStarted = "call.started"
	TypeCallTurn    = "call.turn"
	TypeCallEnded   = "call.ended"
)

// Event describes something that happened on a call. Turn events carry the
// spoken role and text; lifecycle events carry the callee identity.
type Event struct {
	Type        string    `json:"type"`
	StreamSID   string    `json:"stream_sid"`
	CalleeName  string    `json:"callee_name,omitempty"`
	CalleePhone string    `json:"callee_phone,omitempty"`
	Role        string    `json:"role,omitempty"`
	Content     string    `json:"content,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
