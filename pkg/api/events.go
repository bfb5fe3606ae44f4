package api

import "encoding/json"

// EventKind identifies the type of a streamed event.
type EventKind string

const (
	// EventStart opens a call's stream. It is always the first event and
	// carries no payload.
	EventStart EventKind = "start"

	// EventContent carries one opaque payload fragment, in handler order.
	EventContent EventKind = "content"

	// EventError terminates a call's stream with a failure. No events for
	// the call follow it.
	EventError EventKind = "error"

	// EventEnd terminates a call's stream successfully. No events for the
	// call follow it.
	EventEnd EventKind = "end"
)

// IsTerminal reports whether the kind ends a call's stream.
func (k EventKind) IsTerminal() bool {
	return k == EventEnd || k == EventError
}

// Valid reports whether k is one of the four defined kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventStart, EventContent, EventError, EventEnd:
		return true
	}
	return false
}

// StreamEvent is a single event in a streamed response. Sequence numbers
// are strictly increasing per call, starting at 0 with the start event.
// Events from concurrent calls in the same session are demultiplexed by
// CallID.
type StreamEvent struct {
	Kind     EventKind       `json:"kind"`
	CallID   string          `json:"call_id"`
	Sequence int             `json:"sequence"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Error    *APIError       `json:"error,omitempty"`
}
