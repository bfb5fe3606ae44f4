package api

import "fmt"

// CallState identifies a call's position in its lifecycle.
type CallState string

const (
	CallStateReceived   CallState = "received"
	CallStateNegotiated CallState = "negotiated"
	CallStateExecuting  CallState = "executing"
	CallStateCompleted  CallState = "completed"
	CallStateFailed     CallState = "failed"
)

// IsTerminal reports whether the state ends a call's lifecycle.
func (s CallState) IsTerminal() bool {
	return s == CallStateCompleted || s == CallStateFailed
}

// ValidateCallTransition checks whether a call state transition is valid.
// An empty "from" state represents the initial state before the call was
// received. Terminal states allow no outgoing transitions: a call that
// completed or failed is never reused to mean progress again.
func ValidateCallTransition(from, to CallState) *APIError {
	valid := map[CallState][]CallState{
		"":                  {CallStateReceived},
		CallStateReceived:   {CallStateNegotiated, CallStateFailed},
		CallStateNegotiated: {CallStateExecuting, CallStateFailed},
		CallStateExecuting:  {CallStateCompleted, CallStateFailed},
	}

	allowed, exists := valid[from]
	if !exists {
		return NewProtocolViolationError(
			fmt.Sprintf("invalid transition from %s to %s", from, to))
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return NewProtocolViolationError(
		fmt.Sprintf("invalid transition from %s to %s", from, to))
}
