// Package dispatch implements the per-call state machine of the agentgate
// engine: it resolves the session, negotiates the response mode, executes
// the call through the external handler, and frames streamed output as an
// ordered event sequence with exactly one terminal event. It also keeps
// the per-call replay buffers that back resume after a transient
// disconnect.
package dispatch

import (
	"context"
	"encoding/json"
)

// Handler is the external collaborator executing call bodies: tool
// functions, a generation backend, anything that can answer a (method,
// params) pair. The engine never inspects result or fragment content; it
// only forwards it.
type Handler interface {
	// Invoke executes the call as a single blocking operation returning
	// one complete payload, or a typed error.
	Invoke(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

	// Open starts the call in partial-output mode and returns its
	// fragment source. Open may fail before the first fragment.
	Open(ctx context.Context, method string, params json.RawMessage) (FragmentSource, error)
}

// FragmentSource is a lazy, finite, non-restartable sequence of payload
// fragments produced by the external handler. The dispatcher pulls
// fragments and forwards them in emission order, one content event each;
// it never reorders or batches beyond what the source itself produced.
type FragmentSource interface {
	// Next returns the next fragment. It returns io.EOF when the
	// sequence is complete, or any other error to fail the call.
	Next(ctx context.Context) (json.RawMessage, error)

	// Close releases the source's in-progress state. Safe to call after
	// Next returned an error.
	Close() error
}
