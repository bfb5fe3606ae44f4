package transport

import (
	"context"

	"github.com/castellet/agentgate/pkg/api"
)

// Meta is the out-of-band transport metadata accompanying one call. The
// session token and accept set are carried as header-equivalent fields,
// outside the envelope body.
type Meta struct {
	// SessionToken is the caller's session token, empty on a first call.
	SessionToken string

	// Accept is the caller-declared accept set for this call.
	Accept api.AcceptSet
}

// CallHandler processes one inbound call and writes the result, in either
// response mode, to the CallWriter.
type CallHandler interface {
	HandleCall(ctx context.Context, call *api.Call, meta Meta, w CallWriter) error
}

// CallHandlerFunc adapts an ordinary function to a CallHandler.
type CallHandlerFunc func(ctx context.Context, call *api.Call, meta Meta, w CallWriter) error

// HandleCall calls f(ctx, call, meta, w).
func (f CallHandlerFunc) HandleCall(ctx context.Context, call *api.Call, meta Meta, w CallWriter) error {
	return f(ctx, call, meta, w)
}

// CallService is the full engine boundary the transport serves: the call
// entry point plus the resume and cancel companions.
type CallService interface {
	CallHandler

	// Resume returns the events of a streamed call with sequence numbers
	// greater than after, first the buffered suffix, then live events
	// until the terminal one. It fails with a resume-unavailable error
	// when the call is unknown or its replay buffer is gone.
	Resume(ctx context.Context, sessionToken, callID string, after int) (<-chan api.StreamEvent, error)

	// Cancel stops an in-flight call. It reports whether the call was
	// found and cancelled.
	Cancel(sessionToken, callID string) bool
}

// CallWriter abstracts streaming and non-streaming output. The transport
// creates one per request; the dispatcher uses WriteEvent for streamed
// calls or WriteResponse for immediate ones. The two are mutually
// exclusive on a single writer, and WriteEvent fails after a terminal
// event has been written.
type CallWriter interface {
	// SetSessionToken records the session token to deliver to the caller
	// exactly once, before or alongside the first write.
	SetSessionToken(token string)

	// WriteEvent sends one framed stream event.
	WriteEvent(ctx context.Context, ev api.StreamEvent) error

	// WriteResponse sends a complete immediate response.
	WriteResponse(ctx context.Context, resp *api.Response) error

	// Flush pushes buffered data to the caller.
	Flush() error
}
