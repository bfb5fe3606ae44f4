// Package transport defines the handler contracts and middleware chain
// for the agentgate call transport.
//
// The transport layer bridges external callers and the call dispatcher.
// It deserializes inbound envelopes into the protocol types in pkg/api,
// hands them to a CallService, and serializes the outcome back to the
// caller in either immediate (JSON) or streamed (framed event) form.
//
// # Contracts
//
//   - CallService is the engine boundary: one entry point per call, plus
//     resume and cancel companions.
//   - CallWriter abstracts the two response modes so the dispatcher can
//     emit a complete payload or a framed event sequence without knowing
//     the underlying protocol.
//   - Meta carries out-of-band transport metadata: the optional session
//     token and the caller-declared accept set. Both travel as
//     header-equivalent fields, never inside the envelope body.
//
// # Middleware
//
// Middleware wraps the call path with cross-cutting behavior: panic
// recovery, request ID assignment, and structured logging via log/slog.
package transport
