// Package api defines the wire-level protocol types for the agentgate
// transport engine: the inbound call envelope, the immediate response body,
// the streamed event representation, the error taxonomy, and the per-call
// state machine.
//
// These types are shared by the transport layer, the dispatcher, and the
// client. They carry no behavior beyond validation and serialization; all
// protocol logic lives in the packages that consume them.
package api
