package api

import "encoding/json"

// Call is the inbound request envelope: one logical request/response unit
// within a session. The ID is a caller-supplied correlation token, unique
// among the session's outstanding calls, and is echoed back in every
// response or event belonging to this call. Params are opaque to the
// engine and interpreted only by the external handler.
type Call struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the immediate-mode response body. Exactly one of Result or
// Error is set.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *APIError       `json:"error,omitempty"`
}

// AcceptSet is the caller-declared accept capability set for a single
// request. It travels as transport metadata (the Accept header on HTTP),
// not inside the envelope body. The zero value means immediate-only.
type AcceptSet struct {
	Streaming bool
	Resume    bool
}
