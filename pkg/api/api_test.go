package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewSessionIDShape(t *testing.T) {
	id := NewSessionID()
	if !strings.HasPrefix(id, "sess_") {
		t.Errorf("session ID %q missing sess_ prefix", id)
	}
	if len(id) != len("sess_")+24 {
		t.Errorf("session ID %q has length %d, want %d", id, len(id), len("sess_")+24)
	}
	if !ValidateSessionID(id) {
		t.Errorf("generated session ID %q failed validation", id)
	}
}

func TestSessionIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		if seen[id] {
			t.Fatalf("duplicate session ID %q", id)
		}
		seen[id] = true
	}
}

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "sess_" + strings.Repeat("a", 24), true},
		{"empty", "", false},
		{"wrong prefix", "resp_" + strings.Repeat("a", 24), false},
		{"too short", "sess_abc", false},
		{"too long", "sess_" + strings.Repeat("a", 25), false},
		{"invalid chars", "sess_" + strings.Repeat("!", 24), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateSessionID(tt.id); got != tt.want {
				t.Errorf("ValidateSessionID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidateCallID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"simple", "1", true},
		{"uuid-like", "3f2a9c1e-77b4-4f0e-9d1a-0c8e2b6d4a51", true},
		{"empty", "", false},
		{"space", "call 1", false},
		{"control char", "call\x01", false},
		{"non-ascii", "callé", false},
		{"too long", strings.Repeat("x", 129), false},
		{"max length", strings.Repeat("x", 128), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateCallID(tt.id); got != tt.want {
				t.Errorf("ValidateCallID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidateCall(t *testing.T) {
	tests := []struct {
		name     string
		call     *Call
		wantErr  bool
		wantType ErrorType
	}{
		{"valid", &Call{ID: "1", Method: "echo"}, false, ""},
		{"nil", nil, true, ErrorTypeProtocolViolation},
		{"missing id", &Call{Method: "echo"}, true, ErrorTypeProtocolViolation},
		{"missing method", &Call{ID: "1"}, true, ErrorTypeProtocolViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCall(tt.call)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateCall() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && err.Type != tt.wantType {
				t.Errorf("error type = %q, want %q", err.Type, tt.wantType)
			}
		})
	}
}

func TestEventKindTerminal(t *testing.T) {
	tests := []struct {
		kind EventKind
		want bool
	}{
		{EventStart, false},
		{EventContent, false},
		{EventEnd, true},
		{EventError, true},
	}

	for _, tt := range tests {
		if got := tt.kind.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.kind, got, tt.want)
		}
		if !tt.kind.Valid() {
			t.Errorf("%s.Valid() = false, want true", tt.kind)
		}
	}

	if EventKind("bogus").Valid() {
		t.Error("bogus kind reported valid")
	}
}

func TestCallTransitions(t *testing.T) {
	valid := []struct{ from, to CallState }{
		{"", CallStateReceived},
		{CallStateReceived, CallStateNegotiated},
		{CallStateReceived, CallStateFailed},
		{CallStateNegotiated, CallStateExecuting},
		{CallStateNegotiated, CallStateFailed},
		{CallStateExecuting, CallStateCompleted},
		{CallStateExecuting, CallStateFailed},
	}
	for _, tt := range valid {
		if err := ValidateCallTransition(tt.from, tt.to); err != nil {
			t.Errorf("transition %q -> %q rejected: %v", tt.from, tt.to, err)
		}
	}

	invalid := []struct{ from, to CallState }{
		{CallStateCompleted, CallStateExecuting},
		{CallStateFailed, CallStateReceived},
		{CallStateCompleted, CallStateFailed},
		{CallStateReceived, CallStateCompleted},
		{"", CallStateExecuting},
	}
	for _, tt := range invalid {
		err := ValidateCallTransition(tt.from, tt.to)
		if err == nil {
			t.Errorf("transition %q -> %q accepted, want rejection", tt.from, tt.to)
			continue
		}
		if err.Type != ErrorTypeProtocolViolation {
			t.Errorf("transition %q -> %q error type = %q, want %q", tt.from, tt.to, err.Type, ErrorTypeProtocolViolation)
		}
	}
}

func TestAPIErrorMessage(t *testing.T) {
	withParam := NewInvalidRequestError("id", "bad id")
	if got := withParam.Error(); !strings.Contains(got, "param: id") {
		t.Errorf("Error() = %q, want param mention", got)
	}

	noParam := NewHandlerFailureError("boom")
	if got := noParam.Error(); got != "handler_failure: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorConstructorCodes(t *testing.T) {
	if e := NewTimeoutError("too slow"); e.Type != ErrorTypeHandlerFailure || e.Code != CodeTimeout {
		t.Errorf("timeout error = %+v", e)
	}
	if e := NewCancelledError("gone"); e.Type != ErrorTypeHandlerFailure || e.Code != CodeCancelled {
		t.Errorf("cancelled error = %+v", e)
	}
	if e := NewResumeUnavailableError("gone"); e.Type != ErrorTypeResumeUnavailable {
		t.Errorf("resume error = %+v", e)
	}
}

func TestStreamEventJSONRoundTrip(t *testing.T) {
	ev := StreamEvent{
		Kind:     EventContent,
		CallID:   "call-7",
		Sequence: 3,
		Payload:  json.RawMessage(`{"msg":"hi"}`),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got StreamEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != ev.Kind || got.CallID != ev.CallID || got.Sequence != ev.Sequence {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if string(got.Payload) != string(ev.Payload) {
		t.Errorf("payload = %s, want %s", got.Payload, ev.Payload)
	}
}
