package negotiate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/castellet/agentgate/pkg/api"
	"github.com/castellet/agentgate/pkg/session"
)

func TestDecide(t *testing.T) {
	cfg := Config{
		ParamsSizeThreshold: 64,
		StreamingMethods:    []string{"chat"},
	}
	bigParams := json.RawMessage(`{"msg":"` + strings.Repeat("x", 100) + `"}`)

	tests := []struct {
		name   string
		caps   session.Capabilities
		call   *api.Call
		accept api.AcceptSet
		want   Mode
	}{
		{
			name:   "session without streaming is always immediate",
			caps:   session.Capabilities{},
			call:   &api.Call{ID: "1", Method: "chat", Params: bigParams},
			accept: api.AcceptSet{Streaming: true},
			want:   ModeImmediate,
		},
		{
			name:   "per-call accept excluding streaming is immediate",
			caps:   session.Capabilities{Streaming: true},
			call:   &api.Call{ID: "1", Method: "chat", Params: bigParams},
			accept: api.AcceptSet{},
			want:   ModeImmediate,
		},
		{
			name:   "long-running method streams",
			caps:   session.Capabilities{Streaming: true},
			call:   &api.Call{ID: "1", Method: "chat", Params: json.RawMessage(`{"msg":"hi"}`)},
			accept: api.AcceptSet{Streaming: true},
			want:   ModeStreamed,
		},
		{
			name:   "large params stream",
			caps:   session.Capabilities{Streaming: true},
			call:   &api.Call{ID: "1", Method: "echo", Params: bigParams},
			accept: api.AcceptSet{Streaming: true},
			want:   ModeStreamed,
		},
		{
			name:   "simple call is immediate",
			caps:   session.Capabilities{Streaming: true},
			call:   &api.Call{ID: "1", Method: "echo", Params: json.RawMessage(`{"msg":"hi"}`)},
			accept: api.AcceptSet{Streaming: true},
			want:   ModeImmediate,
		},
		{
			name:   "no params is immediate",
			caps:   session.Capabilities{Streaming: true},
			call:   &api.Call{ID: "1", Method: "capabilities"},
			accept: api.AcceptSet{Streaming: true},
			want:   ModeImmediate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.caps, tt.call, tt.accept, cfg); got != tt.want {
				t.Errorf("Decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Rule 2 holds for every call shape: an accept set excluding streaming
// yields immediate mode regardless of size or method class.
func TestAcceptExclusionBeatsHeuristic(t *testing.T) {
	cfg := DefaultConfig()
	caps := session.Capabilities{Streaming: true, Resume: true}

	calls := []*api.Call{
		{ID: "1", Method: "chat"},
		{ID: "2", Method: "generate", Params: json.RawMessage(`"` + strings.Repeat("y", 4096) + `"`)},
		{ID: "3", Method: "echo", Params: json.RawMessage(`"` + strings.Repeat("y", 8192) + `"`)},
	}

	for _, call := range calls {
		if got := Decide(caps, call, api.AcceptSet{Streaming: false}, cfg); got != ModeImmediate {
			t.Errorf("Decide(%s) = %v, want ModeImmediate", call.Method, got)
		}
	}
}

func TestDecideIsPure(t *testing.T) {
	cfg := DefaultConfig()
	caps := session.Capabilities{Streaming: true}
	call := &api.Call{ID: "1", Method: "chat"}
	accept := api.AcceptSet{Streaming: true}

	first := Decide(caps, call, accept, cfg)
	for i := 0; i < 10; i++ {
		if got := Decide(caps, call, accept, cfg); got != first {
			t.Fatal("Decide is not deterministic for identical inputs")
		}
	}
}

func TestModeString(t *testing.T) {
	if ModeImmediate.String() != "immediate" || ModeStreamed.String() != "streamed" {
		t.Error("unexpected mode names")
	}
}
