// Package demo provides a small built-in call handler, useful for
// smoke-testing a deployment and as a reference for writing real
// handlers.
package demo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/castellet/agentgate/pkg/api"
	"github.com/castellet/agentgate/pkg/dispatch"
)

// Handler implements dispatch.Handler with three methods:
//
//   - greeting: returns a greeting for the given name
//   - capabilities: lists the methods this handler supports
//   - chat: echoes the message back word by word as a fragment stream
type Handler struct{}

var _ dispatch.Handler = (*Handler)(nil)

// New returns a demo Handler.
func New() *Handler {
	return &Handler{}
}

type greetingParams struct {
	Name string `json:"name"`
}

type chatParams struct {
	Message string `json:"message"`
}

// Invoke serves the immediate methods.
func (h *Handler) Invoke(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	switch method {
	case "greeting":
		var p greetingParams
		if len(params) > 0 {
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, api.NewHandlerFailureError("greeting: invalid params: " + err.Error())
			}
		}
		if p.Name == "" {
			p.Name = "stranger"
		}
		return json.Marshal(fmt.Sprintf("Hello, %s!", p.Name))

	case "capabilities":
		return json.Marshal(map[string]any{
			"methods": []string{"greeting", "capabilities", "chat"},
		})

	case "chat":
		// Streamed method invoked in immediate mode: deliver the whole
		// reply as one payload.
		frags, err := chatFragments(params)
		if err != nil {
			return nil, err
		}
		return json.Marshal(strings.Join(frags, ""))

	default:
		return nil, api.NewHandlerFailureError("unknown method " + method)
	}
}

// Open serves the streamed methods.
func (h *Handler) Open(ctx context.Context, method string, params json.RawMessage) (dispatch.FragmentSource, error) {
	if method != "chat" {
		return nil, api.NewHandlerFailureError("method " + method + " does not stream")
	}
	frags, err := chatFragments(params)
	if err != nil {
		return nil, err
	}
	return &wordSource{fragments: frags}, nil
}

// chatFragments splits the echoed message into word fragments, keeping
// the separating spaces so the concatenation reproduces the reply.
func chatFragments(params json.RawMessage) ([]string, error) {
	var p chatParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, api.NewHandlerFailureError("chat: invalid params: " + err.Error())
		}
	}
	if p.Message == "" {
		return nil, nil
	}

	words := strings.Fields("You said: " + p.Message)
	frags := make([]string, len(words))
	for i, w := range words {
		if i < len(words)-1 {
			w += " "
		}
		frags[i] = w
	}
	return frags, nil
}

// wordSource yields one pre-split fragment per Next call.
type wordSource struct {
	fragments []string
	idx       int
}

func (s *wordSource) Next(ctx context.Context) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.idx >= len(s.fragments) {
		return nil, io.EOF
	}
	frag := s.fragments[s.idx]
	s.idx++
	return json.Marshal(frag)
}

func (s *wordSource) Close() error { return nil }
