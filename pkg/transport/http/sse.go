package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/castellet/agentgate/pkg/api"
	"github.com/castellet/agentgate/pkg/frame"
	"github.com/castellet/agentgate/pkg/transport"
)

// writerState tracks the state of an HTTP call writer.
type writerState int

const (
	writerIdle      writerState = iota // no writes yet
	writerStreaming                    // WriteEvent has been called at least once
	writerCompleted                    // terminal event sent or WriteResponse called
)

// sseCallWriter implements transport.CallWriter for HTTP responses. It
// handles both streamed (SSE-framed) and immediate (JSON) output; the two
// are mutually exclusive on one writer.
type sseCallWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
	token string

	// onStreamStart is called once, when the first event is written and
	// the response is committed to streamed mode.
	onStreamStart func()
}

var _ transport.CallWriter = (*sseCallWriter)(nil)

// newSSECallWriter creates a CallWriter wrapping an http.ResponseWriter.
// The onStreamStart callback fires when the first event is written (may
// be nil).
func newSSECallWriter(w http.ResponseWriter, onStreamStart func()) *sseCallWriter {
	return &sseCallWriter{
		w:             w,
		rc:            http.NewResponseController(w),
		onStreamStart: onStreamStart,
	}
}

// SetSessionToken records the session token to send with the response.
// It must arrive before the first write; headers are gone after that.
func (s *sseCallWriter) SetSessionToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if s.state == writerIdle {
		s.w.Header().Set(sessionHeader, token)
	}
}

// WriteEvent sends a single framed event and flushes it. After a
// terminal event the writer refuses further writes.
func (s *sseCallWriter) WriteEvent(ctx context.Context, ev api.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write event: writer is completed")
	}

	// First event commits the response to streamed mode.
	if s.state == writerIdle {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.state = writerStreaming
		if s.onStreamStart != nil {
			s.onStreamStart()
			s.onStreamStart = nil
		}
	}

	if err := frame.EncodeTo(s.w, ev); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if ev.Kind.IsTerminal() {
		s.state = writerCompleted
	}
	return nil
}

// WriteResponse sends a complete immediate JSON response. This is
// mutually exclusive with WriteEvent.
func (s *sseCallWriter) WriteResponse(ctx context.Context, resp *api.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write response: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write response: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted

	if err := json.NewEncoder(s.w).Encode(resp); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}

// Flush ensures buffered data is sent to the client.
func (s *sseCallWriter) Flush() error {
	return s.rc.Flush()
}

// hasStartedStreaming reports whether at least one event has been written.
func (s *sseCallWriter) hasStartedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == writerStreaming ||
		(s.state == writerCompleted && s.w.Header().Get("Content-Type") == "text/event-stream")
}
