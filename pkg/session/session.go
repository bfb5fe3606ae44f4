// Package session provides the in-memory session store for the agentgate
// engine. A session is a persistent identity spanning multiple calls from
// the same caller; it carries the capability set negotiated when the
// session was created. Sessions live for the process lifetime at most and
// are removed by a periodic idle-expiry sweep.
package session

import (
	"sync"
	"time"

	"github.com/castellet/agentgate/pkg/api"
)

// Capabilities is the set negotiated at session creation from the first
// call's declared accept set. Later calls may request a mode per call but
// cannot change membership.
type Capabilities struct {
	Streaming bool
	Resume    bool
}

// Session holds per-session state. ID, CreatedAt, and Capabilities are
// immutable after creation; the last-activity timestamp is updated by the
// store on every resolve.
type Session struct {
	ID           string
	CreatedAt    time.Time
	Capabilities Capabilities

	mu         sync.Mutex
	lastActive time.Time
}

// LastActive returns the time of the session's most recent call.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func newSession(accept api.AcceptSet, now time.Time) *Session {
	return &Session{
		ID:        api.NewSessionID(),
		CreatedAt: now,
		Capabilities: Capabilities{
			Streaming: accept.Streaming,
			Resume:    accept.Resume,
		},
		lastActive: now,
	}
}
