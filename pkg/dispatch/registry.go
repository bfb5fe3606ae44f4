package dispatch

import (
	"context"
	"sync"
	"time"
)

// callRegistry tracks per-session call state: which call IDs are
// in flight (with their cancel functions, for explicit cancellation),
// which have reached a terminal state (their IDs are never accepted
// again), and the replay buffers of streamed calls.
//
// All methods are safe for concurrent access. The registry never blocks
// while a handler runs; it only guards its own maps.
type callRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionCalls
}

type sessionCalls struct {
	inflight map[string]context.CancelFunc
	terminal map[string]struct{}
	buffers  map[string]*replayBuffer
}

func newCallRegistry() *callRegistry {
	return &callRegistry{
		sessions: make(map[string]*sessionCalls),
	}
}

func (r *callRegistry) forSession(sessionID string) *sessionCalls {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.sessions[sessionID]
	if !ok {
		sc = &sessionCalls{
			inflight: make(map[string]context.CancelFunc),
			terminal: make(map[string]struct{}),
			buffers:  make(map[string]*replayBuffer),
		}
		r.sessions[sessionID] = sc
	}
	return sc
}

// begin registers a call as in flight. It reports false when the ID is
// already in flight or already terminal for the session; such a call must
// be rejected as a protocol violation before execution (a retry must use
// a new call ID).
func (r *callRegistry) begin(sessionID, callID string, cancel context.CancelFunc, buf *replayBuffer) bool {
	sc := r.forSession(sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := sc.terminal[callID]; dup {
		return false
	}
	if _, dup := sc.inflight[callID]; dup {
		return false
	}

	sc.inflight[callID] = cancel
	if buf != nil {
		sc.buffers[callID] = buf
	}
	return true
}

// finish marks a call terminal. Its replay buffer, when present, is
// retained for the grace period and then released.
func (r *callRegistry) finish(sessionID, callID string, grace time.Duration) {
	r.mu.Lock()
	sc, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(sc.inflight, callID)
	sc.terminal[callID] = struct{}{}
	buf := sc.buffers[callID]
	r.mu.Unlock()

	if buf == nil {
		return
	}
	time.AfterFunc(grace, func() {
		buf.release()
		r.mu.Lock()
		if sc, ok := r.sessions[sessionID]; ok {
			delete(sc.buffers, callID)
		}
		r.mu.Unlock()
	})
}

// drop releases a call's replay buffer immediately, before any grace
// period. Used when a call times out.
func (r *callRegistry) drop(sessionID, callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	if buf, ok := sc.buffers[callID]; ok {
		buf.release()
		delete(sc.buffers, callID)
	}
}

// cancel cancels an in-flight call, reporting whether it was found.
func (r *callRegistry) cancel(sessionID, callID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	cancelFn, ok := sc.inflight[callID]
	if !ok {
		return false
	}
	cancelFn()
	delete(sc.inflight, callID)
	return true
}

// buffer returns the replay buffer for a call, if one is retained.
func (r *callRegistry) buffer(sessionID, callID string) (*replayBuffer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	buf, ok := sc.buffers[callID]
	return buf, ok
}

// prune removes registry state for sessions that no longer exist, keyed
// by the liveness check. In-flight calls of a pruned session are
// cancelled and their buffers released.
func (r *callRegistry) prune(alive func(sessionID string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, sc := range r.sessions {
		if alive(id) {
			continue
		}
		for _, cancelFn := range sc.inflight {
			cancelFn()
		}
		for _, buf := range sc.buffers {
			buf.release()
		}
		delete(r.sessions, id)
	}
}
