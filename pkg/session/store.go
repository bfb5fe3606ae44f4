package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/castellet/agentgate/pkg/api"
)

// Config holds session store settings.
type Config struct {
	// IdleTimeout is how long a session may sit idle before the sweep
	// removes it. Long enough to span an interactive conversation, short
	// enough to bound memory.
	IdleTimeout time.Duration

	// SweepInterval is the period of the expiry sweep run by Run.
	SweepInterval time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns a Config with the default timeouts.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   30 * time.Minute,
		SweepInterval: time.Minute,
		Logger:        slog.Default(),
	}
}

// Store is the in-memory session table. Resolve and Expire are safe to
// call concurrently.
type Store struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store. Zero-valued config fields fall
// back to defaults.
func NewStore(cfg Config) *Store {
	def := DefaultConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Resolve returns the session for the given token, refreshing its
// last-activity time. An absent or unrecognized token is never an error:
// a fresh session is created with capabilities taken from the declared
// accept set. The returned bool reports whether a session was created.
//
// An expired session's token counts as unrecognized, so a stale token
// silently yields a fresh session rather than failing the call.
func (s *Store) Resolve(token string, accept api.AcceptSet) (*Session, bool) {
	now := time.Now()

	if token != "" && api.ValidateSessionID(token) {
		s.mu.RLock()
		sess, ok := s.sessions[token]
		s.mu.RUnlock()
		if ok {
			sess.touch(now)
			return sess, false
		}
	}

	sess := newSession(accept, now)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.cfg.Logger.Debug("session created",
		slog.String("session_id", sess.ID),
		slog.Bool("streaming", sess.Capabilities.Streaming),
		slog.Bool("resume", sess.Capabilities.Resume),
	)
	return sess, true
}

// Get looks up a session without creating one and without refreshing
// last-activity. Used by operations that must not fall back to a fresh
// session, such as resume and cancel.
func (s *Store) Get(token string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	return sess, ok
}

// Expire removes sessions idle longer than the configured timeout as of
// now, returning the number removed.
func (s *Store) Expire(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActive()) > s.cfg.IdleTimeout {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run sweeps expired sessions every SweepInterval until ctx is cancelled,
// then drops all sessions.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.sessions = make(map[string]*Session)
			s.mu.Unlock()
			return
		case now := <-ticker.C:
			if n := s.Expire(now); n > 0 {
				s.cfg.Logger.Debug("sessions expired", slog.Int("count", n))
			}
		}
	}
}
