package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/castellet/agentgate/pkg/api"
	"github.com/castellet/agentgate/pkg/negotiate"
	"github.com/castellet/agentgate/pkg/observability"
	"github.com/castellet/agentgate/pkg/session"
	"github.com/castellet/agentgate/pkg/transport"
)

// ErrResumeUnavailable is returned by Resume when the requested call is
// unknown or its replay buffer has been released. Callers must treat this
// as a signal to restart the original call with a new ID, not to assume
// continuity.
var ErrResumeUnavailable = errors.New("dispatch: resume unavailable")

// Config holds dispatcher settings.
type Config struct {
	// Negotiation configures the response mode heuristic.
	Negotiation negotiate.Config

	// CallTimeout is the idle threshold for handler output: the maximum
	// wait for an immediate result or for each streamed fragment. A call
	// exceeding it is forced to a failed terminal state and its replay
	// buffer released.
	CallTimeout time.Duration

	// ReplayLimit caps the events retained per streamed call. A stream
	// exceeding it stays deliverable but becomes unresumable.
	ReplayLimit int

	// ReplayGrace is how long a terminal call's replay buffer is retained
	// for late resumes.
	ReplayGrace time.Duration

	Logger *slog.Logger
}

// DefaultConfig returns the default dispatcher settings.
func DefaultConfig() Config {
	return Config{
		Negotiation: negotiate.DefaultConfig(),
		CallTimeout: 60 * time.Second,
		ReplayLimit: 1024,
		ReplayGrace: 30 * time.Second,
		Logger:      slog.Default(),
	}
}

// Dispatcher is the single entry point for call execution. It resolves
// the session, negotiates the response mode, runs the external handler,
// and writes either one complete payload or a framed event sequence with
// exactly one terminal event per call.
//
// Calls execute independently: two calls in the same session may stream
// concurrently, and the dispatcher holds no session-wide lock while
// awaiting handler output.
type Dispatcher struct {
	handler  Handler
	sessions *session.Store
	registry *callRegistry
	cfg      Config
	logger   *slog.Logger
}

var _ transport.CallService = (*Dispatcher)(nil)

// New creates a Dispatcher over the given handler and session store.
// Zero-valued config fields fall back to defaults.
func New(h Handler, sessions *session.Store, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.ReplayLimit <= 0 {
		cfg.ReplayLimit = def.ReplayLimit
	}
	if cfg.ReplayGrace <= 0 {
		cfg.ReplayGrace = def.ReplayGrace
	}
	if cfg.Negotiation.ParamsSizeThreshold == 0 && cfg.Negotiation.StreamingMethods == nil {
		cfg.Negotiation = def.Negotiation
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{
		handler:  h,
		sessions: sessions,
		registry: newCallRegistry(),
		cfg:      cfg,
		logger:   cfg.Logger,
	}
}

// lifecycle tracks one call through its states, following the table in
// api.ValidateCallTransition. A rejected transition indicates a
// dispatcher bug; it is logged, never surfaced to the caller.
type lifecycle struct {
	logger *slog.Logger
	callID string
	state  api.CallState
}

func (l *lifecycle) to(next api.CallState) {
	if err := api.ValidateCallTransition(l.state, next); err != nil {
		l.logger.Error("invalid call state transition",
			slog.String("call_id", l.callID),
			slog.String("from", string(l.state)),
			slog.String("to", string(next)))
		return
	}
	l.state = next
}

// HandleCall processes one inbound call end to end.
func (d *Dispatcher) HandleCall(ctx context.Context, call *api.Call, meta transport.Meta, w transport.CallWriter) error {
	start := time.Now()

	// Envelope validated before anything else.
	if err := api.ValidateCall(call); err != nil {
		return err
	}
	lc := &lifecycle{logger: d.logger, callID: call.ID}
	lc.to(api.CallStateReceived)

	sess, created := d.sessions.Resolve(meta.SessionToken, meta.Accept)
	w.SetSessionToken(sess.ID)
	observability.SessionsActive.Set(float64(d.sessions.Len()))

	if created && meta.SessionToken != "" {
		// Stale or unknown token: recovered silently with a fresh
		// session. The caller sees only the new token.
		d.logger.Debug("unknown session token replaced",
			slog.String("session_id", sess.ID))
	}

	mode := negotiate.Decide(sess.Capabilities, call, meta.Accept, d.cfg.Negotiation)
	lc.to(api.CallStateNegotiated)

	if mode == negotiate.ModeImmediate {
		return d.runImmediate(ctx, sess, call, lc, w, start)
	}
	return d.runStream(ctx, sess, call, lc, w, start)
}

// runImmediate executes a call in immediate mode: one blocking handler
// invocation, one complete response payload.
func (d *Dispatcher) runImmediate(ctx context.Context, sess *session.Session, call *api.Call, lc *lifecycle, w transport.CallWriter, start time.Time) error {
	callCtx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
	defer cancel()

	if !d.registry.begin(sess.ID, call.ID, cancel, nil) {
		return duplicateCallError(call.ID)
	}
	lc.to(api.CallStateExecuting)

	result, err := d.handler.Invoke(callCtx, call.Method, call.Params)

	resp := &api.Response{ID: call.ID}
	status := "completed"
	if err != nil {
		// Call-scoped failure, surfaced as an error payload. The session
		// and other concurrent calls are unaffected.
		resp.Error = toAPIError(err)
		status = "failed"
		lc.to(api.CallStateFailed)
	} else {
		resp.Result = result
		lc.to(api.CallStateCompleted)
	}

	d.registry.finish(sess.ID, call.ID, d.cfg.ReplayGrace)
	observability.CallsTotal.WithLabelValues("immediate", status).Inc()
	observability.CallDuration.WithLabelValues("immediate").Observe(time.Since(start).Seconds())

	return w.WriteResponse(ctx, resp)
}

// runStream executes a call in streamed mode, pumping the handler's
// fragment sequence through the event framing: start, content per
// fragment in emission order, then exactly one terminal event.
func (d *Dispatcher) runStream(ctx context.Context, sess *session.Session, call *api.Call, lc *lifecycle, w transport.CallWriter, start time.Time) error {
	var buf *replayBuffer
	base := ctx
	if sess.Capabilities.Resume {
		buf = newReplayBuffer(d.cfg.ReplayLimit)
		// Resumable calls outlive their originating connection: a
		// transient disconnect must not kill the producer. The idle
		// timeout still bounds the handler.
		base = context.WithoutCancel(ctx)
	}

	callCtx, cancel := context.WithCancel(base)
	defer cancel()

	if !d.registry.begin(sess.ID, call.ID, cancel, buf) {
		return duplicateCallError(call.ID)
	}
	lc.to(api.CallStateExecuting)

	observability.StreamsActive.Inc()
	defer observability.StreamsActive.Dec()

	seq := 0
	writeFailed := false
	emit := func(ev api.StreamEvent) {
		if buf != nil {
			buf.append(ev)
		}
		observability.EventsEmittedTotal.WithLabelValues(string(ev.Kind)).Inc()
		if writeFailed {
			return
		}
		if err := w.WriteEvent(ctx, ev); err != nil {
			writeFailed = true
			if buf == nil {
				// No replay buffer: nobody can ever consume further
				// events, stop the handler.
				cancel()
			}
		}
	}
	next := func(kind api.EventKind) api.StreamEvent {
		ev := api.StreamEvent{Kind: kind, CallID: call.ID, Sequence: seq}
		seq++
		return ev
	}

	// The start event precedes any content, carrying the call ID the
	// stream's events are demultiplexed by.
	emit(next(api.EventStart))

	status := d.pump(callCtx, call, emit, next)

	if status == "completed" {
		lc.to(api.CallStateCompleted)
	} else {
		lc.to(api.CallStateFailed)
	}
	if status == "timeout" {
		// Replay state is released immediately: an abandoned call does
		// not linger through the grace period.
		d.registry.drop(sess.ID, call.ID)
	}
	d.registry.finish(sess.ID, call.ID, d.cfg.ReplayGrace)

	observability.CallsTotal.WithLabelValues("streamed", status).Inc()
	observability.CallDuration.WithLabelValues("streamed").Observe(time.Since(start).Seconds())

	d.logger.Debug("stream finished",
		slog.String("session_id", sess.ID),
		slog.String("call_id", call.ID),
		slog.String("status", status),
		slog.Int("events", seq),
	)
	return nil
}

// pump drains the fragment source into events and returns the terminal
// status. It emits exactly one terminal event: end on a completed
// sequence (including an empty one), error otherwise.
func (d *Dispatcher) pump(callCtx context.Context, call *api.Call, emit func(api.StreamEvent), next func(api.EventKind) api.StreamEvent) string {
	src, err := d.handler.Open(callCtx, call.Method, call.Params)
	if err != nil {
		ev := next(api.EventError)
		ev.Error = toAPIError(err)
		emit(ev)
		return "failed"
	}
	defer src.Close()

	for {
		fctx, fcancel := context.WithTimeout(callCtx, d.cfg.CallTimeout)
		payload, err := src.Next(fctx)
		timedOut := fctx.Err() == context.DeadlineExceeded && callCtx.Err() == nil
		fcancel()

		if err == nil && callCtx.Err() == nil && !timedOut {
			ev := next(api.EventContent)
			ev.Payload = payload
			emit(ev)
			continue
		}

		switch {
		case errors.Is(err, io.EOF):
			// An empty or exhausted sequence ends cleanly; an empty
			// stream is valid and distinct from an error.
			emit(next(api.EventEnd))
			return "completed"
		case timedOut:
			ev := next(api.EventError)
			ev.Error = api.NewTimeoutError("no handler output before the idle deadline")
			emit(ev)
			return "timeout"
		case callCtx.Err() != nil:
			ev := next(api.EventError)
			ev.Error = api.NewCancelledError("call cancelled")
			emit(ev)
			return "cancelled"
		default:
			// The error event replaces, not follows, any pending end;
			// nothing is emitted for this call afterwards.
			ev := next(api.EventError)
			ev.Error = toAPIError(err)
			emit(ev)
			return "failed"
		}
	}
}

// Resume returns the events of a streamed call with sequence numbers
// greater than after. Unknown session, unknown call, or a released
// buffer all surface ErrResumeUnavailable; resuming at the final
// sequence yields an empty, closed channel.
func (d *Dispatcher) Resume(ctx context.Context, sessionToken, callID string, after int) (<-chan api.StreamEvent, error) {
	sess, ok := d.sessions.Get(sessionToken)
	if !ok || !sess.Capabilities.Resume {
		observability.ResumesTotal.WithLabelValues("unavailable").Inc()
		return nil, ErrResumeUnavailable
	}

	buf, ok := d.registry.buffer(sess.ID, callID)
	if !ok || !buf.available() {
		observability.ResumesTotal.WithLabelValues("unavailable").Inc()
		return nil, ErrResumeUnavailable
	}

	observability.ResumesTotal.WithLabelValues("ok").Inc()
	return buf.follow(ctx, after), nil
}

// Cancel signals that a call is no longer wanted. The dispatcher stops
// forwarding its events and transitions it to a failed terminal state
// with a cancellation reason.
func (d *Dispatcher) Cancel(sessionToken, callID string) bool {
	sess, ok := d.sessions.Get(sessionToken)
	if !ok {
		return false
	}
	return d.registry.cancel(sess.ID, callID)
}

// Run prunes registry state for expired sessions until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.cfg.ReplayGrace
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.registry.prune(func(id string) bool {
				_, ok := d.sessions.Get(id)
				return ok
			})
			observability.SessionsActive.Set(float64(d.sessions.Len()))
		}
	}
}

// duplicateCallError builds the protocol violation for a reused call ID.
func duplicateCallError(callID string) *api.APIError {
	return api.NewProtocolViolationError(
		"call id " + callID + " was already used in this session; retries must use a new call id")
}

// toAPIError maps a handler error to the protocol taxonomy.
func toAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, context.DeadlineExceeded):
		return api.NewTimeoutError("no handler output before the idle deadline")
	case errors.Is(err, context.Canceled):
		return api.NewCancelledError("call cancelled")
	default:
		return api.NewHandlerFailureError(err.Error())
	}
}
