package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/munnerz/goautoneg"

	"github.com/castellet/agentgate/pkg/api"
	"github.com/castellet/agentgate/pkg/dispatch"
	"github.com/castellet/agentgate/pkg/frame"
	"github.com/castellet/agentgate/pkg/transport"
)

const (
	// sessionHeader carries the session token in both directions,
	// outside the envelope body.
	sessionHeader = "Agentgate-Session"

	// resumeHeader declares that the caller can resume interrupted
	// streams. Streaming acceptance travels in the standard Accept
	// header instead.
	resumeHeader = "Agentgate-Resume"
)

// Adapter serves the call API over HTTP. It routes requests, extracts the
// transport metadata from headers, and hands each call to the service.
type Adapter struct {
	service transport.CallService
	handler transport.CallHandler // service.HandleCall behind the middleware chain
	mux     *http.ServeMux
	config  Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr        string
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        ":8080",
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter over the given CallService.
// Middleware is applied to the call path in the given order; resume and
// cancel bypass it.
func NewAdapter(service transport.CallService, cfg Config, middlewares ...transport.Middleware) *Adapter {
	var handler transport.CallHandler = service
	if len(middlewares) > 0 {
		handler = transport.Chain(middlewares...)(service)
	}

	a := &Adapter{
		service: service,
		handler: handler,
		mux:     http.NewServeMux(),
		config:  cfg,
	}

	a.mux.HandleFunc("POST /v1/calls", a.handleCall)
	a.mux.HandleFunc("GET /v1/calls/{id}/events", a.handleResume)
	a.mux.HandleFunc("DELETE /v1/calls/{id}", a.handleCancel)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	return a
}

// Handle mounts an extra handler on the adapter's mux, for routes that
// live next to the call API such as a metrics endpoint.
func (a *Adapter) Handle(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// Handler returns the http.Handler for this adapter. Use this to
// integrate with an http.Server or test with httptest. The returned
// handler includes HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware propagates the X-Request-ID header. A
// client-sent ID flows into the context; the ID in effect after the
// handler chain runs is echoed back before the first write.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx := transport.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)
		}
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// metaFromRequest extracts the transport metadata: the session token and
// the accept set. Streaming acceptance is declared by an Accept header
// matching text/event-stream; resume acceptance by the resume header.
func metaFromRequest(r *http.Request) transport.Meta {
	meta := transport.Meta{SessionToken: r.Header.Get(sessionHeader)}

	for _, accept := range goautoneg.ParseAccept(r.Header.Get("Accept")) {
		if accept.Type == "text" && accept.SubType == "event-stream" {
			meta.Accept.Streaming = true
			break
		}
		if accept.Type == "*" && accept.SubType == "*" {
			meta.Accept.Streaming = true
		}
	}
	if v := r.Header.Get(resumeHeader); v == "true" || v == "1" {
		meta.Accept.Resume = true
	}
	return meta
}

// handleCall handles POST /v1/calls.
func (a *Adapter) handleCall(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	var call api.Call
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return
	}

	rw := newSSECallWriter(w, nil)
	if err := a.handler.HandleCall(r.Context(), &call, metaFromRequest(r), rw); err != nil {
		a.writeHandlerError(w, rw, err)
	}
}

// handleResume handles GET /v1/calls/{id}/events. The caller presents its
// session token and the last sequence number it received; the response
// replays the later events and then follows the live stream.
func (a *Adapter) handleResume(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	if !api.ValidateCallID(callID) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed call ID"),
			http.StatusBadRequest,
		)
		return
	}

	token := r.Header.Get(sessionHeader)
	if token == "" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError(sessionHeader, "session token required to resume"),
			http.StatusBadRequest,
		)
		return
	}

	after := 0
	if s := r.URL.Query().Get("after"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("after", "after must be a non-negative integer"),
				http.StatusBadRequest,
			)
			return
		}
		after = n
	}

	events, err := a.service.Resume(r.Context(), token, callID, after)
	if err != nil {
		if errors.Is(err, dispatch.ErrResumeUnavailable) {
			transport.WriteAPIError(w,
				api.NewResumeUnavailableError("call "+callID+" cannot be resumed; restart it with a new call ID"))
			return
		}
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			transport.WriteAPIError(w, apiErr)
		} else {
			transport.WriteAPIError(w, api.NewServerError(err.Error()))
		}
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set(sessionHeader, token)

	rc := http.NewResponseController(w)
	for ev := range events {
		if err := frame.EncodeTo(w, ev); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// handleCancel handles DELETE /v1/calls/{id}. Cancelling a call that is
// not in flight is not an error worth distinguishing beyond 404; the
// caller learns the definitive outcome from the original stream.
func (a *Adapter) handleCancel(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	if !api.ValidateCallID(callID) {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("id", "malformed call ID"),
			http.StatusBadRequest,
		)
		return
	}

	if a.service.Cancel(r.Header.Get(sessionHeader), callID) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	transport.WriteErrorResponse(w,
		api.NewInvalidRequestError("id", "no in-flight call "+callID),
		http.StatusNotFound,
	)
}

func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// writeHandlerError writes an error surfaced by the call path. Once
// streaming has started the headers are gone and the stream already
// carries its own terminal event, so there is nothing left to write.
func (a *Adapter) writeHandlerError(w http.ResponseWriter, rw *sseCallWriter, err error) {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		apiErr = api.NewServerError(err.Error())
	}

	if rw.hasStartedStreaming() {
		return
	}
	transport.WriteAPIError(w, apiErr)
}
