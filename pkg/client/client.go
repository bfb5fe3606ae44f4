// Package client provides a Go client for the agentgate call API. It
// tracks the server-assigned session token across calls and consumes
// both response modes: immediate JSON payloads and framed event streams.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/castellet/agentgate/pkg/api"
	"github.com/castellet/agentgate/pkg/frame"
)

const (
	sessionHeader = "Agentgate-Session"
	resumeHeader  = "Agentgate-Resume"
)

// Client performs calls against an agentgate server. It is safe for
// concurrent use; the session token is adopted from the first response
// and presented on every later request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accept     api.AcceptSet

	mu    sync.Mutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout for immediate calls. Streamed calls
// are bounded by their context instead.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithAccept sets the accept set declared on every call. The server
// freezes session capabilities from the accept set of the first call.
func WithAccept(accept api.AcceptSet) Option {
	return func(c *Client) { c.accept = accept }
}

// WithSessionToken seeds the client with a previously issued token, for
// picking up an existing session.
func WithSessionToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accept:     api.AcceptSet{Streaming: true, Resume: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionToken returns the current session token, empty before the
// first call.
func (c *Client) SessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) adoptToken(resp *http.Response) {
	tok := resp.Header.Get(sessionHeader)
	if tok == "" {
		return
	}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// Outcome is the result of one call, in whichever mode the server
// chose. Exactly one of Response and Events is set: Response for an
// immediate call, Events for a streamed one. The Events channel closes
// after the terminal event.
type Outcome struct {
	Response *api.Response
	Events   <-chan api.StreamEvent
}

// Call submits one call. The caller owns the ID; reusing an ID within
// the session is rejected by the server.
func (c *Client) Call(ctx context.Context, call *api.Call) (*Outcome, error) {
	body, err := json.Marshal(call)
	if err != nil {
		return nil, fmt.Errorf("marshal call: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/calls", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setCallHeaders(httpReq)

	// The context controls streamed call lifetime; the client timeout
	// would kill a legitimate long stream.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call request: %w", err)
	}

	c.adoptToken(httpResp)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, mapHTTPError(httpResp)
	}

	if isEventStream(httpResp) {
		return &Outcome{Events: c.consumeStream(ctx, httpResp.Body)}, nil
	}

	defer httpResp.Body.Close()
	var resp api.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &Outcome{Response: &resp}, nil
}

// Resume re-attaches to a streamed call after a disconnect, starting
// with the first event whose sequence number is greater than after.
func (c *Client) Resume(ctx context.Context, callID string, after int) (<-chan api.StreamEvent, error) {
	url := c.baseURL + "/v1/calls/" + callID + "/events?after=" + strconv.Itoa(after)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setCallHeaders(httpReq)

	streamClient := &http.Client{Transport: c.httpClient.Transport}
	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("resume request: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, mapHTTPError(httpResp)
	}

	return c.consumeStream(ctx, httpResp.Body), nil
}

// Cancel stops an in-flight call. The definitive outcome still arrives
// on the call's stream as a terminal event.
func (c *Client) Cancel(ctx context.Context, callID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/calls/"+callID, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setCallHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("cancel request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusNoContent {
		return mapHTTPError(httpResp)
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) setCallHeaders(req *http.Request) {
	if c.accept.Streaming {
		req.Header.Set("Accept", "text/event-stream, application/json")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if c.accept.Resume {
		req.Header.Set(resumeHeader, "true")
	}
	if tok := c.SessionToken(); tok != "" {
		req.Header.Set(sessionHeader, tok)
	}
}

func isEventStream(resp *http.Response) bool {
	ct := resp.Header.Get("Content-Type")
	return ct == "text/event-stream" || strings.HasPrefix(ct, "text/event-stream;")
}

// consumeStream decodes framed events off the response body until the
// stream ends or ctx is cancelled. The body is closed when the returned
// channel closes.
func (c *Client) consumeStream(ctx context.Context, body io.ReadCloser) <-chan api.StreamEvent {
	ch := make(chan api.StreamEvent, 16)

	go func() {
		defer close(ch)
		defer body.Close()

		dec := frame.NewDecoder()
		buf := make([]byte, 4096)
		for {
			n, readErr := body.Read(buf)
			if n > 0 {
				dec.Write(buf[:n])
				for {
					ev, err := dec.Next()
					if errors.Is(err, frame.ErrNeedMoreData) {
						break
					}
					if err != nil {
						return
					}
					select {
					case ch <- ev:
					case <-ctx.Done():
						return
					}
					if ev.Kind.IsTerminal() {
						return
					}
				}
			}
			if readErr != nil {
				return
			}
		}
	}()

	return ch
}
