// Package frame serializes stream events into wire-level units and
// decodes them back, tolerating arbitrary fragmentation of the byte
// stream across reads.
//
// The wire format is SSE-shaped, one unit per event:
//
//	event: {kind}\n
//	id: {sequence}\n
//	data: {json}\n
//	\n
//
// The kind and sequence are duplicated between the header lines and the
// JSON body; the JSON body is authoritative on decode and the header
// lines are cross-checked. Units on the wire appear in exactly the order
// events were produced; no intermediary may reorder them.
package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/castellet/agentgate/pkg/api"
)

// ErrNeedMoreData is returned by Decoder.Next when the buffered bytes do
// not yet contain a complete unit. The partial bytes are retained and
// carried forward to the next decode attempt.
var ErrNeedMoreData = errors.New("frame: need more data")

var unitSeparator = []byte("\n\n")

// Encode serializes a single event as one wire unit.
func Encode(ev api.StreamEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("frame: marshal event: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\nid: %d\ndata: %s\n\n", ev.Kind, ev.Sequence, data)
	return buf.Bytes(), nil
}

// EncodeTo serializes a single event and writes it to w.
func EncodeTo(w io.Writer, ev api.StreamEvent) error {
	b, err := Encode(ev)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("frame: write unit: %w", err)
	}
	return nil
}

// Decoder incrementally decodes wire units back into events. Bytes are
// fed in with Write as they arrive (in any fragmentation) and complete
// events are drained with Next. A trailing partial unit is buffered, not
// emitted truncated.
//
// Decoder is not safe for concurrent use.
type Decoder struct {
	buf []byte
}

// NewDecoder creates an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write appends raw bytes to the decode buffer. It implements io.Writer
// and never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Buffered returns the number of bytes awaiting a complete unit.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next returns the next complete event. It returns ErrNeedMoreData when
// no complete unit is buffered; any other error means the stream is
// corrupt and the decoder should be discarded. Units without a data line
// (comments, keepalives) are skipped.
func (d *Decoder) Next() (api.StreamEvent, error) {
	for {
		idx := bytes.Index(d.buf, unitSeparator)
		if idx < 0 {
			return api.StreamEvent{}, ErrNeedMoreData
		}

		unit := d.buf[:idx]
		d.buf = d.buf[idx+len(unitSeparator):]

		ev, ok, err := parseUnit(unit)
		if err != nil {
			return api.StreamEvent{}, err
		}
		if !ok {
			continue
		}
		return ev, nil
	}
}

// parseUnit parses one complete unit. ok is false for units carrying no
// data line.
func parseUnit(unit []byte) (ev api.StreamEvent, ok bool, err error) {
	var kindLine, idLine string
	var data []byte

	for _, line := range bytes.Split(unit, []byte("\n")) {
		switch {
		case bytes.HasPrefix(line, []byte("event: ")):
			kindLine = string(bytes.TrimPrefix(line, []byte("event: ")))
		case bytes.HasPrefix(line, []byte("id: ")):
			idLine = string(bytes.TrimPrefix(line, []byte("id: ")))
		case bytes.HasPrefix(line, []byte("data: ")):
			data = bytes.TrimPrefix(line, []byte("data: "))
		}
	}

	if data == nil {
		return api.StreamEvent{}, false, nil
	}

	if err := json.Unmarshal(data, &ev); err != nil {
		return api.StreamEvent{}, false, fmt.Errorf("frame: malformed event data: %w", err)
	}
	if !ev.Kind.Valid() {
		return api.StreamEvent{}, false, fmt.Errorf("frame: unknown event kind %q", ev.Kind)
	}
	if kindLine != "" && kindLine != string(ev.Kind) {
		return api.StreamEvent{}, false, fmt.Errorf("frame: kind mismatch: header %q, body %q", kindLine, ev.Kind)
	}
	if idLine != "" {
		seq, convErr := strconv.Atoi(idLine)
		if convErr != nil {
			return api.StreamEvent{}, false, fmt.Errorf("frame: malformed id line %q", idLine)
		}
		if seq != ev.Sequence {
			return api.StreamEvent{}, false, fmt.Errorf("frame: sequence mismatch: header %d, body %d", seq, ev.Sequence)
		}
	}

	return ev, true, nil
}
