// Package negotiate decides the response mode for a single call. The
// decision is a pure function of the session's negotiated capabilities,
// the call shape, and the caller's per-call accept set, so behavior is
// reproducible and testable; no server load signal feeds into it.
package negotiate

import (
	"github.com/castellet/agentgate/pkg/api"
	"github.com/castellet/agentgate/pkg/session"
)

// Mode is the response mode chosen for a call.
type Mode int

const (
	// ModeImmediate delivers the response as one complete payload.
	ModeImmediate Mode = iota

	// ModeStreamed delivers the response as an ordered sequence of framed
	// partial events.
	ModeStreamed
)

// String returns the mode name for logging.
func (m Mode) String() string {
	if m == ModeStreamed {
		return "streamed"
	}
	return "immediate"
}

// Config holds the complexity heuristic knobs. There is no universally
// right threshold, so both knobs are configuration rather than
// constants.
type Config struct {
	// ParamsSizeThreshold is the encoded params size, in bytes, at or
	// above which a call is expected to produce multi-part output.
	ParamsSizeThreshold int

	// StreamingMethods lists methods that produce long-running output and
	// stream whenever capabilities allow, regardless of params size.
	StreamingMethods []string
}

// DefaultConfig returns the default heuristic configuration.
func DefaultConfig() Config {
	return Config{
		ParamsSizeThreshold: 1024,
		StreamingMethods:    []string{"chat", "generate"},
	}
}

// Decide picks the response mode for one call, in priority order:
//
//  1. A session whose negotiated capabilities exclude streaming is always
//     answered immediately.
//  2. A per-call accept set excluding streaming forces immediate mode,
//     regardless of call size.
//  3. Otherwise the complexity heuristic applies: methods classified as
//     long-running stream, large params stream, everything else is
//     immediate so trivial calls avoid streaming overhead.
func Decide(caps session.Capabilities, call *api.Call, accept api.AcceptSet, cfg Config) Mode {
	if !caps.Streaming {
		return ModeImmediate
	}
	if !accept.Streaming {
		return ModeImmediate
	}

	for _, m := range cfg.StreamingMethods {
		if call.Method == m {
			return ModeStreamed
		}
	}

	if cfg.ParamsSizeThreshold > 0 && len(call.Params) >= cfg.ParamsSizeThreshold {
		return ModeStreamed
	}

	return ModeImmediate
}
