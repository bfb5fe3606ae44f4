package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/castellet/agentgate/pkg/api"
)

// Logging returns middleware that emits one structured log entry per
// call: request ID, call ID, method, declared accept, duration, and the
// outcome.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next CallHandler) CallHandler {
		return CallHandlerFunc(func(ctx context.Context, call *api.Call, meta Meta, w CallWriter) error {
			start := time.Now()

			err := next.HandleCall(ctx, call, meta, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("call_id", call.ID),
				slog.String("method", call.Method),
				slog.Bool("accept_streaming", meta.Accept.Streaming),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "call failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "call completed", attrs...)
			}

			return err
		})
	}
}
