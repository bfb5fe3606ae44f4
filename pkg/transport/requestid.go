package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/castellet/agentgate/pkg/api"
)

// RequestID returns middleware that assigns a unique request ID to each
// call. If the incoming context already carries one (set by the HTTP
// adapter from the X-Request-ID header), that value is kept; otherwise a
// fresh UUID is generated. Retrieve it with RequestIDFromContext.
func RequestID() Middleware {
	return func(next CallHandler) CallHandler {
		return CallHandlerFunc(func(ctx context.Context, call *api.Call, meta Meta, w CallWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, uuid.NewString())
			}
			return next.HandleCall(ctx, call, meta, w)
		})
	}
}
