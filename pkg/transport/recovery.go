package transport

import (
	"context"
	"fmt"

	"github.com/castellet/agentgate/pkg/api"
)

// Recovery returns middleware that catches panics in the call path and
// converts them to server errors. The server keeps accepting new calls
// after a recovered panic.
func Recovery() Middleware {
	return func(next CallHandler) CallHandler {
		return CallHandlerFunc(func(ctx context.Context, call *api.Call, meta Meta, w CallWriter) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.HandleCall(ctx, call, meta, w)
		})
	}
}
