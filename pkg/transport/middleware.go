package transport

import "context"

// Middleware wraps a CallHandler with cross-cutting behavior. Middleware
// is applied in order: the first middleware in the chain is the outermost
// wrapper.
type Middleware func(CallHandler) CallHandler

// Chain composes multiple middleware into one. Chain(a, b, c) produces
// a(b(c(handler))).
func Chain(middlewares ...Middleware) Middleware {
	return func(next CallHandler) CallHandler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// RequestIDFromContext extracts the request ID from the context, or ""
// if none is set.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}
