// Package kit carries request-scoped values shared by the HTTP, CLI and MCP
// surfaces of qmsearch, and the transport-agnostic Endpoint type they wrap.
package kit

import "context"

type contextKey string

const (
	RequestIDKey  contextKey = "kit_request_id"
	TransportKey  contextKey = "kit_transport" // "http", "cli", "mcp"
	ForceFreshKey contextKey = "kit_force_fresh"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

// WithForceFresh marks the context so that cache reads report a miss.
// Cache writes still happen.
func WithForceFresh(ctx context.Context, on bool) context.Context {
	return context.WithValue(ctx, ForceFreshKey, on)
}

// ForceFresh reports whether cache reads must be bypassed.
func ForceFresh(ctx context.Context) bool {
	v, _ := ctx.Value(ForceFreshKey).(bool)
	return v
}

// Endpoint is a transport-agnostic request handler.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so that the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
