package http

import "context"

type contextKey string

const (
	requestIDContextKey contextKey = "folio/request-id"
	actorContextKey     contextKey = "folio/actor"
)

// RequestIDFromContext extracts the request identifier from the context when available.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDContextKey).(string); ok {
		return value
	}
	return ""
}

// ActorFromContext returns the authenticated actor id, or an empty string for anonymous
// requests.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(actorContextKey).(string); ok {
		return value
	}
	return ""
}
