// Package requestid carries the per-request correlation id through
// context. The id is generated (or validated) at the HTTP boundary and
// echoed in every response and log line, so a single request can be
// traced across our logs and the provider's.
package requestid

import "context"

type ctxKey struct{}

// WithContext returns a context carrying the given request id.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request id stored in ctx, or "" if none.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
