// Package requestid carries a per-request identifier through contexts, inbound
// HTTP middleware and outbound HTTP round trippers.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

const headerName = "X-Request-Id"

type contextKey struct{}

// WithValue returns a new context with the request id set.
func WithValue(parent context.Context, requestID string) context.Context {
	return context.WithValue(parent, contextKey{}, requestID)
}

// FromContext returns the request id stored in the context. If no request id
// exists, an empty string is returned.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// New creates a new request id.
func New() string {
	return uuid.NewString()
}
