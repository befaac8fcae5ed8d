package requestid

import (
	"context"

	"github.com/google/uuid"
)

// MaxLength bounds client-supplied IDs before they reach logs and headers.
const MaxLength = 128

type ctxKey struct{}

// New generates a random UUID v4 request ID.
func New() string {
	return uuid.NewString()
}

// Sanitize returns id when it is safe to echo back, otherwise a fresh ID.
// Only printable ASCII without spaces is accepted.
func Sanitize(id string) string {
	if id == "" || len(id) > MaxLength {
		return New()
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return New()
		}
	}
	return id
}

// WithRequestID returns a copy of ctx with the request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request ID from ctx. Returns "" if absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
