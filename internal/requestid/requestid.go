package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

const maxLen = 128

type ctxKey struct{}

func New() string {
	return uuid.NewString()
}

// FromHeader returns the caller supplied id when it is short printable
// ASCII, otherwise a fresh one. The id ends up in every log line.
func FromHeader(v string) string {
	if v == "" || len(v) > maxLen {
		return New()
	}
	for i := 0; i < len(v); i++ {
		if v[i] < 0x21 || v[i] > 0x7e {
			return New()
		}
	}
	return v
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request ID from ctx. Returns "" if absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
