package media

import (
	"context"
	"errors"
	"strings"
)

// ErrResolverUnavailable is returned when no backing resolver is configured.
var ErrResolverUnavailable = errors.New("media resolver unavailable")

// Resolver turns a stored media reference into a URL a client can fetch.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Passthrough returns references unchanged. It is used when no object store is configured.
type Passthrough struct{}

// Resolve returns ref as-is.
func (Passthrough) Resolve(_ context.Context, ref string) (string, error) {
	return ref, nil
}

func isAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
