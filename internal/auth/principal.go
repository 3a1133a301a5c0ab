package auth

import (
	"context"
	"strconv"
	"strings"

	svcErr "github.com/oggyb/muzz-matchmaker/internal/errors"
)

// MetadataKey is the gRPC metadata header the upstream auth proxy sets.
const MetadataKey = "x-principal-id"

type principalKey struct{}

// WithPrincipal attaches the raw principal id to ctx.
func WithPrincipal(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, principalKey{}, raw)
}

// Principal returns the raw principal id carried by ctx, or "".
func Principal(ctx context.Context) string {
	v, _ := ctx.Value(principalKey{}).(string)
	return v
}

// UserID returns the authenticated user id.
// A missing, non-numeric or zero principal is an InvalidArgument.
func UserID(ctx context.Context) (uint64, error) {
	return ParseID(Principal(ctx), "principal")
}

// ParseID parses a positive integer id; field names the value in the error.
func ParseID(raw, field string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument(field + " must be a positive integer")
	}
	return id, nil
}
