package auth

import (
	"context"

	"github.com/Kodar11/Blog/internal/domain"
)

type identityKey struct{}

// NewContext returns a copy of ctx carrying the authenticated identity.
func NewContext(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached by the request guard, if any.
func FromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*domain.Identity)
	return id, ok && id != nil
}
