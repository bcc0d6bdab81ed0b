package shared

import (
	"context"
	"time"
)

// Identity is the caller resolved from a verified session token.
type Identity struct {
	UserID   int64
	Username string
	Role     string
	IssuedAt time.Time
	// ViaCookie is set when the credential came from the fallback cookie
	// rather than the Authorization header.
	ViaCookie bool
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok && id.UserID > 0
}
