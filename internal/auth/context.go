package auth

import "context"

// Identity is the caller's resolved identity, attached to the request context
// by the authentication middleware. Handlers gate on it explicitly instead of
// reaching into ambient settings.
type Identity struct {
	// WalletID is the wallet the presented token is bound to.
	WalletID string

	// TenantID is the tenant owning that wallet, when one exists.
	TenantID string

	// Innkeeper marks the platform-operator wallet.
	Innkeeper bool
}

type identityKey struct{}

// WithIdentity returns a context carrying the caller's identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext extracts the caller's identity. The second return is false for
// anonymous callers.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
