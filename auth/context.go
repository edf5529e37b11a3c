package auth

import "context"

type identityContextKey struct{}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity stored by Middleware, or nil
// when the request never passed through it.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey{}).(*Identity)
	return identity
}

// PrincipalFromContext returns the authenticated principal, or "" when
// the request is anonymous.
func PrincipalFromContext(ctx context.Context) string {
	identity := IdentityFromContext(ctx)
	if identity == nil || identity.IsAnonymous() {
		return ""
	}
	return identity.Principal
}
