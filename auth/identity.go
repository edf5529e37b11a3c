package auth

import (
	"slices"
	"time"
)

// Method indicates how authentication was performed.
type Method string

const (
	MethodNone      Method = "none"
	MethodJWT       Method = "jwt"
	MethodAPIKey    Method = "api_key"
	MethodAnonymous Method = "anonymous"
)

// Identity represents an authenticated principal.
type Identity struct {
	// Principal is the unique identifier (user id, email, key name).
	Principal string

	// Roles are the roles assigned to this identity.
	Roles []string

	// Method indicates how authentication was performed.
	Method Method

	// Claims contains the raw claims from the credential.
	Claims map[string]any

	// ExpiresAt is when this identity expires. Zero means no expiry.
	ExpiresAt time.Time
}

// HasRole reports whether the identity carries the role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// HasAnyRole reports whether the identity carries at least one of the
// roles. An empty requirement is satisfied by any identity.
func (id *Identity) HasAnyRole(roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if id.HasRole(r) {
			return true
		}
	}
	return false
}

// IsExpired reports whether the identity has expired.
func (id *Identity) IsExpired() bool {
	return !id.ExpiresAt.IsZero() && time.Now().After(id.ExpiresAt)
}

// IsAnonymous reports whether this identity carries no principal.
func (id *Identity) IsAnonymous() bool {
	return id.Method == MethodAnonymous || id.Principal == ""
}

// AnonymousIdentity creates the identity used for unauthenticated access.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: "anonymous",
		Method:    MethodAnonymous,
	}
}
