package auth

import (
	"context"
	"net/http"
	"strings"
)

// CompositeAuthenticator tries a chain of authenticators in order. The
// first one whose Supports matches the request decides the outcome;
// later authenticators are not consulted as fallbacks, so a malformed
// bearer token is rejected rather than silently downgraded.
type CompositeAuthenticator struct {
	chain []Authenticator
}

// NewCompositeAuthenticator builds a chain in the given order.
func NewCompositeAuthenticator(authenticators ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{chain: authenticators}
}

// Name joins the chain's names, e.g. "apikey+jwt".
func (c *CompositeAuthenticator) Name() string {
	names := make([]string, len(c.chain))
	for i, a := range c.chain {
		names[i] = a.Name()
	}
	return strings.Join(names, "+")
}

// Supports reports whether any chained authenticator matches.
func (c *CompositeAuthenticator) Supports(r *http.Request) bool {
	for _, a := range c.chain {
		if a.Supports(r) {
			return true
		}
	}
	return false
}

// Authenticate delegates to the first matching authenticator. A request
// carrying no recognized credentials fails with ErrMissingCredentials.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*Result, error) {
	for _, a := range c.chain {
		if a.Supports(r) {
			return a.Authenticate(ctx, r)
		}
	}
	return Failure(ErrMissingCredentials, MethodNone), nil
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
