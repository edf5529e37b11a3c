package auth

import (
	"context"
	"net/http"
)

// Authenticator validates request credentials and produces an identity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Authenticate returns (nil, error) only for internal failures.
//   Credential problems are reported as (*Result with Err set, nil) so
//   the caller can distinguish "bad token" from "backend down".
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports reports whether the request carries credentials this
	// authenticator understands.
	Supports(r *http.Request) bool

	// Authenticate validates the credentials on the request.
	Authenticate(ctx context.Context, r *http.Request) (*Result, error)
}

// Result is the outcome of an authentication attempt.
type Result struct {
	// Authenticated is true when credentials were valid.
	Authenticated bool

	// Identity is the authenticated identity when Authenticated is true.
	Identity *Identity

	// Err describes the credential failure when Authenticated is false.
	Err error

	// Method names the authenticator that produced this result.
	Method Method
}

// Success creates a successful authentication result.
func Success(identity *Identity) *Result {
	return &Result{
		Authenticated: true,
		Identity:      identity,
		Method:        identity.Method,
	}
}

// Failure creates a failed authentication result.
func Failure(err error, method Method) *Result {
	return &Result{
		Err:    err,
		Method: method,
	}
}
