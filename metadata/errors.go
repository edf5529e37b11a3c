package metadata

import "errors"

var (
	// ErrNotRoutable marks catalog records whose kind cannot be invoked as
	// an endpoint.
	ErrNotRoutable = errors.New("metadata: routine kind is not routable")

	// ErrUnnamedParameter marks routines with nameless input parameters;
	// binding is by name, so they cannot be exposed.
	ErrUnnamedParameter = errors.New("metadata: routine has unnamed input parameters")

	// ErrParameterMismatch marks records whose argument arrays disagree, a
	// catalog inconsistency rather than a user error.
	ErrParameterMismatch = errors.New("metadata: parameter modes and types disagree")
)
