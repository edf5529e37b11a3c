package server

import "errors"

var (
	// ErrMissingParameter reports a declared parameter with no bound value
	// and no default to fall back on.
	ErrMissingParameter = errors.New("server: missing parameter")

	// ErrMalformedBody reports a request body that could not be read as a
	// JSON object of parameter values.
	ErrMalformedBody = errors.New("server: malformed request body")
)
