package pgerror

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/resilience"
)

// Code extracts the five-character SQLSTATE from err, unwrapping as needed.
// Returns "" when no server error is present in the chain, which is the case
// for dial failures, protocol-level I/O errors and context cancellation.
func Code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Message returns the primary server message from err, or "" when the chain
// carries no server error.
func Message(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	return ""
}

// IsTimeout reports whether err represents an elapsed deadline: either a
// context.DeadlineExceeded anywhere in the chain or a driver-detected network
// timeout. Timeouts form their own response category and are never retried.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}

// CommandRetryIf builds the retry predicate for statement execution. An error
// is retryable exactly when it carries a SQLSTATE belonging to codes.
// Timeouts and cancellations are terminal regardless of code: replaying a
// statement whose deadline already elapsed only doubles the damage.
func CommandRetryIf(codes resilience.CodeSet) func(error) bool {
	return func(err error) bool {
		if err == nil {
			return false
		}
		if IsTimeout(err) || errors.Is(err, context.Canceled) {
			return false
		}
		code := Code(err)
		return code != "" && codes.Contains(code)
	}
}

// ConnectRetryIf builds the retry predicate for session establishment.
// Server-reported codes are tested against codes, but failures with no
// SQLSTATE at all (refused dials, resets, DNS trouble) are presumed
// transient and retried. Cancellation and elapsed deadlines stay terminal.
func ConnectRetryIf(codes resilience.CodeSet) func(error) bool {
	return func(err error) bool {
		if err == nil {
			return false
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		if code := Code(err); code != "" {
			return codes.Contains(code)
		}
		return true
	}
}
