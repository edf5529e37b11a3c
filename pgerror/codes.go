package pgerror

import "strings"

// SQLSTATE codes the server raises in practice. Names follow the PostgreSQL
// errcodes appendix; only the codes referenced by the default retry sets and
// the default policy are spelled out here, but any five-character code works
// anywhere a code does.
const (
	// Class 02: no data.
	CodeNoData = "02000"

	// Class 08: connection exceptions.
	CodeConnectionException    = "08000"
	CodeUnableToEstablish      = "08001"
	CodeConnectionDoesNotExist = "08003"
	CodeConnectionRejected     = "08004"
	CodeConnectionFailure      = "08006"
	CodeTransactionUnknown     = "08007"
	CodeProtocolViolation      = "08P01"

	// Class 22: data exceptions.
	CodeInvalidTextRepresentation = "22P02"

	// Class 23: integrity constraint violations.
	CodeNotNullViolation    = "23502"
	CodeForeignKeyViolation = "23503"
	CodeUniqueViolation     = "23505"
	CodeCheckViolation      = "23514"

	// Class 28: invalid authorization.
	CodeInvalidAuthorization = "28000"
	CodeInvalidPassword      = "28P01"

	// Class 40: transaction rollback.
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"

	// Class 42: syntax or access rule violations.
	CodeInsufficientPrivilege = "42501"
	CodeUndefinedFunction     = "42883"
	CodeUndefinedTable        = "42P01"

	// Class 53: insufficient resources.
	CodeDiskFull           = "53100"
	CodeOutOfMemory        = "53200"
	CodeTooManyConnections = "53300"

	// Class 55: object not in prerequisite state.
	CodeObjectInUse      = "55006"
	CodeLockNotAvailable = "55P03"

	// Class 57: operator intervention.
	CodeQueryCanceled    = "57014"
	CodeAdminShutdown    = "57P01"
	CodeCrashShutdown    = "57P02"
	CodeCannotConnectNow = "57P03"

	// Class P0: PL/pgSQL errors.
	CodeRaiseException = "P0001"
	CodeNoDataFound    = "P0002"
)

// DefaultCommandRetryCodes lists the SQLSTATEs the built-in "default"
// strategy treats as transient for statement execution: rollbacks the server
// invites the client to replay, connection losses mid-command, resource
// exhaustion, lock contention, and shutdown notices.
var DefaultCommandRetryCodes = []string{
	CodeSerializationFailure,
	CodeDeadlockDetected,
	CodeConnectionException,
	CodeUnableToEstablish,
	CodeConnectionDoesNotExist,
	CodeConnectionRejected,
	CodeConnectionFailure,
	CodeTransactionUnknown,
	CodeProtocolViolation,
	CodeDiskFull,
	CodeOutOfMemory,
	CodeTooManyConnections,
	CodeObjectInUse,
	CodeLockNotAvailable,
	CodeAdminShutdown,
	CodeCrashShutdown,
	CodeCannotConnectNow,
}

// DefaultConnectionRetryCodes lists the SQLSTATEs retryable while
// establishing a session. Narrower than the command set: before a session
// exists only connection-class failures and a serialization race during
// setup make sense to replay.
var DefaultConnectionRetryCodes = []string{
	CodeConnectionException,
	CodeUnableToEstablish,
	CodeConnectionDoesNotExist,
	CodeConnectionRejected,
	CodeConnectionFailure,
	CodeTransactionUnknown,
	CodeProtocolViolation,
	CodeSerializationFailure,
}

// Class returns the two-character class prefix of a SQLSTATE, or "" when the
// code is too short to carry one.
func Class(code string) string {
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}

// IsConnectionCode reports whether code belongs to class 08.
func IsConnectionCode(code string) bool {
	return strings.HasPrefix(code, "08")
}
