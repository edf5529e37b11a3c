// Package pgerror classifies PostgreSQL failures and maps them to HTTP
// responses.
//
// Classification serves two consumers. The retry layer asks "is this error
// worth another attempt?" through the CommandRetryIf/ConnectRetryIf
// closures, which test the five-character SQLSTATE against a strategy's code
// set. The HTTP layer asks "what does the caller see?" through Policies: a
// named, operator-configurable mapping from SQLSTATE to status and title,
// with a distinguished timeout mapping that applies regardless of the
// selected policy.
//
// Error categories:
//
//  1. Connectivity errors: raised before a session exists (dial failures,
//     class 08). Handled by the connection-retry classifier, which also
//     admits failures carrying no SQLSTATE at all.
//
//  2. Command errors: raised during execution, carrying a SQLSTATE.
//     Retryable only by strategy membership.
//
//  3. Timeouts: a category of their own, detected structurally rather than
//     by code, and always mapped through the timeout mapping.
//
//  4. Unclassified: any code the active policy does not name falls back to
//     a generic 500.
package pgerror
