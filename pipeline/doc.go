// Package pipeline orchestrates one routine invocation end to end: cache
// lookup by fingerprint, retry-wrapped execution over a pooled connection,
// row rendering to JSON, and classification of terminal failures into
// problem responses.
//
// # Execution shape
//
// A cacheable invocation derives its fingerprint and consults the cache
// first; a miss funnels every concurrent caller into a single build. The
// build, and every non-cacheable invocation, runs the statement under the
// endpoint's retry strategy with the whole attempt sequence bounded by the
// endpoint timeout. Connection acquisition has its own guard: the circuit
// breaker and the connection retry strategy, so a down database is detected
// at the pool boundary rather than surfacing as N statement failures.
//
// The pipeline never returns an error to the HTTP layer. Every outcome,
// success or failure, is a Result carrying the status, content type and
// body to write.
package pipeline
