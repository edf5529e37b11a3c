// Package metadata discovers database routines from the system catalogs and
// turns them into routable endpoints.
//
// The Catalog interface isolates the pg_proc query; DatabaseCatalog is the
// pgx implementation. The Loader maps catalog records through the routine
// package's defaults and comment annotations, skipping what cannot be routed,
// and collapses concurrent reloads into a single catalog pass.
package metadata
