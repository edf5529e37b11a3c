// Package config loads and validates the service configuration.
//
// Precedence, lowest to highest: built-in defaults, the TOML file, then
// NPGSQLREST_-prefixed environment variables. The file is parsed strictly;
// unknown keys do not fail startup but are collected as warnings so typos
// surface in the log. Values holding credentials (connection string, JWT
// secret) pass through the secret resolver, so they accept ${VAR} expansion
// and secretref references.
//
// Builders turn validated sections into the registries the pipeline
// consumes: named retry strategies with their fallback, error policies
// overlaid on the built-in table, cache keyer and store settings, and the
// pgx pool configuration.
package config
