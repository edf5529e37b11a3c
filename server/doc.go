// Package server exposes routines over HTTP: a chi router with the ambient
// middleware stack, dynamic dispatch against an atomically swapped routing
// table, parameter binding from query strings and JSON bodies, cache
// invalidation companions, an admin surface for metadata reload and cache
// statistics, and graceful serve/shutdown.
package server
