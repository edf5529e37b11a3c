package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/routine"
)

// route is one dispatchable entry: the routine it invokes and whether the
// entry is the cache invalidation companion rather than the endpoint itself.
type route struct {
	routine    *routine.Routine
	invalidate bool
}

type routeKey struct {
	method string
	path   string
}

// Table maps exact method and path pairs to routines. A table is immutable
// once built; reloads construct a fresh one and the server swaps the
// pointer, so lookups never see a half-updated set.
type Table struct {
	routes map[routeKey]*route
}

// NewTable indexes the enabled routines. Cached endpoints get a
// POST <path>/invalidate companion when invalidation is on. Entries that
// cannot be registered come back as warnings: a duplicate method and path
// keeps the first routine, and paths reserved for the operational surface
// are refused.
func NewTable(routines []*routine.Routine, invalidation bool) (*Table, []string) {
	t := &Table{routes: make(map[routeKey]*route, len(routines))}
	var warnings []string

	add := func(method, path string, rt *route) {
		if reservedPath(path) {
			warnings = append(warnings, fmt.Sprintf("%s %s: %s uses a reserved path, skipped",
				method, path, rt.routine.Identity))
			return
		}
		key := routeKey{method: method, path: path}
		if prev, ok := t.routes[key]; ok {
			warnings = append(warnings, fmt.Sprintf("%s %s: %s collides with %s, first kept",
				method, path, rt.routine.Identity, prev.routine.Identity))
			return
		}
		t.routes[key] = rt
	}

	for _, r := range routines {
		if !r.Endpoint.Enabled {
			continue
		}
		add(r.Endpoint.Method, r.Endpoint.Path, &route{routine: r})
		if invalidation && r.Cacheable() {
			add(http.MethodPost, r.Endpoint.Path+"/invalidate", &route{routine: r, invalidate: true})
		}
	}
	return t, warnings
}

// Lookup resolves an exact method and path match.
func (t *Table) Lookup(method, path string) (*route, bool) {
	r, ok := t.routes[routeKey{method: method, path: path}]
	return r, ok
}

// Len returns the number of dispatchable entries, companions included.
func (t *Table) Len() int {
	return len(t.routes)
}

// reservedPath reports paths owned by the health, metrics and admin
// handlers; routines cannot shadow them.
func reservedPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/health", "/metrics":
		return true
	}
	return strings.HasPrefix(path, "/admin/")
}
