package routine

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// Kind distinguishes functions from procedures; they are invoked with
// different command verbs.
type Kind string

const (
	KindFunction  Kind = "function"
	KindProcedure Kind = "procedure"
)

// ParseKind maps a pg_proc.prokind byte. Aggregates and window functions
// are not routable and come back false.
func ParseKind(b byte) (Kind, bool) {
	switch b {
	case 'f':
		return KindFunction, true
	case 'p':
		return KindProcedure, true
	default:
		return "", false
	}
}

// Volatility is the routine's declared volatility class.
type Volatility string

const (
	VolatilityImmutable Volatility = "immutable"
	VolatilityStable    Volatility = "stable"
	VolatilityVolatile  Volatility = "volatile"
)

// ParseVolatility maps a pg_proc.provolatile byte, defaulting to volatile.
func ParseVolatility(b byte) Volatility {
	switch b {
	case 'i':
		return VolatilityImmutable
	case 's':
		return VolatilityStable
	default:
		return VolatilityVolatile
	}
}

// Identity is a schema-qualified routine name.
type Identity struct {
	Schema string
	Name   string
}

// String renders the identity for logs, fingerprints and stats keys.
func (id Identity) String() string {
	return id.Schema + "." + id.Name
}

// SQL renders the identity as a quoted SQL identifier pair.
func (id Identity) SQL() string {
	return pgx.Identifier{id.Schema, id.Name}.Sanitize()
}

// Param is one input parameter of a routine, in declaration order.
type Param struct {
	Name       string
	Position   int
	TypeName   string // format_type rendering, valid in a cast
	OID        uint32
	HasDefault bool
}

// Routine is one discovered database routine together with its endpoint
// settings.
type Routine struct {
	Identity   Identity
	Kind       Kind
	Volatility Volatility
	Params     []Param
	ReturnType string
	ReturnsSet bool
	IsVoid     bool
	Comment    string
	Endpoint   Endpoint
}

// Cacheable reports whether results of this routine may be cached.
func (r *Routine) Cacheable() bool {
	return r.Endpoint.Cached
}

// PathSegment converts a routine name to its URL form: lowercase with
// underscores as hyphens, so get_orders becomes get-orders.
func PathSegment(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// DefaultPath builds the endpoint path for an identity under a prefix.
func DefaultPath(prefix string, id Identity) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix + "/" + PathSegment(id.Schema) + "/" + PathSegment(id.Name)
}
