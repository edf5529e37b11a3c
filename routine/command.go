package routine

import (
	"fmt"
	"strings"
)

// Argument is one bound routine argument: the parameter it satisfies, the
// canonical text rendering used for both execution and fingerprinting, and
// whether the value is SQL NULL.
type Argument struct {
	Name string
	Text string
	Null bool
}

// Value returns the driver-level value: the text rendering, or nil for
// NULL. Every argument travels as text; the explicit cast in the command
// makes the server coerce it to the declared parameter type.
func (a Argument) Value() any {
	if a.Null {
		return nil
	}
	return a.Text
}

// ArgumentValues collects driver values positionally for Query/Exec.
func ArgumentValues(args []Argument) []any {
	values := make([]any, len(args))
	for i, a := range args {
		values[i] = a.Value()
	}
	return values
}

// BuildCommand renders the SQL invoking r with argc bound arguments:
// CALL for procedures, select * from for set-returning functions, plain
// select otherwise. One positional placeholder per bound argument, cast to
// the parameter's type, so binding is unambiguous regardless of the wire
// format. Passing argc below the declared count drops trailing parameters;
// the server fills their defaults. argc is clamped to the declared count.
//
//	select * from "api"."get_orders"($1::bigint, $2::text)
func BuildCommand(r *Routine, argc int) string {
	if argc < 0 {
		argc = 0
	}
	if argc > len(r.Params) {
		argc = len(r.Params)
	}
	var b strings.Builder
	switch {
	case r.Kind == KindProcedure:
		b.WriteString("call ")
	case r.ReturnsSet:
		b.WriteString("select * from ")
	default:
		b.WriteString("select ")
	}
	b.WriteString(r.Identity.SQL())
	b.WriteByte('(')
	for i, p := range r.Params[:argc] {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d::%s", i+1, p.TypeName)
	}
	b.WriteByte(')')
	return b.String()
}
