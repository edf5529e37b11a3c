// Package routine models database routines and their HTTP projection:
// identity, parameters, return shape, and the endpoint settings derived from
// defaults plus comment annotations. It also renders the SQL command text
// used to invoke a routine with positional, type-cast placeholders, and the
// canonical text form of bound arguments.
package routine
