package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/routine"
)

// bindArguments extracts invocation arguments for r from the request. GET,
// HEAD and DELETE read the query string; other methods expect a JSON object
// body, an empty body binding like an empty object. Names not declared by
// the routine are ignored.
func bindArguments(r *routine.Routine, req *http.Request) ([]routine.Argument, error) {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return bindQuery(r, req.URL.Query())
	default:
		return bindBody(r, req.Body)
	}
}

// bindQuery binds from query values. A repeated key becomes an array
// argument; single values pass through as verbatim text.
func bindQuery(r *routine.Routine, query url.Values) ([]routine.Argument, error) {
	values := make(map[string]any, len(query))
	for name, vs := range query {
		switch len(vs) {
		case 0:
		case 1:
			values[name] = vs[0]
		default:
			elems := make([]any, len(vs))
			for i, v := range vs {
				elems[i] = v
			}
			values[name] = elems
		}
	}
	return bindValues(r, values)
}

// bindBody binds from a JSON object, decoded with UseNumber so numeric
// literals reach the canonical text unchanged.
func bindBody(r *routine.Routine, body io.Reader) ([]routine.Argument, error) {
	values := map[string]any{}
	if body != nil {
		dec := json.NewDecoder(body)
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
	}
	return bindValues(r, values)
}

// bindValues pairs named values with declared parameters in order. A
// parameter with a default may be omitted only as part of a trailing run;
// positional placeholders cannot skip a middle parameter.
func bindValues(r *routine.Routine, values map[string]any) ([]routine.Argument, error) {
	args := make([]routine.Argument, 0, len(r.Params))
	omitted := ""
	for _, p := range r.Params {
		v, ok := values[p.Name]
		if !ok {
			if !p.HasDefault {
				return nil, fmt.Errorf("%w: %s", ErrMissingParameter, p.Name)
			}
			if omitted == "" {
				omitted = p.Name
			}
			continue
		}
		if omitted != "" {
			return nil, fmt.Errorf("%w: %s must be set when %s is", ErrMissingParameter, omitted, p.Name)
		}
		text, null, err := routine.CanonicalText(v)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %s: %v", ErrMalformedBody, p.Name, err)
		}
		args = append(args, routine.Argument{Name: p.Name, Text: text, Null: null})
	}
	return args, nil
}
