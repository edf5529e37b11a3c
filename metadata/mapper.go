package metadata

import (
	"fmt"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/routine"
)

// inputModes are the proargmodes values describing parameters a caller
// supplies: IN, INOUT and VARIADIC. OUT and TABLE parameters shape the
// result, not the call.
var inputModes = map[string]bool{"i": true, "b": true, "v": true}

// buildRoutine turns one catalog record into a routable routine with its
// default endpoint and annotation overrides applied. The returned warnings
// are malformed annotation directives; an error means the record cannot be
// exposed at all.
func buildRoutine(rec Record, prefix string) (*routine.Routine, []string, error) {
	if rec.Kind == "" {
		return nil, nil, fmt.Errorf("%w: empty prokind", ErrNotRoutable)
	}
	kind, ok := routine.ParseKind(rec.Kind[0])
	if !ok {
		return nil, nil, fmt.Errorf("%w: prokind %q", ErrNotRoutable, rec.Kind)
	}

	volatility := routine.VolatilityVolatile
	if rec.Volatility != "" {
		volatility = routine.ParseVolatility(rec.Volatility[0])
	}

	params, err := inputParams(rec)
	if err != nil {
		return nil, nil, err
	}

	r := &routine.Routine{
		Identity:   routine.Identity{Schema: rec.Schema, Name: rec.Name},
		Kind:       kind,
		Volatility: volatility,
		Params:     params,
		ReturnType: rec.ReturnType,
		ReturnsSet: rec.ReturnsSet,
		IsVoid:     rec.ReturnType == "void",
		Comment:    rec.Comment,
	}

	ep, warnings := routine.ApplyAnnotations(routine.DefaultEndpoint(r, prefix), rec.Comment)
	r.Endpoint = ep
	return r, warnings, nil
}

// inputParams extracts the caller-supplied parameters from a record. With no
// modes every declared parameter is IN and ArgNames aligns with InputTypes
// directly; with modes the input subset is selected, preserving order, and
// must line up with the input type arrays.
func inputParams(rec Record) ([]routine.Param, error) {
	var names []string
	switch {
	case len(rec.ArgModes) == 0:
		names = rec.ArgNames
	default:
		for i, mode := range rec.ArgModes {
			if !inputModes[mode] {
				continue
			}
			if i >= len(rec.ArgNames) {
				return nil, fmt.Errorf("%w: %d modes, %d names", ErrParameterMismatch, len(rec.ArgModes), len(rec.ArgNames))
			}
			names = append(names, rec.ArgNames[i])
		}
	}

	if len(names) != len(rec.InputTypes) || len(names) != len(rec.InputOIDs) {
		return nil, fmt.Errorf("%w: %d input names, %d types, %d oids",
			ErrParameterMismatch, len(names), len(rec.InputTypes), len(rec.InputOIDs))
	}

	firstDefault := len(names) - rec.NumDefaults
	params := make([]routine.Param, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%w: position %d", ErrUnnamedParameter, i+1)
		}
		params[i] = routine.Param{
			Name:       name,
			Position:   i + 1,
			TypeName:   rec.InputTypes[i],
			OID:        uint32(rec.InputOIDs[i]),
			HasDefault: i >= firstDefault,
		}
	}
	return params, nil
}
