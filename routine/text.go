package routine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CanonicalText renders one decoded JSON value as argument text. The same
// rendering feeds both the positional placeholder and the cache fingerprint,
// so equal values always hash to equal keys. Strings pass through verbatim,
// json.Number keeps the literal from the request, booleans render true and
// false, arrays become PostgreSQL array literals, and objects compact JSON
// for json parameters. A JSON null reports SQL NULL.
func CanonicalText(v any) (text string, null bool, err error) {
	switch val := v.(type) {
	case nil:
		return "", true, nil
	case string:
		return val, false, nil
	case json.Number:
		return val.String(), false, nil
	case bool:
		return strconv.FormatBool(val), false, nil
	case float64:
		// Only from decoders without UseNumber.
		return strconv.FormatFloat(val, 'g', -1, 64), false, nil
	case []any:
		text, err = arrayLiteral(val)
		return text, false, err
	case map[string]any:
		compact, merr := json.Marshal(val)
		if merr != nil {
			return "", false, merr
		}
		return string(compact), false, nil
	default:
		return "", false, fmt.Errorf("routine: cannot render %T as argument text", v)
	}
}

// arrayLiteral renders a JSON array as a PostgreSQL array literal. Nested
// arrays recurse, null elements render the bare NULL keyword, and everything
// else goes through CanonicalText before element quoting.
func arrayLiteral(vals []any) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range vals {
		if i > 0 {
			b.WriteByte(',')
		}
		if v == nil {
			b.WriteString("NULL")
			continue
		}
		if nested, ok := v.([]any); ok {
			inner, err := arrayLiteral(nested)
			if err != nil {
				return "", err
			}
			b.WriteString(inner)
			continue
		}
		text, _, err := CanonicalText(v)
		if err != nil {
			return "", err
		}
		writeArrayElement(&b, text)
	}
	b.WriteByte('}')
	return b.String(), nil
}

// writeArrayElement writes one scalar element, double-quoting when the bare
// form would be ambiguous: empty text, the NULL keyword, or anything holding
// braces, commas, quotes, backslashes, or whitespace.
func writeArrayElement(b *strings.Builder, text string) {
	if text != "" && !strings.EqualFold(text, "null") && !strings.ContainsAny(text, "{}, \t\n\r\"\\") {
		b.WriteString(text)
		return
	}
	b.WriteByte('"')
	for _, r := range text {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
}
