package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/cache"
	"github.com/NpgsqlRest/NpgsqlRest-sub005/routine"
)

// ContentTypeJSON is the content type of every successful body.
const ContentTypeJSON = "application/json"

// renderRows consumes the row stream and produces the response body. Set
// results become a JSON array of row objects in column order; a single-row
// result becomes the bare value for one column and an object otherwise;
// void routines yield 204 with no body. Statement errors surface from
// rows.Err after the stream ends, so a failure here is still classifiable
// and retryable upstream.
func renderRows(rows pgx.Rows, r *routine.Routine) (*cache.Result, error) {
	defer rows.Close()

	if r.IsVoid {
		for rows.Next() {
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return &cache.Result{Status: http.StatusNoContent}, nil
	}

	if r.ReturnsSet {
		return renderSet(rows)
	}
	return renderSingle(rows)
}

func renderSet(rows pgx.Rows) (*cache.Result, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	var count int64
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		if count > 0 {
			buf.WriteByte(',')
		}
		if err := writeObject(&buf, rows.FieldDescriptions(), values); err != nil {
			return nil, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	buf.WriteByte(']')
	return &cache.Result{
		Status:      http.StatusOK,
		ContentType: ContentTypeJSON,
		Body:        buf.Bytes(),
		RowCount:    count,
		IsSet:       true,
	}, nil
}

func renderSingle(rows pgx.Rows) (*cache.Result, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return &cache.Result{Status: http.StatusNoContent}, nil
	}

	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	fields := rows.FieldDescriptions()

	var buf bytes.Buffer
	if len(values) == 1 {
		err = writeValue(&buf, values[0])
	} else {
		err = writeObject(&buf, fields, values)
	}
	if err != nil {
		return nil, err
	}

	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &cache.Result{
		Status:      http.StatusOK,
		ContentType: ContentTypeJSON,
		Body:        buf.Bytes(),
		RowCount:    1,
	}, nil
}

func writeObject(buf *bytes.Buffer, fields []pgconn.FieldDescription, values []any) error {
	buf.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(fields[i].Name)
		if err != nil {
			return err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if err := writeValue(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeValue renders one column value as JSON. Numerics keep their exact
// decimal text, uuids their canonical form; everything else takes the
// driver's Go mapping through encoding/json.
func writeValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case pgtype.Numeric:
		return writeNumeric(buf, val)
	case [16]byte:
		b, err := json.Marshal(uuid.UUID(val).String())
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	case float64:
		return writeFloat(buf, val)
	case float32:
		return writeFloat(buf, float64(val))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("pipeline: render %T column: %w", v, err)
		}
		buf.Write(b)
		return nil
	}
}

func writeNumeric(buf *bytes.Buffer, n pgtype.Numeric) error {
	switch {
	case !n.Valid:
		buf.WriteString("null")
	case n.NaN:
		buf.WriteString(`"NaN"`)
	case n.InfinityModifier == pgtype.Infinity:
		buf.WriteString(`"Infinity"`)
	case n.InfinityModifier == pgtype.NegativeInfinity:
		buf.WriteString(`"-Infinity"`)
	default:
		buf.WriteString(decimal.NewFromBigInt(n.Int, n.Exp).String())
	}
	return nil
}

// writeFloat renders finite floats as numbers. JSON has no NaN or Infinity,
// so those become strings rather than failing the whole row.
func writeFloat(buf *bytes.Buffer, f float64) error {
	switch {
	case math.IsNaN(f):
		buf.WriteString(`"NaN"`)
	case math.IsInf(f, 1):
		buf.WriteString(`"Infinity"`)
	case math.IsInf(f, -1):
		buf.WriteString(`"-Infinity"`)
	default:
		b, err := json.Marshal(f)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
