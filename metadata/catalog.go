package metadata

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// routinesQuery lists callable routines in the requested schemas. Aggregates,
// window functions and trigger functions are excluded up front; the two
// correlated subqueries expand proargtypes into positional type names and
// OIDs so the driver never has to decode an oidvector.
const routinesQuery = `
select
	n.nspname,
	p.proname,
	p.prokind::text,
	p.provolatile::text,
	p.proretset,
	pg_catalog.format_type(p.prorettype, null),
	coalesce(d.description, ''),
	coalesce(p.proargnames, '{}'::text[]),
	coalesce(p.proargmodes::text[], '{}'::text[]),
	coalesce((
		select array_agg(pg_catalog.format_type(t.oid, null) order by t.ord)
		from unnest(p.proargtypes) with ordinality as t(oid, ord)
	), '{}'::text[]),
	coalesce((
		select array_agg(t.oid::bigint order by t.ord)
		from unnest(p.proargtypes) with ordinality as t(oid, ord)
	), '{}'::bigint[]),
	p.pronargdefaults
from pg_catalog.pg_proc p
join pg_catalog.pg_namespace n on n.oid = p.pronamespace
left join pg_catalog.pg_description d
	on d.objoid = p.oid and d.classoid = 'pg_catalog.pg_proc'::regclass
where n.nspname = any($1)
	and p.prokind in ('f', 'p')
	and p.prorettype not in ('trigger'::regtype, 'event_trigger'::regtype)
order by n.nspname, p.proname
`

// Record is one catalog row, still in catalog vocabulary. ArgNames and
// ArgModes cover every declared parameter; InputTypes and InputOIDs cover
// input parameters only, in declaration order, which is how proargtypes
// stores them.
type Record struct {
	Schema     string
	Name       string
	Kind       string
	Volatility string
	ReturnsSet bool
	ReturnType string
	Comment    string

	ArgNames []string
	// ArgModes is empty when every parameter is IN.
	ArgModes   []string
	InputTypes []string
	InputOIDs  []int64

	// NumDefaults counts the trailing input parameters that carry defaults.
	NumDefaults int
}

// Identity returns the schema-qualified name for logs.
func (r Record) Identity() string {
	return r.Schema + "." + r.Name
}

// Catalog lists the routines visible in a set of schemas.
type Catalog interface {
	Routines(ctx context.Context, schemas []string) ([]Record, error)
}

// CatalogFunc adapts a function to the Catalog interface.
type CatalogFunc func(ctx context.Context, schemas []string) ([]Record, error)

// Routines calls f.
func (f CatalogFunc) Routines(ctx context.Context, schemas []string) ([]Record, error) {
	return f(ctx, schemas)
}

// Querier is the slice of the pgx API the catalog needs. *pgxpool.Pool
// satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DatabaseCatalog reads pg_proc through a live connection pool.
type DatabaseCatalog struct {
	db Querier
}

// NewDatabaseCatalog creates a catalog over the given pool.
func NewDatabaseCatalog(db Querier) *DatabaseCatalog {
	return &DatabaseCatalog{db: db}
}

// Routines runs the catalog query and scans the rows.
func (c *DatabaseCatalog) Routines(ctx context.Context, schemas []string) ([]Record, error) {
	rows, err := c.db.Query(ctx, routinesQuery, schemas)
	if err != nil {
		return nil, fmt.Errorf("metadata: query pg_proc: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.Schema, &rec.Name, &rec.Kind, &rec.Volatility,
			&rec.ReturnsSet, &rec.ReturnType, &rec.Comment,
			&rec.ArgNames, &rec.ArgModes, &rec.InputTypes, &rec.InputOIDs,
			&rec.NumDefaults,
		); err != nil {
			return nil, fmt.Errorf("metadata: scan pg_proc row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("metadata: read pg_proc rows: %w", err)
	}
	return records, nil
}

var _ Catalog = (*DatabaseCatalog)(nil)
var _ Catalog = (CatalogFunc)(nil)
