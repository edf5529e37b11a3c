package metadata

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/NpgsqlRest/NpgsqlRest-sub005/routine"
)

// LoaderConfig selects what the loader exposes.
type LoaderConfig struct {
	// Schemas to introspect.
	Schemas []string

	// Prefix is the URL prefix for default endpoint paths.
	Prefix string
}

// Loader discovers routines and prepares their endpoints. Concurrent Load
// calls are collapsed: while one catalog pass is running, later callers wait
// for its outcome instead of issuing their own.
type Loader struct {
	catalog Catalog
	config  LoaderConfig
	logger  zerolog.Logger
	group   singleflight.Group
}

// NewLoader creates a loader over the given catalog.
func NewLoader(catalog Catalog, config LoaderConfig, logger zerolog.Logger) *Loader {
	return &Loader{catalog: catalog, config: config, logger: logger}
}

// Load introspects the configured schemas and returns every exposable
// routine, disabled ones included; routing decides what to serve. Records
// that cannot be exposed are skipped with a warning, never an error, so one
// odd routine does not take down a reload.
func (l *Loader) Load(ctx context.Context) ([]*routine.Routine, error) {
	v, err, shared := l.group.Do("load", func() (any, error) {
		return l.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.logger.Debug().Msg("metadata load shared with a concurrent caller")
	}
	return v.([]*routine.Routine), nil
}

func (l *Loader) load(ctx context.Context) ([]*routine.Routine, error) {
	records, err := l.catalog.Routines(ctx, l.config.Schemas)
	if err != nil {
		return nil, fmt.Errorf("metadata: load: %w", err)
	}

	routines := make([]*routine.Routine, 0, len(records))
	for _, rec := range records {
		r, warnings, err := buildRoutine(rec, l.config.Prefix)
		if err != nil {
			l.logger.Warn().Err(err).Str("routine", rec.Identity()).Msg("routine skipped")
			continue
		}
		for _, w := range warnings {
			l.logger.Warn().Str("routine", r.Identity.String()).Str("directive", w).
				Msg("annotation ignored")
		}
		routines = append(routines, r)
	}

	l.logger.Info().
		Int("routines", len(routines)).
		Strs("schemas", l.config.Schemas).
		Msg("metadata loaded")
	return routines, nil
}
