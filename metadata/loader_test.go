package metadata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoader_LoadSkipsBadRecords(t *testing.T) {
	catalog := CatalogFunc(func(_ context.Context, schemas []string) ([]Record, error) {
		if len(schemas) != 1 || schemas[0] != "api" {
			t.Errorf("schemas = %v, want [api]", schemas)
		}
		return []Record{
			stableRecord(),
			{Schema: "api", Name: "broken", Kind: "f", ArgNames: []string{""}, InputTypes: []string{"text"}, InputOIDs: []int64{25}},
		}, nil
	})

	loader := NewLoader(catalog, LoaderConfig{Schemas: []string{"api"}, Prefix: "/api"}, zerolog.Nop())

	routines, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(routines) != 1 {
		t.Fatalf("Load() returned %d routines, want 1", len(routines))
	}
	if routines[0].Identity.String() != "api.get_orders" {
		t.Errorf("routine = %v, want api.get_orders", routines[0].Identity)
	}
}

func TestLoader_LoadPropagatesCatalogError(t *testing.T) {
	boom := errors.New("catalog down")
	catalog := CatalogFunc(func(context.Context, []string) ([]Record, error) {
		return nil, boom
	})

	loader := NewLoader(catalog, LoaderConfig{Schemas: []string{"api"}}, zerolog.Nop())

	_, err := loader.Load(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want wrapped catalog error", err)
	}
}

func TestLoader_ConcurrentLoadsShareOnePass(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})

	catalog := CatalogFunc(func(context.Context, []string) ([]Record, error) {
		calls.Add(1)
		<-gate
		return []Record{stableRecord()}, nil
	})

	loader := NewLoader(catalog, LoaderConfig{Schemas: []string{"api"}, Prefix: "/api"}, zerolog.Nop())

	const workers = 8
	var wg sync.WaitGroup
	results := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			routines, err := loader.Load(context.Background())
			if err != nil {
				t.Errorf("Load() error = %v", err)
				return
			}
			results[i] = len(routines)
		}(i)
	}

	// Let every worker reach the loader before releasing the catalog.
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("catalog passes = %d, want 1", got)
	}
	for i, n := range results {
		if n != 1 {
			t.Errorf("worker %d saw %d routines, want 1", i, n)
		}
	}
}

func TestLoader_DisabledRoutinesStayListed(t *testing.T) {
	rec := stableRecord()
	rec.Comment = "disabled"

	catalog := CatalogFunc(func(context.Context, []string) ([]Record, error) {
		return []Record{rec}, nil
	})

	loader := NewLoader(catalog, LoaderConfig{Schemas: []string{"api"}, Prefix: "/api"}, zerolog.Nop())

	routines, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(routines) != 1 {
		t.Fatalf("Load() returned %d routines, want 1", len(routines))
	}
	if routines[0].Endpoint.Enabled {
		t.Error("Enabled = true, want false from the disabled directive")
	}
}
