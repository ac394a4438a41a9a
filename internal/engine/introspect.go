package engine

import (
	"context"
	"fmt"

	"tabledash/internal/store"
)

// Introspector resolves table structure from the live database catalog.
// Nothing is cached: accessible tables are arbitrary and may be created or
// dropped at any time, so every access re-derives the column set. Column
// order is whatever the catalog reports, which is stable for a given schema
// generation.
type Introspector struct {
	store *store.Store
}

func NewIntrospector(s *store.Store) *Introspector {
	return &Introspector{store: s}
}

// TableExists queries the live catalog.
func (in *Introspector) TableExists(ctx context.Context, table string) (bool, error) {
	return in.store.Dialect.TableExists(ctx, in.store.DB, table)
}

// Columns returns the ordered column names of the table, or TableNotFound
// if the table does not exist at call time. A race against a concurrent
// drop surfaces as the same error.
func (in *Introspector) Columns(ctx context.Context, table string) ([]string, error) {
	exists, err := in.TableExists(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("check table %s: %w", table, err)
	}
	if !exists {
		return nil, TableNotFoundError()
	}

	cols, err := in.store.Dialect.Columns(ctx, in.store.DB, table)
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		// Dropped between the two catalog queries
		return nil, TableNotFoundError()
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}
