package engine

import (
	"context"
	"fmt"
	"strings"

	"tabledash/internal/metadata"
	"tabledash/internal/store"
)

// View modes for the read path.
const (
	ModeSpreadsheet = "spreadsheet"
	ModeList        = "list"
	ModeForm        = "form"
)

// Gateway is the single enforcement chokepoint for every read and write
// against a dynamically named table. It is stateless across requests: the
// permission predicate and the table's column set are evaluated fresh on
// each call.
//
// Identifier safety contract: the table name and every column name that
// reaches SQL text are validated against the live catalog first. The table
// name must exist in the catalog; submitted column names must be members of
// the freshly introspected column set. Values are always bound parameters.
type Gateway struct {
	store        *store.Store
	introspector *Introspector
}

func NewGateway(s *store.Store) *Gateway {
	return &Gateway{store: s, introspector: NewIntrospector(s)}
}

// Introspector exposes the gateway's schema resolver.
func (g *Gateway) Introspector() *Introspector {
	return g.introspector
}

// ReadResult is the outcome of a ReadTable call: rows for the data modes,
// column names for form mode.
type ReadResult struct {
	Form    bool
	Rows    []RowRecord
	Columns []string
}

// ReadTable serves the read path. The gate here is accessible-tables
// membership, not the view capability; the two are deliberately distinct
// grants. Check order is permission, then mode, then existence: the
// permission check is pure and leaks nothing, the mode check must reject
// before any query is issued, and only then is the catalog consulted.
func (g *Gateway) ReadTable(ctx context.Context, user *metadata.User, table, mode string) (*ReadResult, error) {
	if !user.CanAccess(table) {
		return nil, AccessDeniedError()
	}

	switch mode {
	case ModeSpreadsheet, ModeList, ModeForm:
	default:
		return nil, InvalidModeError(mode)
	}

	columns, err := g.resolveColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	if mode == ModeForm {
		// Schema only, no row fetch
		names := make([]string, 0, len(columns)-1)
		for _, c := range columns {
			if c != "id" {
				names = append(names, c)
			}
		}
		return &ReadResult{Form: true, Columns: names}, nil
	}

	sqlStr := fmt.Sprintf("SELECT %s FROM %s", strings.Join(columns, ", "), table)
	rows, err := store.QueryRows(ctx, g.store.DB, sqlStr)
	if err != nil {
		return nil, StoreError(g.store.Dialect.MapError(err))
	}

	records := make([]RowRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := EncodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("encode row of %s: %w", table, err)
		}
		records = append(records, rec)
	}
	return &ReadResult{Rows: records}, nil
}

// WriteTable serves the write path. The gate here is the edit capability.
// A nil payload id inserts; a non-nil id updates that row. The whole write
// runs in one transaction: any failure rolls back with no partial mutation.
// Returns the row id (generated on insert, echoed on update).
func (g *Gateway) WriteTable(ctx context.Context, user *metadata.User, table string, payload WritePayload) (any, error) {
	if !user.CanEdit(table) {
		return nil, AccessDeniedError()
	}

	columns, err := g.resolveColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	values, err := DecodePayload(payload.UserData)
	if err != nil {
		return nil, err
	}

	// Submitted column names become SQL identifiers; anything outside the
	// introspected set fails closed before statement text is built.
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	for col := range values {
		if !known[col] {
			return nil, StoreError(fmt.Errorf("unknown column %q for table %s", col, table))
		}
	}
	if len(values) == 0 {
		return nil, StoreError(fmt.Errorf("no columns to write for table %s", table))
	}

	// Deterministic statement shape: submitted columns in catalog order
	var writeCols []string
	for _, c := range columns {
		if _, ok := values[c]; ok {
			writeCols = append(writeCols, c)
		}
	}

	tx, err := g.store.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id any
	if payload.ID == nil {
		id, err = g.insertRow(ctx, tx, table, writeCols, values)
	} else {
		id = payload.ID
		err = g.updateRow(ctx, tx, table, payload.ID, writeCols, values)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, StoreError(fmt.Errorf("commit: %w", err))
	}
	return id, nil
}

// CheckEditPermission is the predicate behind /check_edit_permission.
func (g *Gateway) CheckEditPermission(user *metadata.User, table string) bool {
	return user.CanEdit(table)
}

// resolveColumns runs the existence check and enforces the id precondition:
// every user-facing table must expose an id primary key, and discovering
// its absence here beats discovering it mid-statement.
func (g *Gateway) resolveColumns(ctx context.Context, table string) ([]string, error) {
	columns, err := g.introspector.Columns(ctx, table)
	if err != nil {
		return nil, err
	}
	for _, c := range columns {
		if c == "id" {
			return columns, nil
		}
	}
	return nil, StoreError(fmt.Errorf("table %s has no id column", table))
}

func (g *Gateway) insertRow(ctx context.Context, tx store.Querier, table string, cols []string, values map[string]any) (any, error) {
	pb := g.store.Dialect.NewParamBuilder()
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = pb.Add(values[c])
	}

	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if g.store.Dialect.SupportsReturning() {
		var id any
		err := tx.QueryRowContext(ctx, sqlStr+" RETURNING id", pb.Params()...).Scan(&id)
		if err != nil {
			return nil, StoreError(g.store.Dialect.MapError(err))
		}
		return store.NormalizeValue(id), nil
	}

	result, err := tx.ExecContext(ctx, sqlStr, pb.Params()...)
	if err != nil {
		return nil, StoreError(g.store.Dialect.MapError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, StoreError(fmt.Errorf("last insert id: %w", err))
	}
	return id, nil
}

func (g *Gateway) updateRow(ctx context.Context, tx store.Querier, table string, id any, cols []string, values map[string]any) error {
	pb := g.store.Dialect.NewParamBuilder()
	assignments := make([]string, len(cols))
	for i, c := range cols {
		assignments[i] = fmt.Sprintf("%s = %s", c, pb.Add(values[c]))
	}

	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		table, strings.Join(assignments, ", "), pb.Add(id))

	if _, err := tx.ExecContext(ctx, sqlStr, pb.Params()...); err != nil {
		return StoreError(g.store.Dialect.MapError(err))
	}
	return nil
}
