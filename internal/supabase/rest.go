package supabase

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/supabridge/supabridge/internal/query"
)

// SelectQuery describes one row-read request.
type SelectQuery struct {
	Table   string
	Columns []string // projection; empty means *
	Filters []query.RowFilter
	Sorts   []query.RowSort
	Limit   int
	Offset  int
}

func (c *Client) restHeaders(write bool) http.Header {
	h := http.Header{}
	h.Set("Accept-Profile", c.creds.Schema)
	if write {
		h.Set("Content-Profile", c.creds.Schema)
	}
	return h
}

func buildRowQuery(q *Query, columns []string, filters []query.RowFilter, sorts []query.RowSort) error {
	if len(columns) > 0 {
		if err := query.ValidateColumnNames(columns); err != nil {
			return err
		}
		q.Add("select", strings.Join(columns, ","))
	}
	if err := query.ApplyFilters(q, filters); err != nil {
		return err
	}
	return query.ApplySorts(q, sorts)
}

// Select reads rows from a table with projection, filter chain, sort chain,
// and pagination applied in that order.
func (c *Client) Select(ctx context.Context, sq SelectQuery) ([]map[string]any, error) {
	if err := query.ValidateTableName(sq.Table); err != nil {
		return nil, err
	}

	q := &Query{}
	if err := buildRowQuery(q, sq.Columns, sq.Filters, sq.Sorts); err != nil {
		return nil, err
	}
	if sq.Limit > 0 {
		q.Add("limit", strconv.Itoa(sq.Limit))
	}
	if sq.Offset > 0 {
		q.Add("offset", strconv.Itoa(sq.Offset))
	}

	var rows []map[string]any
	err := c.doJSON(ctx, http.MethodGet, restPrefix+"/"+sq.Table, q, c.restHeaders(false), nil, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

func returnRepresentation(h http.Header) http.Header {
	h.Set("Prefer", "return=representation")
	return h
}

// Insert inserts rows and returns the inserted rows.
func (c *Client) Insert(ctx context.Context, table string, rows []map[string]any) ([]map[string]any, error) {
	if err := query.ValidateTableName(table); err != nil {
		return nil, err
	}
	var out []map[string]any
	h := returnRepresentation(c.restHeaders(true))
	if err := c.doJSON(ctx, http.MethodPost, restPrefix+"/"+table, nil, h, rows, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts rows, merging duplicates. conflictColumns optionally names
// the conflict target.
func (c *Client) Upsert(ctx context.Context, table string, rows []map[string]any, conflictColumns []string) ([]map[string]any, error) {
	if err := query.ValidateTableName(table); err != nil {
		return nil, err
	}
	q := &Query{}
	if len(conflictColumns) > 0 {
		if err := query.ValidateColumnNames(conflictColumns); err != nil {
			return nil, err
		}
		q.Add("on_conflict", strings.Join(conflictColumns, ","))
	}
	h := c.restHeaders(true)
	h.Set("Prefer", "return=representation,resolution=merge-duplicates")

	var out []map[string]any
	if err := c.doJSON(ctx, http.MethodPost, restPrefix+"/"+table, q, h, rows, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update patches rows matched by the filter chain and returns the affected
// rows. An empty filter chain updates every row; callers that need a guard
// must enforce it before calling.
func (c *Client) Update(ctx context.Context, table string, row map[string]any, filters []query.RowFilter) ([]map[string]any, error) {
	if err := query.ValidateTableName(table); err != nil {
		return nil, err
	}
	q := &Query{}
	if err := query.ApplyFilters(q, filters); err != nil {
		return nil, err
	}
	var out []map[string]any
	h := returnRepresentation(c.restHeaders(true))
	if err := c.doJSON(ctx, http.MethodPatch, restPrefix+"/"+table, q, h, row, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRows removes rows matched by the filter chain and returns the
// removed rows. The empty-filter guard lives in the dispatch layer, before
// any backend call is issued.
func (c *Client) DeleteRows(ctx context.Context, table string, filters []query.RowFilter) ([]map[string]any, error) {
	if err := query.ValidateTableName(table); err != nil {
		return nil, err
	}
	q := &Query{}
	if err := query.ApplyFilters(q, filters); err != nil {
		return nil, err
	}
	var out []map[string]any
	h := returnRepresentation(c.restHeaders(true))
	if err := c.doJSON(ctx, http.MethodDelete, restPrefix+"/"+table, q, h, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// RPC calling convention
// ---------------------------------------------------------------------------

// ExecSQL executes raw SQL through the exec_sql stored procedure. The
// procedure is external: the backend must provide it, and its result is
// opaque to this layer.
func (c *Client) ExecSQL(ctx context.Context, sql string) (any, error) {
	var out any
	err := c.doJSON(ctx, http.MethodPost, restPrefix+"/rpc/exec_sql", nil, c.restHeaders(true),
		map[string]any{"sql": sql}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExecSQLSelect executes read-only SQL through the exec_sql_select stored
// procedure, which returns a row array.
func (c *Client) ExecSQLSelect(ctx context.Context, sql string) ([]map[string]any, error) {
	var rows []map[string]any
	err := c.doJSON(ctx, http.MethodPost, restPrefix+"/rpc/exec_sql_select", nil, c.restHeaders(true),
		map[string]any{"sql": sql}, &rows)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}
