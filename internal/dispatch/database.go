package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/supabridge/supabridge/internal/model"
	"github.com/supabridge/supabridge/internal/query"
	"github.com/supabridge/supabridge/internal/supabase"
)

// dispatchDatabase routes a database operation to its handler. Each handler
// builds and issues exactly one backend call and reshapes the response.
func dispatchDatabase(ctx context.Context, c *supabase.Client, req model.OperationRequest, opts Options) ([]model.ResultItem, error) {
	switch req.Operation {
	case model.OpCreate:
		return dbCreate(ctx, c, req)
	case model.OpRead:
		return dbRead(ctx, c, req, opts)
	case model.OpUpdate:
		return dbUpdate(ctx, c, req, opts)
	case model.OpDelete:
		return dbDelete(ctx, c, req, opts)
	case model.OpUpsert:
		return dbUpsert(ctx, c, req)
	case model.OpCreateTable:
		return dbCreateTable(ctx, c, req)
	case model.OpDropTable:
		return dbDropTable(ctx, c, req)
	case model.OpAddColumn:
		return dbAddColumn(ctx, c, req)
	case model.OpDropColumn:
		return dbDropColumn(ctx, c, req)
	case model.OpCreateIndex:
		return dbCreateIndex(ctx, c, req)
	case model.OpDropIndex:
		return dbDropIndex(ctx, c, req)
	case model.OpCustomQuery:
		return dbCustomQuery(ctx, c, req)
	default:
		return nil, fmt.Errorf("unknown database operation %q", req.Operation)
	}
}

func dbCreate(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	table, err := req.Params.RequireString("table")
	if err != nil {
		return nil, err
	}
	row, err := resolveRowData(req.Params)
	if err != nil {
		return nil, err
	}

	inserted, err := c.Insert(ctx, table, []map[string]any{row})
	if err != nil {
		return nil, err
	}

	items := make([]model.ResultItem, 0, len(inserted))
	for _, r := range inserted {
		items = append(items, model.NewResultItem(req.ItemIndex, map[string]any{
			"operation": string(req.Operation),
			"table":     table,
			"data":      r,
		}))
	}
	return items, nil
}

func dbRead(ctx context.Context, c *supabase.Client, req model.OperationRequest, opts Options) ([]model.ResultItem, error) {
	table, err := req.Params.RequireString("table")
	if err != nil {
		return nil, err
	}
	filters, err := resolveFilters(req.Params, opts.StrictOperators)
	if err != nil {
		return nil, err
	}
	sorts, err := resolveSorts(req.Params)
	if err != nil {
		return nil, err
	}

	rows, err := c.Select(ctx, supabase.SelectQuery{
		Table:   table,
		Columns: resolveColumnList(req.Params, "columns"),
		Filters: filters,
		Sorts:   sorts,
		Limit:   req.Params.Int("limit", 0),
		Offset:  req.Params.Int("offset", 0),
	})
	if err != nil {
		return nil, err
	}

	// Zero matches still produce one item so downstream consumers are
	// never starved.
	if len(rows) == 0 {
		return []model.ResultItem{model.NewResultItem(req.ItemIndex, map[string]any{
			"operation": string(req.Operation),
			"table":     table,
			"data":      []map[string]any{},
			"count":     0,
			"message":   "No records found",
		})}, nil
	}

	items := make([]model.ResultItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, model.NewResultItem(req.ItemIndex, map[string]any{
			"operation": string(req.Operation),
			"table":     table,
			"data":      r,
		}))
	}
	return items, nil
}

func dbUpdate(ctx context.Context, c *supabase.Client, req model.OperationRequest, opts Options) ([]model.ResultItem, error) {
	table, err := req.Params.RequireString("table")
	if err != nil {
		return nil, err
	}
	row, err := resolveRowData(req.Params)
	if err != nil {
		return nil, err
	}
	// Filters are optional for update: an empty chain updates all rows.
	filters, err := resolveFilters(req.Params, opts.StrictOperators)
	if err != nil {
		return nil, err
	}

	updated, err := c.Update(ctx, table, row, filters)
	if err != nil {
		return nil, err
	}

	return []model.ResultItem{model.NewResultItem(req.ItemIndex, map[string]any{
		"operation": string(req.Operation),
		"table":     table,
		"data":      updated,
		"updated":   len(updated),
	})}, nil
}

func dbDelete(ctx context.Context, c *supabase.Client, req model.OperationRequest, opts Options) ([]model.ResultItem, error) {
	table, err := req.Params.RequireString("table")
	if err != nil {
		return nil, err
	}
	filters, err := resolveFilters(req.Params, opts.StrictOperators)
	if err != nil {
		return nil, err
	}
	// Safety gate: refuse full-table deletion by omission. Checked before
	// any backend call is issued.
	if len(filters) == 0 {
		return nil, model.NewValidationError("filters", "at least one filter required for delete")
	}

	deleted, err := c.DeleteRows(ctx, table, filters)
	if err != nil {
		return nil, err
	}

	return []model.ResultItem{model.NewResultItem(req.ItemIndex, map[string]any{
		"operation": string(req.Operation),
		"table":     table,
		"data":      deleted,
		"deleted":   len(deleted),
	})}, nil
}

func dbUpsert(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	table, err := req.Params.RequireString("table")
	if err != nil {
		return nil, err
	}
	row, err := resolveRowData(req.Params)
	if err != nil {
		return nil, err
	}

	rows, err := c.Upsert(ctx, table, []map[string]any{row}, resolveColumnList(req.Params, "conflictColumns"))
	if err != nil {
		return nil, err
	}

	return []model.ResultItem{model.NewResultItem(req.ItemIndex, map[string]any{
		"operation": string(req.Operation),
		"table":     table,
		"data":      rows,
	})}, nil
}

// ---------------------------------------------------------------------------
// Schema mutations: synthesize DDL text, execute it through the exec_sql
// RPC, and echo the statement back with a success flag.
// ---------------------------------------------------------------------------

func execDDL(ctx context.Context, c *supabase.Client, req model.OperationRequest, table, sql string) ([]model.ResultItem, error) {
	if _, err := c.ExecSQL(ctx, sql); err != nil {
		return nil, err
	}
	out := map[string]any{
		"operation": string(req.Operation),
		"sql":       sql,
		"success":   true,
	}
	if table != "" {
		out["table"] = table
	}
	return []model.ResultItem{model.NewResultItem(req.ItemIndex, out)}, nil
}

func dbCreateTable(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	table, err := req.Params.RequireString("table")
	if err != nil {
		return nil, err
	}
	defs := req.Params.MapSlice("columns")
	cols := make([]query.ColumnDefinition, 0, len(defs))
	for _, d := range defs {
		cols = append(cols, resolveColumnDefinition(d))
	}
	sql, err := query.BuildCreateTable(table, cols)
	if err != nil {
		return nil, err
	}
	return execDDL(ctx, c, req, table, sql)
}

func dbDropTable(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	table, err := req.Params.RequireString("table")
	if err != nil {
		return nil, err
	}
	sql, err := query.BuildDropTable(table, req.Params.Bool("cascade"))
	if err != nil {
		return nil, err
	}
	return execDDL(ctx, c, req, table, sql)
}

func dbAddColumn(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	table, err := req.Params.RequireString("table")
	if err != nil {
		return nil, err
	}
	def := req.Params.Map("column")
	if def == nil {
		return nil, model.NewValidationError("column", "required field is missing")
	}
	sql, err := query.BuildAddColumn(table, resolveColumnDefinition(def))
	if err != nil {
		return nil, err
	}
	return execDDL(ctx, c, req, table, sql)
}

func dbDropColumn(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	table, err := req.Params.RequireString("table")
	if err != nil {
		return nil, err
	}
	column, err := req.Params.RequireString("column")
	if err != nil {
		return nil, err
	}
	sql, err := query.BuildDropColumn(table, column, req.Params.Bool("cascade"))
	if err != nil {
		return nil, err
	}
	return execDDL(ctx, c, req, table, sql)
}

func dbCreateIndex(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	table, err := req.Params.RequireString("table")
	if err != nil {
		return nil, err
	}
	def := query.IndexDefinition{
		Name:    req.Params.String("indexName"),
		Columns: resolveColumnList(req.Params, "columns"),
		Unique:  req.Params.Bool("unique"),
		Method:  req.Params.String("method"),
	}
	sql, err := query.BuildCreateIndex(table, def)
	if err != nil {
		return nil, err
	}
	return execDDL(ctx, c, req, table, sql)
}

func dbDropIndex(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	name, err := req.Params.RequireString("indexName")
	if err != nil {
		return nil, err
	}
	sql, err := query.BuildDropIndex(name, req.Params.Bool("cascade"))
	if err != nil {
		return nil, err
	}
	return execDDL(ctx, c, req, "", sql)
}

func dbCustomQuery(ctx context.Context, c *supabase.Client, req model.OperationRequest) ([]model.ResultItem, error) {
	sql, err := req.Params.RequireString("query")
	if err != nil {
		return nil, err
	}

	// Read-only statements go through the select RPC variant, which
	// returns rows; everything else returns an opaque result.
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(sql)), "select") {
		rows, err := c.ExecSQLSelect(ctx, sql)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return []model.ResultItem{model.NewResultItem(req.ItemIndex, map[string]any{
				"operation": string(req.Operation),
				"data":      []map[string]any{},
				"count":     0,
				"message":   "No records found",
			})}, nil
		}
		items := make([]model.ResultItem, 0, len(rows))
		for _, r := range rows {
			items = append(items, model.NewResultItem(req.ItemIndex, map[string]any{
				"operation": string(req.Operation),
				"data":      r,
			}))
		}
		return items, nil
	}

	result, err := c.ExecSQL(ctx, sql)
	if err != nil {
		return nil, err
	}
	return []model.ResultItem{model.NewResultItem(req.ItemIndex, map[string]any{
		"operation": string(req.Operation),
		"result":    result,
		"success":   true,
	})}, nil
}
