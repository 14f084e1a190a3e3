package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/supabridge/supabridge/internal/model"
)

// registerTools registers all Supabridge MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Database tools -----

	srv.AddTool(
		mcp.NewTool("supabase_query",
			mcp.WithDescription(
				"Query rows from a database table with optional filtering, column "+
					"selection, ordering, and pagination. Returns matching rows as JSON.\n\n"+
					"Filter operators: eq, neq, gt, gte, lt, lte, like, ilike, is, in, cs, cd. "+
					"Use 'like' with % wildcards, 'is' with null, and 'in' with a "+
					"comma-separated value list.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to query"),
			),
			mcp.WithArray("filters",
				mcp.Description("Filter conditions, each {column, operator, value}. Combined with AND in order."),
			),
			mcp.WithArray("columns",
				mcp.Description("Column names to return. Omit for all columns."),
				mcp.WithStringItems(),
			),
			mcp.WithArray("order",
				mcp.Description("Sort directives, each {column, direction} with direction asc or desc."),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of rows to return"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Number of rows to skip for pagination"),
			),
		),
		s.handleQuery,
	)

	srv.AddTool(
		mcp.NewTool("supabase_insert",
			mcp.WithDescription(
				"Insert one row into a database table. Returns the inserted row "+
					"including generated columns.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to insert into"),
			),
			mcp.WithObject("data",
				mcp.Required(),
				mcp.Description("Row to insert as a column-to-value object"),
			),
		),
		s.handleInsert,
	)

	srv.AddTool(
		mcp.NewTool("supabase_update",
			mcp.WithDescription(
				"Update rows in a database table that match the given filters. "+
					"Returns the updated rows.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to update"),
			),
			mcp.WithObject("data",
				mcp.Required(),
				mcp.Description("Column-to-value object with the new values"),
			),
			mcp.WithArray("filters",
				mcp.Required(),
				mcp.Description("Filter conditions selecting the rows to update, each {column, operator, value}"),
			),
		),
		s.handleUpdate,
	)

	srv.AddTool(
		mcp.NewTool("supabase_delete",
			mcp.WithDescription(
				"Delete rows from a database table that match the given filters. "+
					"At least one filter is required; unfiltered deletes are rejected. "+
					"Returns the deleted rows.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to delete from"),
			),
			mcp.WithArray("filters",
				mcp.Required(),
				mcp.Description("Filter conditions selecting the rows to delete, each {column, operator, value}"),
			),
		),
		s.handleDelete,
	)

	srv.AddTool(
		mcp.NewTool("supabase_upsert",
			mcp.WithDescription(
				"Insert a row or update it if a row with the same conflict-column "+
					"values already exists. Returns the resulting row.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the target table"),
			),
			mcp.WithObject("data",
				mcp.Required(),
				mcp.Description("Row as a column-to-value object"),
			),
			mcp.WithArray("conflict_columns",
				mcp.Description("Columns that identify an existing row (e.g. the primary key)"),
				mcp.WithStringItems(),
			),
		),
		s.handleUpsert,
	)

	srv.AddTool(
		mcp.NewTool("supabase_execute_sql",
			mcp.WithDescription(
				"Execute a raw SQL statement against the database. SELECT statements "+
					"return rows; other statements return an opaque result. Use this for "+
					"DDL or queries the structured tools cannot express.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description("SQL statement to execute"),
			),
		),
		s.handleExecuteSQL,
	)

	// ----- Storage tools -----

	srv.AddTool(
		mcp.NewTool("storage_list_buckets",
			mcp.WithDescription(
				"List all storage buckets with their visibility and timestamps.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListBuckets,
	)

	srv.AddTool(
		mcp.NewTool("storage_list_objects",
			mcp.WithDescription(
				"List objects in a storage bucket, optionally restricted to a prefix "+
					"or filtered by a search term.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("bucket",
				mcp.Required(),
				mcp.Description("Name of the bucket to list"),
			),
			mcp.WithString("prefix",
				mcp.Description("Folder prefix to list under (e.g. \"reports/2026\")"),
			),
			mcp.WithString("search",
				mcp.Description("Substring to match against object names"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of objects to return"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Number of objects to skip for pagination"),
			),
		),
		s.handleListObjects,
	)

	srv.AddTool(
		mcp.NewTool("storage_file_info",
			mcp.WithDescription(
				"Get metadata for a single storage object (size, content type, "+
					"timestamps) without downloading it.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("bucket",
				mcp.Required(),
				mcp.Description("Name of the bucket"),
			),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("Full object path within the bucket"),
			),
		),
		s.handleFileInfo,
	)

	srv.AddTool(
		mcp.NewTool("storage_signed_url",
			mcp.WithDescription(
				"Create a time-limited signed URL for downloading a storage object "+
					"without credentials.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("bucket",
				mcp.Required(),
				mcp.Description("Name of the bucket"),
			),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("Full object path within the bucket"),
			),
			mcp.WithNumber("expires_in",
				mcp.Description("URL lifetime in seconds (default 3600)"),
			),
			mcp.WithBoolean("download",
				mcp.Description("Force the browser to download instead of rendering inline"),
			),
		),
		s.handleSignedURL,
	)

	srv.AddTool(
		mcp.NewTool("storage_delete_objects",
			mcp.WithDescription(
				"Delete one or more objects from a storage bucket.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("bucket",
				mcp.Required(),
				mcp.Description("Name of the bucket"),
			),
			mcp.WithArray("paths",
				mcp.Required(),
				mcp.Description("Object paths to delete"),
				mcp.WithStringItems(),
			),
		),
		s.handleDeleteObjects,
	)
}

// --------------------------------------------------------------------------
// Database handlers
// --------------------------------------------------------------------------

func (s *MCPServer) handleQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := requireString(request, "table")
	if err != nil {
		return toolError("%v", err)
	}
	params := model.Params{"table": table}
	if v := getArg(request, "filters"); v != nil {
		params["filters"] = v
	}
	if v := getArg(request, "columns"); v != nil {
		params["columns"] = v
	}
	if v := getArg(request, "order"); v != nil {
		params["sort"] = v
	}
	if limit := optionalInt(request, "limit", 0); limit > 0 {
		params["limit"] = limit
	}
	if offset := optionalInt(request, "offset", 0); offset > 0 {
		params["offset"] = offset
	}
	return s.run(ctx, model.ResourceDatabase, model.OpRead, params)
}

// rowParams encodes a row object in the JSON input mode the dispatcher
// understands.
func rowParams(table string, data any) (model.Params, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return model.Params{
		"table":    table,
		"dataMode": "json",
		"jsonData": string(raw),
	}, nil
}

func (s *MCPServer) handleInsert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := requireString(request, "table")
	if err != nil {
		return toolError("%v", err)
	}
	data := getArg(request, "data")
	if data == nil {
		return toolError("missing required parameter %q", "data")
	}
	params, err := rowParams(table, data)
	if err != nil {
		return toolError("invalid data: %v", err)
	}
	return s.run(ctx, model.ResourceDatabase, model.OpCreate, params)
}

func (s *MCPServer) handleUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := requireString(request, "table")
	if err != nil {
		return toolError("%v", err)
	}
	data := getArg(request, "data")
	if data == nil {
		return toolError("missing required parameter %q", "data")
	}
	params, err := rowParams(table, data)
	if err != nil {
		return toolError("invalid data: %v", err)
	}
	params["filters"] = getArg(request, "filters")
	return s.run(ctx, model.ResourceDatabase, model.OpUpdate, params)
}

func (s *MCPServer) handleDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := requireString(request, "table")
	if err != nil {
		return toolError("%v", err)
	}
	params := model.Params{
		"table":   table,
		"filters": getArg(request, "filters"),
	}
	return s.run(ctx, model.ResourceDatabase, model.OpDelete, params)
}

func (s *MCPServer) handleUpsert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	table, err := requireString(request, "table")
	if err != nil {
		return toolError("%v", err)
	}
	data := getArg(request, "data")
	if data == nil {
		return toolError("missing required parameter %q", "data")
	}
	params, err := rowParams(table, data)
	if err != nil {
		return toolError("invalid data: %v", err)
	}
	if v := getArg(request, "conflict_columns"); v != nil {
		params["conflictColumns"] = v
	}
	return s.run(ctx, model.ResourceDatabase, model.OpUpsert, params)
}

func (s *MCPServer) handleExecuteSQL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := requireString(request, "sql")
	if err != nil {
		return toolError("%v", err)
	}
	return s.run(ctx, model.ResourceDatabase, model.OpCustomQuery, model.Params{"query": sql})
}

// --------------------------------------------------------------------------
// Storage handlers
// --------------------------------------------------------------------------

func (s *MCPServer) handleListBuckets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.run(ctx, model.ResourceStorage, model.OpListBuckets, model.Params{})
}

func (s *MCPServer) handleListObjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bucket, err := requireString(request, "bucket")
	if err != nil {
		return toolError("%v", err)
	}
	params := model.Params{"bucket": bucket}
	if prefix := optionalString(request, "prefix"); prefix != "" {
		params["prefix"] = prefix
	}
	if search := optionalString(request, "search"); search != "" {
		params["search"] = search
	}
	if limit := optionalInt(request, "limit", 0); limit > 0 {
		params["limit"] = limit
	}
	if offset := optionalInt(request, "offset", 0); offset > 0 {
		params["offset"] = offset
	}
	return s.run(ctx, model.ResourceStorage, model.OpList, params)
}

func (s *MCPServer) handleFileInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bucket, err := requireString(request, "bucket")
	if err != nil {
		return toolError("%v", err)
	}
	filePath, err := requireString(request, "path")
	if err != nil {
		return toolError("%v", err)
	}
	return s.run(ctx, model.ResourceStorage, model.OpGetFileInfo, model.Params{
		"bucket":   bucket,
		"filePath": filePath,
	})
}

func (s *MCPServer) handleSignedURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bucket, err := requireString(request, "bucket")
	if err != nil {
		return toolError("%v", err)
	}
	filePath, err := requireString(request, "path")
	if err != nil {
		return toolError("%v", err)
	}
	params := model.Params{
		"bucket":   bucket,
		"filePath": filePath,
	}
	if expires := optionalInt(request, "expires_in", 0); expires > 0 {
		params["expiresIn"] = expires
	}
	if optionalBool(request, "download") {
		params["download"] = true
	}
	return s.run(ctx, model.ResourceStorage, model.OpCreateSignedURL, params)
}

func (s *MCPServer) handleDeleteObjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bucket, err := requireString(request, "bucket")
	if err != nil {
		return toolError("%v", err)
	}
	params := model.Params{"bucket": bucket}
	if v := getArg(request, "paths"); v != nil {
		params["filePaths"] = v
	}
	return s.run(ctx, model.ResourceStorage, model.OpDelete, params)
}
