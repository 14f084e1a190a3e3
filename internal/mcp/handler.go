package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/supabridge/supabridge/internal/dispatch"
	"github.com/supabridge/supabridge/internal/model"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// requireString extracts a required string argument from the tool request.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

// optionalString extracts an optional string argument from the tool request.
func optionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

// optionalInt extracts an optional integer argument from the tool request.
func optionalInt(request mcp.CallToolRequest, key string, defaultVal int) int {
	return request.GetInt(key, defaultVal)
}

// optionalBool extracts an optional boolean argument from the tool request.
func optionalBool(request mcp.CallToolRequest, key string) bool {
	return request.GetBool(key, false)
}

// getArg extracts a raw argument value. Returns nil if absent.
func getArg(request mcp.CallToolRequest, key string) any {
	args := request.GetArguments()
	if args == nil {
		return nil
	}
	return args[key]
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// run dispatches a single operation and renders the result items.
func (s *MCPServer) run(ctx context.Context, resource model.Resource, op model.Operation, params model.Params) (*mcp.CallToolResult, error) {
	req := model.OperationRequest{
		Resource:  resource,
		Operation: op,
		Params:    params,
	}
	items, err := dispatch.Dispatch(ctx, s.client, req, dispatch.Options{})
	if err != nil {
		return toolError("%v", err)
	}
	return successJSON(items)
}
