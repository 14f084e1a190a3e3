package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/supabridge/supabridge/internal/supabase"
)

// MCPServer wraps the mcp-go server with Supabridge tool registrations. It
// exposes the database and storage operations as MCP tools so AI agents can
// query tables, run SQL, and manage storage objects through one endpoint.
type MCPServer struct {
	client *supabase.Client
	logger *slog.Logger
	server *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all Supabridge tools.
// The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(client *supabase.Client, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		client: client,
		logger: logger,
	}

	mcpServer := server.NewMCPServer(
		"Supabridge",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance. Useful for
// advanced configuration or testing.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode. This is the primary
// integration path for MCP clients that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
