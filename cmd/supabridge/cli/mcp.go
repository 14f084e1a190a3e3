package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	smcp "github.com/supabridge/supabridge/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes database and
storage operations as tools for AI agents. Supports stdio (default) and
Streamable HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with Claude Desktop or other MCP clients.`,
		Example: `  supabridge mcp                           # stdio mode
  supabridge mcp --transport http --port 3001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	// Logs must go to stderr: stdout carries the JSON-RPC stream.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	client, err := newClient()
	if err != nil {
		return err
	}

	srv := smcp.NewMCPServer(client, logger)
	switch transport {
	case "stdio":
		return srv.ServeStdio()
	case "http":
		return srv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unknown transport %q: must be stdio or http", transport)
	}
}
