package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docmind/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docmind/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve document tools over MCP",
	Long: `Serves extract_text, get_metadata, chunk_document, search_chunks,
summarize_document, list_documents and remove_document to an MCP client.

The default transport is stdio. Logs and traces go to stderr so the
protocol stream on stdout stays clean. With --port the streamable HTTP
transport is served instead, bound to --host.

Examples:
  docmind mcp serve
  docmind mcp serve --port 8080
  docmind mcp serve --port 8080 --host 0.0.0.0

Client configuration:
  {
    "mcpServers": {
      "docmind": {
        "command": "/path/to/docmind",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 serves stdio)")
	mcpServeCmd.Flags().String("host", "127.0.0.1", "HTTP bind address")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return fmt.Errorf("getting host flag: %w", err)
	}

	if err := requireServices(cmd); err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{Search: searchService, Document: documentService}, version)
	if err != nil {
		return err
	}

	if port == 0 {
		logger.Info("mcp: serving on stdio")
		return server.Run(cmd.Context())
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	cmd.PrintErrf("MCP server listening on http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
