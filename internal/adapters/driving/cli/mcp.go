package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/canon/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Assistants can look up CURATED topics, list them, search raw chunks
(flagged non-authoritative) and, with --allow-drafts, assemble topic
drafts. Nothing served over MCP can promote a draft.

By default the server communicates over stdio. Use --addr (or
mcp.http_addr in the config) to serve streamable HTTP instead; Prometheus
metrics are then available at /metrics.

Examples:
  # Stdio mode (default)
  canon mcp serve

  # HTTP mode
  canon mcp serve --addr :8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "canon": {
        "command": "/path/to/canon",
        "args": ["mcp", "serve", "--config", "/path/to/canon.toml"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().String("addr", "", "HTTP listen address (empty = stdio)")
	mcpServeCmd.Flags().Bool("allow-drafts", false, "expose the draft_topic tool")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}
	allowDrafts, err := cmd.Flags().GetBool("allow-drafts")
	if err != nil {
		return fmt.Errorf("getting allow-drafts flag: %w", err)
	}
	if addr == "" && settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			addr = settings.MCP.HTTPAddr
		}
	}

	ports := &mcp.Ports{
		Lookup:   lookupService,
		Search:   searchService,
		Curation: curationService,
		Metrics:  metricsHandler,
	}
	if allowDrafts {
		ports.Assembler = topicAssembler
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
