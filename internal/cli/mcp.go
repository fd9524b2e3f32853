package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/ariadne/internal/mcp"
	"github.com/mvp-joe/ariadne/internal/query"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over the built index",
	Long: `Start a Model Context Protocol server exposing the saved snapshot to
LLM-powered coding assistants over stdio.

Tools: ariadne_definition, ariadne_references, ariadne_implementations,
ariadne_search.

Example:
  ariadne mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	q, closeIndex, err := loadQueryIndex(ctx)
	if err != nil {
		return err
	}
	defer closeIndex()

	search, err := query.NewSearch(ctx, q)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Ariadne MCP Server %s\n", Version)
	fmt.Fprintf(os.Stderr, "Files indexed: %d\n\n", len(q.Table().Files()))

	server := mcp.NewServer(q, search, Version)
	defer server.Close()
	return server.Serve(ctx)
}
