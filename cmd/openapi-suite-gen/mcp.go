package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcpserver "github.com/bluecontainer/openapi-suite-gen/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP (Model Context Protocol) server for AI assistant integration",
	Long: `Start a stdio-based MCP server that exposes openapi-suite-gen capabilities
as tools for AI assistants.

Available tools:
  - validate:  Check if an OpenAPI spec is a compatible 3.0/3.1 document
  - parse:     Show the generated suite outline and data-quality warnings
  - show_case: Show the rendered fields of one case

No diagnostic files are written in this mode.

Register it in an MCP client configuration:
  {
    "mcpServers": {
      "openapi-suite-gen": {
        "command": "openapi-suite-gen",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	s := mcpserver.NewServer(version, commit, date)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
