package main

import (
	"github.com/spf13/cobra"

	"github.com/artpar/manifold/adapters/memory"
	"github.com/artpar/manifold/adapters/remote"
	"github.com/artpar/manifold/bootstrap"
	"github.com/artpar/manifold/core/toolgen"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the derived tools over the Model Context Protocol",
	Long: `Run an MCP server over stdio, exposing one tool per entity action
the tool policies allow.

Stdout carries the protocol stream, so all logging goes to stderr.
Without --server, tools execute against an in-process store that lives
for the session; with --server they call a running instance.

Example MCP client configuration:
  {
    "mcpServers": {
      "manifold": {
        "command": "manifold",
        "args": ["mcp", "--definitions", "/path/to/entities"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cat, cfg, err := loadCatalog()
	if err != nil {
		return err
	}

	logger := bootstrap.SetupLogger(cfg.Logging)

	if serverURL != "" {
		client := remote.NewClient(remote.ClientConfig{BaseURL: serverURL})
		cat.BindAll(remote.NewExecutor(client, cat))
	} else {
		exec := memory.NewExecutor(cat)
		if cfg.Definitions.Dir == "" {
			bootstrap.RegisterExampleHandlers(exec, logger)
		}
		cat.BindAll(exec)
	}

	logger.Info().Int("entities", cat.Len()).Msg("starting MCP server on stdio")

	return toolgen.Serve(cmd.Context(), toolgen.DefaultServerConfig(cat, version))
}
