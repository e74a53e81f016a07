package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/manifold/core/toolgen"
)

var toolsEntity string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the derived AI tool descriptors",
	Long: `Print the tool-calling descriptors derived from the entity
definitions.

Each descriptor carries a name, a natural-language description and a
JSON Schema for its input, in the shape tool-calling AI models consume.
Only actions the tool policies expose are included; "manifold mcp"
serves the same descriptors over the Model Context Protocol.

Examples:
  manifold tools
  manifold tools --entity Invoice`,
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)

	toolsCmd.Flags().StringVar(&toolsEntity, "entity", "", "limit output to one entity")
}

func runTools(cmd *cobra.Command, args []string) error {
	cat, _, err := loadCatalog()
	if err != nil {
		return err
	}

	var tools []toolgen.Tool
	if toolsEntity != "" {
		d, err := cat.Get(toolsEntity)
		if err != nil {
			return err
		}
		tools, err = toolgen.Generate(d)
		if err != nil {
			return fmt.Errorf("generate tools for %s: %w", toolsEntity, err)
		}
	} else {
		tools, err = toolgen.GenerateAll(cat)
		if err != nil {
			return fmt.Errorf("generate tools: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(tools)
}
