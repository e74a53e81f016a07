package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/manifold/core/specgen"
)

var (
	specCompact bool
	specOut     string
)

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Print the derived OpenAPI document",
	Long: `Print the OpenAPI 3.0 document derived from the entity definitions.

The document covers every route the api policies expose, with schemas
built from the declared fields and constraints. The serving instance
publishes the same document at /_openapi.json.

Examples:
  manifold spec > openapi.json
  manifold spec --out openapi.json
  manifold spec --server https://api.example.com --compact`,
	RunE: runSpec,
}

func init() {
	rootCmd.AddCommand(specCmd)

	specCmd.Flags().BoolVar(&specCompact, "compact", false, "emit compact JSON")
	specCmd.Flags().StringVar(&specOut, "out", "", "write to a file instead of stdout")
}

func runSpec(cmd *cobra.Command, args []string) error {
	cat, cfg, err := loadCatalog()
	if err != nil {
		return err
	}

	gen := specgen.NewGenerator(cat)
	gen.SetInfo(specgen.Info{
		Title:       cfg.Spec.Title,
		Version:     cfg.Spec.Version,
		Description: cfg.Spec.Description,
	})
	if serverURL != "" {
		gen.AddServer(serverURL, "")
	}

	doc, err := gen.Generate()
	if err != nil {
		return fmt.Errorf("generate spec: %w", err)
	}

	var data []byte
	if specCompact {
		data, err = doc.ToJSONCompact()
	} else {
		data, err = doc.ToJSON()
	}
	if err != nil {
		return err
	}

	if specOut != "" {
		return os.WriteFile(specOut, append(data, '\n'), 0o644)
	}
	fmt.Println(string(data))
	return nil
}
