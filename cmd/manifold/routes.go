package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artpar/manifold/core/restgen"
)

var (
	routesEntity string
	routesJSON   bool
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the derived REST routes",
	Long: `Print the REST routes derived from the entity definitions.

Each entity exposes the actions its api policy allows. Default actions
map to conventional method/path pairs; public custom operations become
POST subroutes.

Examples:
  manifold routes
  manifold routes --entity Invoice
  manifold routes --json`,
	RunE: runRoutes,
}

func init() {
	rootCmd.AddCommand(routesCmd)

	routesCmd.Flags().StringVar(&routesEntity, "entity", "", "limit output to one entity")
	routesCmd.Flags().BoolVar(&routesJSON, "json", false, "emit JSON instead of a table")
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cat, _, err := loadCatalog()
	if err != nil {
		return err
	}

	var routes []restgen.Route
	matched := routesEntity == ""
	for _, d := range cat.List() {
		if routesEntity != "" && d.Source.Name != routesEntity {
			continue
		}
		matched = true
		rs, err := restgen.Generate(d)
		if err != nil {
			return fmt.Errorf("generate routes for %s: %w", d.Source.Name, err)
		}
		routes = append(routes, rs...)
	}
	if !matched {
		return fmt.Errorf("entity %q not found", routesEntity)
	}

	if routesJSON {
		rows := make([]map[string]any, 0, len(routes))
		for _, r := range routes {
			rows = append(rows, map[string]any{
				"method":      r.Method,
				"path":        r.Path,
				"entity":      r.Entity,
				"action":      r.Action,
				"operationId": r.OperationID,
				"summary":     r.Summary,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tOPERATION\tENTITY")
	for _, r := range routes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Method, r.Path, r.OperationID, r.Entity)
	}
	return w.Flush()
}
