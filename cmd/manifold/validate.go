package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/manifold/bootstrap"
	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/cligen"
	"github.com/artpar/manifold/core/convention"
	"github.com/artpar/manifold/core/restgen"
	"github.com/artpar/manifold/core/schema"
	"github.com/artpar/manifold/core/toolgen"
)

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate entity definitions before deployment",
	Long: `Validate the Manifold configuration and entity definitions.

Checks:
  - Configuration file syntax and values
  - Every definition parses and passes entity validation
  - Routes, commands and tools generate cleanly for every entity
  - Reference fields point at declared entities

Examples:
  manifold validate
  manifold validate --definitions ./entities
  manifold validate --config /etc/manifold/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  %s Configuration valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Configuration valid\n", checkMark)

	entities, err := bootstrap.LoadEntities(cfg.Definitions)
	if err != nil {
		fmt.Printf("  %s Definitions parse\n", crossMark)
		return fmt.Errorf("definitions error: %w", err)
	}
	source := cfg.Definitions.Dir
	if source == "" {
		source = "built-in examples"
	}
	fmt.Printf("  %s Parsed %d entity definitions (%s)\n", checkMark, len(entities), source)

	cat, err := bootstrap.BuildCatalog(entities)
	if err != nil {
		fmt.Printf("  %s Entities register\n", crossMark)
		return fmt.Errorf("catalog error: %w", err)
	}
	fmt.Printf("  %s Entities register without conflicts\n", checkMark)
	fmt.Println()

	problems := 0
	for _, d := range cat.List() {
		e := d.Source
		issues := entityIssues(cat, e)

		mark := checkMark
		if len(issues) > 0 {
			mark = crossMark
			problems += len(issues)
		}
		fmt.Printf("  %s %s: %d fields, %d operations\n", mark, e.Name, len(e.Fields), len(e.Operations))
		for _, ch := range []schema.Channel{schema.ChannelAPI, schema.ChannelCLI, schema.ChannelTool} {
			fmt.Printf("      %-5s %s\n", string(ch)+":", exposureSummary(d.Actions, e.Access.For(ch)))
		}
		for _, issue := range issues {
			fmt.Printf("      %s %s\n", crossMark, issue)
		}
	}

	fmt.Println()
	if problems > 0 {
		return fmt.Errorf("%d entities validated, %d problems found", cat.Len(), problems)
	}
	fmt.Printf("%d entities validated, no problems found.\n", cat.Len())
	return nil
}

// entityIssues collects definition problems that registration alone
// does not catch: dangling reference targets and generation failures.
func entityIssues(cat *catalog.Catalog, e schema.Entity) []string {
	var issues []string

	for _, f := range e.Fields {
		if f.Kind != schema.FieldKindReference {
			continue
		}
		if _, err := cat.Get(f.Constraints.Target); err != nil {
			issues = append(issues, fmt.Sprintf("reference field %q targets undeclared entity %q", f.Name, f.Constraints.Target))
		}
	}

	d, _ := cat.Get(e.Name)
	if _, err := restgen.Generate(d); err != nil {
		issues = append(issues, fmt.Sprintf("route generation: %v", err))
	}
	if _, err := cligen.Generate(d); err != nil {
		issues = append(issues, fmt.Sprintf("command generation: %v", err))
	}
	if _, err := toolgen.Generate(d); err != nil {
		issues = append(issues, fmt.Sprintf("tool generation: %v", err))
	}

	return issues
}

// exposureSummary renders the actions a policy exposes, in derivation
// order.
func exposureSummary(actions []convention.DerivedAction, p schema.AccessPolicy) string {
	var allowed []string
	for _, a := range actions {
		if p.Allows(a.Name) {
			allowed = append(allowed, a.Name)
		}
	}
	if len(allowed) == 0 {
		return "(none)"
	}
	return strings.Join(allowed, ", ")
}
