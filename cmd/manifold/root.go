package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/manifold/adapters/memory"
	"github.com/artpar/manifold/adapters/remote"
	"github.com/artpar/manifold/bootstrap"
	"github.com/artpar/manifold/config"
	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/channel/cli"
	"github.com/artpar/manifold/core/runtime"
)

var (
	// Global flags
	cfgFile   string
	defsDir   string
	serverURL string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "manifold",
	Short: "Declarative entities served as REST, CLI, AI tools and OpenAPI",
	Long: `Manifold turns entity definitions into working interfaces.

Declare an entity once (fields, constraints, operations, access policy)
and Manifold derives REST routes, CLI commands, AI tool descriptors and
an OpenAPI document from the same declaration.

Quick start:
  manifold serve                  # Serve entities over HTTP
  manifold validate               # Check definitions before deploying
  manifold routes                 # Show the derived REST routes

Entity commands:
  One command group per declared entity is mounted at startup, e.g.
  "manifold invoice list". Add --server to run them against a serving
  instance instead of the in-process store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute mounts the generated entity command groups and runs the root
// command.
func Execute() {
	attachEntityCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "manifold.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&defsDir, "definitions", "d", "", "entity definitions directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "base URL of a serving instance to run against")
}

// loadConfig resolves configuration for a command run, honoring the
// persistent --config and --definitions flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, err
	}
	if defsDir != "" {
		cfg.Definitions.Dir = defsDir
	}
	return cfg, nil
}

// loadCatalog loads the configured entity definitions into a fresh
// catalog for the generator commands.
func loadCatalog() (*catalog.Catalog, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	entities, err := bootstrap.LoadEntities(cfg.Definitions)
	if err != nil {
		return nil, nil, fmt.Errorf("definitions error: %w", err)
	}
	cat, err := bootstrap.BuildCatalog(entities)
	if err != nil {
		return nil, nil, err
	}
	return cat, cfg, nil
}

// attachEntityCommands mounts one command group per declared entity.
// Cobra has not parsed flags yet when this runs, so the flags that
// influence loading are pre-scanned from os.Args. Attachment is best
// effort: on any failure only the static commands remain, and
// validate/serve report the underlying problem loudly.
func attachEntityCommands() {
	cfgPath := scanFlag("--config", "-c", "manifold.yaml")
	dir := scanFlag("--definitions", "-d", "")

	cfg, err := config.LoadWithFallback(cfgPath)
	if err != nil {
		return
	}
	if dir != "" {
		cfg.Definitions.Dir = dir
	}

	entities, err := bootstrap.LoadEntities(cfg.Definitions)
	if err != nil {
		return
	}
	cat, err := bootstrap.BuildCatalog(entities)
	if err != nil {
		return
	}

	quiet := zerolog.Nop()
	exec := memory.NewExecutor(cat)
	if cfg.Definitions.Dir == "" {
		bootstrap.RegisterExampleHandlers(exec, quiet)
	}
	cat.BindAll(exec)

	ch, err := cli.New(cli.Config{
		Catalog: cat,
		Logger:  quiet,
		// Resolved per invocation so commands see the parsed --server flag.
		Executor: func(entity string) (runtime.Executor, error) {
			if serverURL != "" {
				client := remote.NewClient(remote.ClientConfig{BaseURL: serverURL})
				return remote.NewExecutor(client, cat), nil
			}
			return cat.Executor(entity)
		},
	})
	if err != nil {
		return
	}

	_ = ch.Attach(rootCmd)
}

// scanFlag extracts a flag value from os.Args ahead of cobra parsing.
func scanFlag(long, short, fallback string) string {
	args := os.Args[1:]
	for i, arg := range args {
		switch {
		case arg == long || arg == short:
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, long+"="):
			return strings.TrimPrefix(arg, long+"=")
		case strings.HasPrefix(arg, short+"="):
			return strings.TrimPrefix(arg, short+"=")
		}
	}
	return fallback
}
