package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/manifold/bootstrap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the Manifold HTTP server.

The server will:
  - Load configuration from manifold.yaml (or --config)
  - Or load configuration from MANIFOLD_* environment variables
  - Load entity definitions from the configured directory
  - Serve the derived REST routes, with OpenAPI at /_openapi.json
  - Reload definitions when files change (definitions.watch)

Without a definitions directory the built-in example entities are
served, which is handy for trying things out.

Environment variables (for container deployments):
  MANIFOLD_DEFINITIONS_DIR  - Entity definitions directory
  MANIFOLD_SERVER_PORT      - Server port (default: 8080)
  MANIFOLD_LOG_LEVEL        - Log level: debug, info, warn, error
  MANIFOLD_METRICS_ENABLED  - Expose Prometheus metrics (default: true)

Examples:
  manifold serve
  manifold serve --definitions ./entities
  manifold serve --config /etc/manifold/config.yaml --port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
	}

	logger := bootstrap.SetupLogger(cfg.Logging)

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		return err
	}

	return app.Run(cmd.Context())
}
