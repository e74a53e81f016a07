// Package bootstrap wires configuration, logging, the entity catalog and
// the HTTP channel into a runnable application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/artpar/manifold/adapters/memory"
	"github.com/artpar/manifold/adapters/metrics"
	"github.com/artpar/manifold/config"
	"github.com/artpar/manifold/core/catalog"
	channelhttp "github.com/artpar/manifold/core/channel/http"
	"github.com/artpar/manifold/core/example"
	"github.com/artpar/manifold/core/schema"
	"github.com/artpar/manifold/core/specgen"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// App is the wired application. Catalog and the HTTP handler are swapped
// together when definitions reload; in-flight requests finish against the
// catalog they started with.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Catalog *catalog.Catalog
	Metrics *metrics.Collector
	HTTP    *http.Server

	reloadMu  sync.Mutex
	handler   *swapHandler
	executor  *memory.Executor
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	closeOnce sync.Once
}

// swapHandler forwards requests to the current handler. Reloads replace
// the handler atomically.
type swapHandler struct {
	current atomic.Pointer[http.Handler]
}

func (s *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.current.Load()).ServeHTTP(w, r)
}

// New wires the application from configuration. Definition errors,
// including duplicate entity names, abort startup.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		handler: &swapHandler{},
		stopCh:  make(chan struct{}),
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	entities, err := LoadEntities(cfg.Definitions)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}

	cat, err := BuildCatalog(entities)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	a.Catalog = cat

	exec := memory.NewExecutor(cat)
	if cfg.Definitions.Dir == "" {
		RegisterExampleHandlers(exec, logger)
		logger.Info().Msg("no definitions directory configured, serving built-in example entities")
	}
	cat.BindAll(exec)
	a.executor = exec

	if err := a.rebuildHandler(cat); err != nil {
		return nil, err
	}

	a.HTTP = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info().Str("addr", a.HTTP.Addr).Int("entities", cat.Len()).Msg("application wired")
	return a, nil
}

// LoadEntities loads entity declarations from the configured definitions
// directory, falling back to the built-in examples when none is set.
func LoadEntities(cfg config.DefinitionsConfig) ([]schema.Entity, error) {
	if cfg.Dir == "" {
		return example.Entities(), nil
	}
	return schema.ParseDir(cfg.Dir)
}

// BuildCatalog registers every entity into a fresh catalog.
func BuildCatalog(entities []schema.Entity) (*catalog.Catalog, error) {
	c := catalog.New()
	for _, e := range entities {
		if err := c.Register(e); err != nil {
			return nil, fmt.Errorf("register %s: %w", e.Name, err)
		}
	}
	return c, nil
}

// SetupLogger builds the process logger from config. Logs go to stderr so
// command output and stdio transports keep stdout to themselves.
func SetupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Run starts the HTTP server and blocks until the context is canceled,
// an interrupt arrives, or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.Config.Definitions.Watch {
		if err := a.WatchDefinitions(); err != nil {
			a.Logger.Warn().Err(err).Msg("definitions watch unavailable, hot reload disabled")
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.HTTP.Addr).Msg("starting http server")
		if err := a.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		a.Logger.Info().Msg("context canceled, shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.closeOnce.Do(func() { close(a.stopCh) })
	if a.watcher != nil {
		a.watcher.Close()
	}

	if a.HTTP != nil {
		if err := a.HTTP.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// ReloadDefinitions re-reads the definitions directory and swaps in a
// fresh catalog and handler. On failure the previous catalog keeps
// serving. Records held by the in-memory executor do not survive a
// successful reload.
func (a *App) ReloadDefinitions() error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	entities, err := LoadEntities(a.Config.Definitions)
	if err != nil {
		a.recordReload(err)
		return fmt.Errorf("load definitions: %w", err)
	}

	cat, err := BuildCatalog(entities)
	if err != nil {
		a.recordReload(err)
		return fmt.Errorf("build catalog: %w", err)
	}

	exec := memory.NewExecutor(cat)
	cat.BindAll(exec)

	if err := a.rebuildHandler(cat); err != nil {
		a.recordReload(err)
		return err
	}

	a.Catalog = cat
	a.executor = exec
	a.recordReload(nil)
	a.Logger.Info().Int("entities", cat.Len()).Msg("definitions reloaded")
	return nil
}

// WatchDefinitions starts watching the definitions directory for changes.
// Changed, added or removed declaration files trigger a reload.
func (a *App) WatchDefinitions() error {
	dir := a.Config.Definitions.Dir
	if dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the whole tree; ParseDir descends into subdirectories.
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("watch definitions: %w", err)
	}

	a.watcher = watcher
	go a.watchLoop()

	a.Logger.Info().Str("dir", dir).Msg("watching definitions for changes")
	return nil
}

func (a *App) watchLoop() {
	for {
		select {
		case event, ok := <-a.watcher.Events:
			if !ok {
				return
			}

			if !isDefinitionFile(event.Name) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				a.Logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("definition file changed")

				if err := a.ReloadDefinitions(); err != nil {
					a.Logger.Error().Err(err).Msg("definitions reload failed, keeping previous entities")
				}
			}

		case err, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
			a.Logger.Error().Err(err).Msg("definitions watcher error")

		case <-a.stopCh:
			return
		}
	}
}

func (a *App) rebuildHandler(cat *catalog.Catalog) error {
	gen := specgen.NewGenerator(cat)
	gen.SetInfo(specgen.Info{
		Title:       a.Config.Spec.Title,
		Version:     a.Config.Spec.Version,
		Description: a.Config.Spec.Description,
	})

	ch, err := channelhttp.New(channelhttp.Config{
		Catalog:     cat,
		Spec:        specgen.NewService(gen, a.Logger),
		Logger:      a.Logger,
		Metrics:     a.Metrics,
		MetricsPath: a.Config.Metrics.Path,
	})
	if err != nil {
		return fmt.Errorf("build http channel: %w", err)
	}

	h := ch.Handler()
	a.handler.current.Store(&h)
	return nil
}

func (a *App) recordReload(err error) {
	if a.Metrics != nil {
		a.Metrics.RecordReload(err)
	}
}

func isDefinitionFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// RegisterExampleHandlers installs demo implementations for the custom
// operations of the built-in entities. The serve path and the local CLI
// mode both call it when no definitions directory is configured.
func RegisterExampleHandlers(exec *memory.Executor, logger zerolog.Logger) {
	exec.Handle("Invoice", "send", func(ctx context.Context, record, params map[string]any) (any, error) {
		record["paid"] = true
		logger.Info().
			Str("invoice", fmt.Sprint(record["id"])).
			Str("recipient", fmt.Sprint(params["recipient"])).
			Msg("invoice sent")
		return true, nil
	})
}
