// Package http provides the REST channel. Routes come from the route
// generator, so the served surface always equals the generated route
// set of each entity's api policy. Alongside the entity routes the
// channel serves schema introspection, the OpenAPI document, Swagger
// UI, health, and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/artpar/manifold/adapters/metrics"
	"github.com/artpar/manifold/core/catalog"
	"github.com/artpar/manifold/core/restgen"
	"github.com/artpar/manifold/core/runtime"
	"github.com/artpar/manifold/core/specgen"
)

// Channel serves the generated REST interface of a catalog.
type Channel struct {
	catalog *catalog.Catalog
	spec    *specgen.Service
	logger  zerolog.Logger
	metrics *metrics.Collector
	router  chi.Router

	addr     string
	server   *http.Server
	listener net.Listener
}

var _ runtime.Channel = (*Channel)(nil)

// Config configures the REST channel.
type Config struct {
	// Addr is the listen address (host:port). Empty means the channel
	// is embedded and only Handler() is used.
	Addr string

	// Catalog supplies entities and their bound executors.
	Catalog *catalog.Catalog

	// Spec serves the OpenAPI document. Built from the catalog when nil.
	Spec *specgen.Service

	// Logger for request and lifecycle logging.
	Logger zerolog.Logger

	// Metrics instruments requests and actions when set.
	Metrics *metrics.Collector

	// MetricsPath overrides the /metrics mount path.
	MetricsPath string
}

// New builds the channel and mounts every generated route. An entity
// whose route generation fails is skipped and logged; the remaining
// entities still serve.
func New(cfg Config) (*Channel, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("http channel requires a catalog")
	}

	spec := cfg.Spec
	if spec == nil {
		spec = specgen.NewService(specgen.NewGenerator(cfg.Catalog), cfg.Logger)
	}

	c := &Channel{
		catalog: cfg.Catalog,
		spec:    spec,
		logger:  cfg.Logger.With().Str("channel", "api").Logger(),
		metrics: cfg.Metrics,
		addr:    cfg.Addr,
	}

	metricsPath := cfg.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(c.logger, metricsPath))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if c.metrics != nil {
		r.Use(c.metrics.Middleware)
	}

	r.Get("/healthz", c.handleHealth)
	if c.metrics != nil {
		r.Handle(metricsPath, c.metrics.Handler())
	}

	r.Get("/_openapi.json", c.handleOpenAPI)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/_openapi.json"),
	))

	r.Get("/_schema", c.handleSchemaList)
	r.Get("/_schema/{entity}", c.handleSchemaGet)

	mounted := 0
	for _, d := range cfg.Catalog.List() {
		routes, err := restgen.Generate(d)
		if err != nil {
			if c.metrics != nil {
				c.metrics.RecordGeneration("api", 0, err)
			}
			c.logger.Warn().Err(err).Str("entity", d.Source.Name).Msg("skipping entity routes")
			continue
		}
		for _, route := range routes {
			c.mount(r, d.Source.Name, route)
		}
		mounted += len(routes)
		c.logger.Debug().Str("entity", d.Source.Name).Int("routes", len(routes)).Msg("mounted entity routes")
	}
	if c.metrics != nil {
		c.metrics.RecordGeneration("api", mounted, nil)
		c.metrics.EntitiesRegistered.Set(float64(cfg.Catalog.Len()))
	}

	c.router = r
	return c, nil
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "api"
}

// Handler returns the channel's HTTP handler for embedding.
func (c *Channel) Handler() http.Handler {
	return c.router
}

// Addr returns the bound listen address once started.
func (c *Channel) Addr() string {
	if c.listener != nil {
		return c.listener.Addr().String()
	}
	return c.addr
}

// Start binds the listen address and begins serving. It returns once
// the listener is accepting connections.
func (c *Channel) Start(ctx context.Context) error {
	if c.addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", c.addr, err)
	}
	c.listener = ln
	c.server = &http.Server{
		Handler:           c.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error().Err(err).Msg("http server error")
		}
	}()

	c.logger.Info().Str("addr", ln.Addr().String()).Msg("api channel listening")
	return nil
}

// Stop shuts the server down gracefully.
func (c *Channel) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	c.logger.Info().Msg("api channel stopping")
	return c.server.Shutdown(ctx)
}

// mount registers one generated route on the router.
func (c *Channel) mount(r chi.Router, entity string, route restgen.Route) {
	h := c.actionHandler(entity, route)
	switch route.Method {
	case http.MethodGet:
		r.Get(route.Path, h)
	case http.MethodPost:
		r.Post(route.Path, h)
	case http.MethodPut:
		r.Put(route.Path, h)
	case http.MethodDelete:
		r.Delete(route.Path, h)
	}
}

// handleHealth reports liveness and the catalog size.
func (c *Channel) handleHealth(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"entities": c.catalog.Len(),
	})
}

// handleOpenAPI serves the generated OpenAPI document, stamped with the
// requesting host as the server URL. A partially failed generation
// still serves the healthy entities.
func (c *Channel) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	doc, err := c.spec.Document(fmt.Sprintf("%s://%s", scheme, r.Host))
	if doc == nil {
		c.writeError(w, err)
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("serving partial openapi document")
	}

	data, err := doc.ToJSON()
	if err != nil {
		c.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

// requestLogger logs completed requests. Health and metrics probes are
// skipped to keep the log readable.
func requestLogger(logger zerolog.Logger, metricsPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if r.URL.Path == "/healthz" || r.URL.Path == metricsPath {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
