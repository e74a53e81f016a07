// Package metrics provides Prometheus metrics for a serving instance.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric a serving instance exports.
type Collector struct {
	gatherer prometheus.Gatherer

	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Catalog metrics
	EntitiesRegistered  prometheus.Gauge
	CatalogReloads      prometheus.Counter
	CatalogReloadErrors prometheus.Counter
	CatalogLastReload   prometheus.Gauge

	// Generator metrics
	GeneratorRuns   *prometheus.CounterVec
	GeneratorErrors *prometheus.CounterVec
	ArtifactCount   *prometheus.GaugeVec

	// Executor metrics
	ActionsTotal   *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
}

// New creates a collector registered on the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector on a custom registry. Useful for
// testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	gatherer := prometheus.Gatherer(prometheus.DefaultGatherer)
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &Collector{
		gatherer: gatherer,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "manifold",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "manifold",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "manifold",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),

		EntitiesRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "manifold",
				Name:      "entities_registered",
				Help:      "Number of entities in the catalog",
			},
		),
		CatalogReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "manifold",
				Name:      "catalog_reloads_total",
				Help:      "Total number of successful catalog reloads",
			},
		),
		CatalogReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "manifold",
				Name:      "catalog_reload_errors_total",
				Help:      "Total number of catalog reload errors",
			},
		),
		CatalogLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "manifold",
				Name:      "catalog_last_reload_timestamp",
				Help:      "Unix timestamp of the last successful catalog reload",
			},
		),

		GeneratorRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "manifold",
				Name:      "generator_runs_total",
				Help:      "Total generator runs by target",
			},
			[]string{"target"},
		),
		GeneratorErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "manifold",
				Name:      "generator_errors_total",
				Help:      "Total generator failures by target",
			},
			[]string{"target"},
		),
		ArtifactCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "manifold",
				Name:      "generated_artifacts",
				Help:      "Artifacts produced by the last generator run, by target",
			},
			[]string{"target"},
		),

		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "manifold",
				Name:      "actions_total",
				Help:      "Total entity actions executed",
			},
			[]string{"entity", "action", "channel", "status"},
		),
		ActionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "manifold",
				Name:      "action_duration_seconds",
				Help:      "Entity action duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"entity", "action"},
		),
	}
}

// Handler returns the exposition handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// ObserveAction records one executor invocation.
func (c *Collector) ObserveAction(entity, action, channel string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.ActionsTotal.WithLabelValues(entity, action, channel, status).Inc()
	c.ActionDuration.WithLabelValues(entity, action).Observe(elapsed.Seconds())
}

// RecordReload records the outcome of a catalog reload.
func (c *Collector) RecordReload(err error) {
	if err != nil {
		c.CatalogReloadErrors.Inc()
		return
	}
	c.CatalogReloads.Inc()
	c.CatalogLastReload.SetToCurrentTime()
}

// RecordGeneration records one generator run for a target channel.
func (c *Collector) RecordGeneration(target string, artifacts int, err error) {
	c.GeneratorRuns.WithLabelValues(target).Inc()
	if err != nil {
		c.GeneratorErrors.WithLabelValues(target).Inc()
		return
	}
	c.ArtifactCount.WithLabelValues(target).Set(float64(artifacts))
}

// Middleware instruments an HTTP handler. The chi route pattern becomes
// the path label so record ids do not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.RequestsInFlight.Inc()
		defer c.RequestsInFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		c.RequestsTotal.WithLabelValues(r.Method, path, statusClass(rec.status)).Inc()
		c.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
