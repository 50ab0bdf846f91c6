// Package httptransport serves the registry lookup and identity operations
// over HTTP.
package httptransport

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"idsearch/internal/core"
	"idsearch/internal/report"
)

// Registry is the subset of core.Service used by the handlers.
type Registry interface {
	ListCenters(ctx context.Context) ([]core.Center, error)
	Resolve(ctx context.Context, value, scheme, center string) ([]core.Participant, error)
	ResolveBatch(ctx context.Context, table core.Table, schemes []string, center string) (iter.Seq2[core.Resolution, error], error)
	RegisterAlias(ctx context.Context, consortiumID, alias string) (core.Alias, core.Result, error)
	PromoteAlias(ctx context.Context, alias string) (core.Participant, core.Result, error)
	Participant(ctx context.Context, consortiumID string) (core.Participant, error)
	Schemes() *core.SchemeRegistry
}

// Handler holds the dependencies shared by every route.
type Handler struct {
	registry  Registry
	publisher *report.Publisher
	logger    zerolog.Logger
	metrics   http.Handler
	timeout   time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request and error logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithPublisher enables report exports and the /reports routes.
func WithPublisher(p *report.Publisher) Option {
	return func(h *Handler) { h.publisher = p }
}

// WithGatherer serves g in the Prometheus text format on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		if g != nil {
			h.metrics = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		}
	}
}

// WithMetricsHandler serves handler on /metrics, e.g. expvar.Handler().
func WithMetricsHandler(handler http.Handler) Option {
	return func(h *Handler) {
		if handler != nil {
			h.metrics = handler
		}
	}
}

// WithTimeout bounds the handling time of each request.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// NewHandler returns a Handler for registry.
func NewHandler(registry Registry, opts ...Option) *Handler {
	h := &Handler{
		registry: registry,
		logger:   zerolog.Nop(),
		metrics:  promhttp.Handler(),
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router wires every endpoint.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(h.logger))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", h.metrics)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.timeout))
		r.Get("/centers", h.handleCenters)
		r.Get("/schemes", h.handleSchemes)
		r.Get("/lookup", h.handleLookup)
		r.Post("/lookup", h.handleLookup)
		r.Post("/batch", h.handleBatch)
		r.Get("/participants/{consortiumID}", h.handleParticipant)
		r.Post("/participants/{consortiumID}/aliases", h.handleAddAlias)
		r.Post("/aliases/{alias}/promote", h.handlePromote)
		if h.publisher != nil {
			r.Get("/reports", h.handleReports)
			r.Get("/reports/*", h.handleReport)
		}
	})
	return r
}
