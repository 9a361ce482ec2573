package rest

import (
	"context"
	"net/http"
	"time"

	"chatarchive/application/commands/bus"
	querybus "chatarchive/application/queries/bus"
	"chatarchive/domain/config"
	"chatarchive/interfaces/http/rest/handlers"
	"chatarchive/interfaces/http/rest/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// readyTimeout bounds the readiness probe.
const readyTimeout = 3 * time.Second

// Options carries the optional collaborators of the router
type Options struct {
	// Tuning returns the live domain configuration used for rendering.
	Tuning func() *config.DomainConfig
	// Metrics records per-route request metrics.
	Metrics middleware.HTTPMetrics
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
	// Ready reports whether backends are reachable.
	Ready      func(ctx context.Context) error
	EnableCORS bool
	Version    string
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	opts       Options
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
	opts Options,
) *Router {
	if opts.Tuning == nil {
		opts.Tuning = config.DefaultDomainConfig
	}
	if opts.Version == "" {
		opts.Version = "v1"
	}
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		opts:       opts,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestContext)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.opts.Metrics != nil {
		router.Use(middleware.Metrics(rt.opts.Metrics))
	}

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.MetricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.MetricsHandler)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(versionMiddleware(rt.opts.Version))

		entryHandler := handlers.NewEntryHandler(rt.commandBus, rt.queryBus, rt.logger)
		r.Route("/entries", func(r chi.Router) {
			r.Post("/", entryHandler.ImportEntry)
			r.Get("/{entryID}", entryHandler.GetEntry)
			r.Delete("/{entryID}", entryHandler.DeleteEntry)
			r.Post("/{entryID}/detect", entryHandler.DetectRelationships)
			r.Get("/{entryID}/related", entryHandler.GetRelated)
			r.Get("/{entryID}/suggestions", entryHandler.GetSuggestions)
		})

		relHandler := handlers.NewRelationshipHandler(rt.commandBus, rt.logger)
		r.Route("/relationships", func(r chi.Router) {
			r.Post("/", relHandler.Link)
			r.Delete("/{sourceID}/{targetID}", relHandler.Unlink)
		})

		graphHandler := handlers.NewGraphHandler(rt.queryBus, rt.opts.Tuning, rt.logger)
		r.Get("/graph-data", graphHandler.GetGraphData)
		r.Get("/graph/view.svg", graphHandler.GetGraphSVG)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
		defer cancel()
		if err := rt.opts.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// versionMiddleware adds the API version header to all responses
func versionMiddleware(version string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-API-Version", version)
			next.ServeHTTP(w, r)
		})
	}
}
