// Package api serves the runfilter HTTP API, health checks, metrics and MCP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixml/runfilter"
	apimiddleware "github.com/helixml/runfilter/infrastructure/api/middleware"
	v1 "github.com/helixml/runfilter/infrastructure/api/v1"
	"github.com/helixml/runfilter/infrastructure/api/v1/dto"
	mcpinternal "github.com/helixml/runfilter/internal/mcp"
)

// APIServerOption configures an APIServer.
type APIServerOption func(*APIServer)

// WithAPIKeys sets the keys accepted on write-protected endpoints.
// With no keys, writes are open.
func WithAPIKeys(keys ...string) APIServerOption {
	return func(a *APIServer) {
		a.apiKeys = append([]string(nil), keys...)
	}
}

// WithCORSAllowedOrigins sets the origins allowed to call the API from a browser.
// With none, no CORS headers are sent.
func WithCORSAllowedOrigins(origins ...string) APIServerOption {
	return func(a *APIServer) {
		a.corsOrigins = append([]string(nil), origins...)
	}
}

// WithMetricsEndpoint toggles the /metrics endpoint.
func WithMetricsEndpoint(enabled bool) APIServerOption {
	return func(a *APIServer) {
		a.metricsEnabled = enabled
	}
}

// WithVersion sets the version reported by / and the MCP server.
func WithVersion(version string) APIServerOption {
	return func(a *APIServer) {
		a.version = version
	}
}

// APIServer provides an HTTP API backed by a runfilter Client.
type APIServer struct {
	client         *runfilter.Client
	apiKeys        []string
	corsOrigins    []string
	metricsEnabled bool
	version        string
	server         *Server
	router         chi.Router
	logger         *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given Client.
// Creating and deleting flow runs requires a valid key when keys are set;
// validation, filtering, counting, health, metrics and MCP remain open.
func NewAPIServer(client *runfilter.Client, opts ...APIServerOption) *APIServer {
	a := &APIServer{
		client:         client,
		metricsEnabled: true,
		version:        "dev",
		logger:         client.Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully routed API as an http.Handler.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.router = chi.NewRouter()
		a.mountRoutes(a.router)
	}
	return a.router
}

func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	router.Use(apimiddleware.CorrelationID)
	router.Use(apimiddleware.Logging(a.logger))
	router.Use(apimiddleware.Metrics(c.Metrics()))
	if len(a.corsOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.corsOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-KEY", apimiddleware.CorrelationIDHeader},
			ExposedHeaders:   []string{"Location", apimiddleware.CorrelationIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/", a.root)
	router.Get("/health", a.health)
	router.Get("/healthz", a.health)
	if a.metricsEnabled {
		router.Handle("/metrics", promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{}))
	}

	filtersRouter := v1.NewFiltersRouter(c)
	flowRunsRouter := v1.NewFlowRunsRouter(c)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Mount("/filters", filtersRouter.Routes())
		r.Mount("/flow_runs", flowRunsRouter.Routes(apimiddleware.WriteProtectAuth(a.apiKeys)))
	})

	// No Timeout: MCP streams responses and sets its own session headers.
	mcpSrv := mcpinternal.NewServer(c.Filters, c.FlowRuns, a.version, a.logger)
	router.Mount("/mcp", server.NewStreamableHTTPServer(mcpSrv.MCPServer()))
}

func (a *APIServer) root(w http.ResponseWriter, _ *http.Request) {
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{
		"name":    "runfilter",
		"version": a.version,
	})
}

func (a *APIServer) health(w http.ResponseWriter, req *http.Request) {
	if err := a.client.Ping(req.Context()); err != nil {
		a.logger.WarnContext(req.Context(), "health check failed", slog.Any("error", err))
		apimiddleware.WriteJSON(w, http.StatusServiceUnavailable, dto.HealthResponse{Status: "unhealthy"})
		return
	}
	apimiddleware.WriteJSON(w, http.StatusOK, dto.HealthResponse{Status: "healthy"})
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	a.server = NewServer(addr, a.logger)
	a.server.Router().Mount("/", a.Handler())
	return a.server.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
