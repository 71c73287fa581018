// Package runfilter validates and executes flow run filters.
//
// A flow run filter is a JSON object tagged with "object": "flow_run" and a
// "property" naming what it constrains (name, start_date, end_date, tag or
// state). runfilter checks such objects against the rules of the property's
// family, and runs validated filters against a flow run store.
//
// Basic usage:
//
//	client, err := runfilter.New(
//	    runfilter.WithSQLite(".runfilter/runs.db"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Validate a filter
//	f, err := client.Filters.Validate(ctx, json.RawMessage(`{"object":"flow_run","property":"tag","all_":["prod"]}`))
//
//	// Query matching runs
//	runs, err := client.FlowRuns.Filter(ctx, service.FilterParams{
//	    Filters: []filter.FlowRunFilter{f},
//	    Limit:   20,
//	})
package runfilter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/helixml/runfilter/application/service"
	"github.com/helixml/runfilter/infrastructure/persistence"
	"github.com/helixml/runfilter/internal/config"
	"github.com/helixml/runfilter/internal/database"
	"github.com/helixml/runfilter/internal/metrics"
)

// Exported errors for library consumers.
var (
	// ErrNoDatabase indicates an empty database path or URL.
	ErrNoDatabase = errors.New("runfilter: no database configured")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = service.ErrClientClosed
)

// Client is the main entry point for the runfilter library.
//
// Access services via struct fields:
//
//	client.Filters.ValidateAll(ctx, candidates)
//	client.FlowRuns.Count(ctx, filters...)
type Client struct {
	Filters  *service.Filter
	FlowRuns *service.FlowRun

	db       database.Database
	metrics  *metrics.Metrics
	gatherer prom.Gatherer
	logger   *slog.Logger
	closed   atomic.Bool
	mu       sync.Mutex
}

// New creates a new Client with the given options.
// Without a database option the client uses SQLite inside the data directory.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = config.DefaultLogger()
	}

	if cfg.database == databaseUnset {
		if _, err := config.PrepareDataDir(cfg.dataDir); err != nil {
			return nil, err
		}
	}

	dbURL, err := buildDatabaseURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("build database url: %w", err)
	}

	ctx := context.Background()
	db, err := database.NewDatabaseWithLogger(ctx, dbURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := configurePool(db); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	registerer, gatherer := metricsRegistry(cfg.registerer)
	m := metrics.New(registerer)

	client := &Client{
		Filters:  service.NewFilter(cfg.validationParallelism, m, logger),
		FlowRuns: service.NewFlowRun(persistence.NewFlowRunStore(db), cfg.defaultLimit, m, logger),
		db:       db,
		metrics:  m,
		gatherer: gatherer,
		logger:   logger,
	}

	logger.Debug("runfilter client ready",
		slog.Bool("postgres", db.IsPostgres()),
		slog.Int("default_limit", client.FlowRuns.DefaultLimit()),
	)
	return client, nil
}

// Postgres connection pool limits.
const (
	postgresMaxOpenConns    = 20
	postgresMaxIdleConns    = 5
	postgresConnMaxLifetime = 30 * time.Minute
)

// configurePool sizes the connection pool for the driver.
// SQLite allows a single writer, so it gets one connection.
func configurePool(db database.Database) error {
	if db.IsSQLite() {
		return db.ConfigurePool(1, 1, 0)
	}
	return db.ConfigurePool(postgresMaxOpenConns, postgresMaxIdleConns, postgresConnMaxLifetime)
}

// metricsRegistry returns where collectors are registered and where they are
// gathered from. A nil registerer gives a private registry with Go runtime
// and process collectors.
func metricsRegistry(reg prom.Registerer) (prom.Registerer, prom.Gatherer) {
	if reg == nil {
		registry := prom.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return registry, registry
	}
	if g, ok := reg.(prom.Gatherer); ok {
		return reg, g
	}
	return reg, prom.DefaultGatherer
}

// Close releases the database and stops the services.
// Calling Close more than once is a no-op.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.Filters.Close()
	c.FlowRuns.Close()

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("runfilter client closed")
	return nil
}

// Ping checks the database connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.db.Ping(ctx)
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Metrics returns the client's collectors.
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// Gatherer returns the registry the client's collectors can be gathered from.
func (c *Client) Gatherer() prom.Gatherer {
	return c.gatherer
}
