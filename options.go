package runfilter

import (
	"log/slog"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/helixml/runfilter/application/service"
	"github.com/helixml/runfilter/internal/config"
)

// databaseType identifies the database.
type databaseType int

const (
	databaseUnset databaseType = iota
	databaseSQLite
	databasePostgres
	databaseURL
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	database              databaseType
	dbPath                string
	dbURL                 string
	dataDir               string
	logger                *slog.Logger
	defaultLimit          int
	validationParallelism int
	registerer            prom.Registerer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:               config.DefaultDataDir(),
		defaultLimit:          service.DefaultLimit,
		validationParallelism: config.DefaultValidationParallelism,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite stores flow runs in the SQLite file at path.
// ":memory:" gives a private in-memory database.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.database = databaseSQLite
		c.dbPath = path
	}
}

// WithPostgres stores flow runs in PostgreSQL.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.database = databasePostgres
		c.dbURL = dsn
	}
}

// WithDatabaseURL selects the database from a URL such as
// sqlite:///path/to/runs.db or postgres://user@host/db.
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) {
		c.database = databaseURL
		c.dbURL = url
	}
}

// WithDataDir sets the directory holding the default SQLite database.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithDefaultLimit sets the page size used when a query gives no limit.
// It also caps larger limits. Values <= 0 are ignored.
func WithDefaultLimit(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.defaultLimit = n
		}
	}
}

// WithValidationParallelism sets how many filters ValidateAll checks at once.
// Values <= 0 are ignored.
func WithValidationParallelism(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.validationParallelism = n
		}
	}
}

// WithMetricsRegisterer registers the client's collectors with reg instead of
// a private registry.
func WithMetricsRegisterer(reg prom.Registerer) Option {
	return func(c *clientConfig) {
		c.registerer = reg
	}
}

// buildDatabaseURL constructs the database URL from configuration.
func buildDatabaseURL(cfg *clientConfig) (string, error) {
	switch cfg.database {
	case databaseUnset:
		return config.DefaultDBURL(cfg.dataDir), nil
	case databaseSQLite:
		if cfg.dbPath == "" {
			return "", ErrNoDatabase
		}
		return "sqlite:///" + filepath.ToSlash(cfg.dbPath), nil
	default:
		if cfg.dbURL == "" {
			return "", ErrNoDatabase
		}
		return cfg.dbURL, nil
	}
}
