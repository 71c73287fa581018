// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Default configuration values.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultLogLevel              = "INFO"
	DefaultLimit                 = 200
	DefaultValidationParallelism = 4
	DefaultDatabaseFile          = "runfilter.db"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// AppConfig holds the resolved application configuration.
type AppConfig struct {
	host                  string
	port                  int
	dataDir               string
	dbURL                 string
	logLevel              string
	logFormat             LogFormat
	apiKeys               []string
	defaultLimit          int
	validationParallelism int
	corsAllowedOrigins    []string
	metricsEnabled        bool
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".runfilter"
	}
	return filepath.Join(home, ".runfilter")
}

// DefaultDBURL returns the SQLite URL inside dataDir.
func DefaultDBURL(dataDir string) string {
	return "sqlite:///" + filepath.Join(dataDir, DefaultDatabaseFile)
}

// DefaultLogger returns the default slog logger for library consumers.
func DefaultLogger() *slog.Logger {
	return slog.Default()
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:                  DefaultHost,
		port:                  DefaultPort,
		dataDir:               dataDir,
		dbURL:                 DefaultDBURL(dataDir),
		logLevel:              DefaultLogLevel,
		logFormat:             LogFormatPretty,
		apiKeys:               []string{},
		defaultLimit:          DefaultLimit,
		validationParallelism: DefaultValidationParallelism,
		corsAllowedOrigins:    []string{"*"},
		metricsEnabled:        true,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns a copy of the API keys guarding write endpoints.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// DefaultLimit returns the page size used when a request gives none.
func (c AppConfig) DefaultLimit() int { return c.defaultLimit }

// ValidationParallelism returns how many filters are validated at once.
func (c AppConfig) ValidationParallelism() int { return c.validationParallelism }

// CORSAllowedOrigins returns the origins allowed by the CORS middleware.
func (c AppConfig) CORSAllowedOrigins() []string {
	origins := make([]string, len(c.corsAllowedOrigins))
	copy(origins, c.corsAllowedOrigins)
	return origins
}

// MetricsEnabled reports whether /metrics is served.
func (c AppConfig) MetricsEnabled() bool { return c.metricsEnabled }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		// Keep the default database next to the data directory.
		if c.dbURL == "" || c.dbURL == DefaultDBURL(c.dataDir) {
			c.dbURL = DefaultDBURL(dir)
		}
		c.dataDir = dir
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithDefaultLimit sets the default page size. Non-positive values are ignored.
func WithDefaultLimit(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.defaultLimit = n
		}
	}
}

// WithValidationParallelism sets the batch validation concurrency.
func WithValidationParallelism(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.validationParallelism = n
		}
	}
}

// WithCORSAllowedOrigins sets the allowed CORS origins.
func WithCORSAllowedOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) {
		c.corsAllowedOrigins = make([]string, len(origins))
		copy(c.corsAllowedOrigins, origins)
	}
}

// WithMetricsEnabled toggles the /metrics endpoint.
func WithMetricsEnabled(enabled bool) AppConfigOption {
	return func(c *AppConfig) { c.metricsEnabled = enabled }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	return NewAppConfig().Apply(opts...)
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	c.apiKeys = append([]string(nil), c.apiKeys...)
	c.corsAllowedOrigins = append([]string(nil), c.corsAllowedOrigins...)
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// API keys are reported as a count.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("addr", c.Addr()),
		slog.String("data_dir", c.dataDir),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("log_level", c.logLevel),
		slog.Int("api_keys_count", len(c.apiKeys)),
		slog.Int("default_limit", c.defaultLimit),
		slog.Int("validation_parallelism", c.validationParallelism),
		slog.String("cors_allowed_origins", strings.Join(c.corsAllowedOrigins, ",")),
		slog.Bool("metrics_enabled", c.metricsEnabled),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

// ParseList parses a comma-separated string, dropping blank entries.
func ParseList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
