package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixml/runfilter/infrastructure/api"
	"github.com/helixml/runfilter/internal/config"
	"github.com/helixml/runfilter/internal/log"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                      Server host to bind to (default: 0.0.0.0)
  PORT                      Server port to listen on (default: 8080)
  DATA_DIR                  Data directory (default: ~/.runfilter)
  DB_URL                    Database URL (default: sqlite:///{data_dir}/runfilter.db)
  LOG_LEVEL                 Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                Log format: pretty, json (default: pretty)
  API_KEYS                  Comma-separated keys required to create or delete flow runs
  DEFAULT_LIMIT             Page size when a query gives none (default: 200)
  VALIDATION_PARALLELISM    Filters validated concurrently per request (default: 4)
  CORS_ALLOWED_ORIGINS      Comma-separated browser origins (default: *)
  METRICS_ENABLED           Serve Prometheus metrics on /metrics (default: true)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(ctx context.Context, envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	cfg = applyServeOverrides(cfg, host, port)

	logger := log.Configure(cfg, os.Stdout)

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	logger.LogAttrs(context.Background(), slog.LevelInfo, "starting runfilter", attrs...)

	client, err := openClient(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close runfilter client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client,
		api.WithAPIKeys(cfg.APIKeys()...),
		api.WithCORSAllowedOrigins(cfg.CORSAllowedOrigins()...),
		api.WithMetricsEndpoint(cfg.MetricsEnabled()),
		api.WithVersion(version),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.ListenAndServe(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
