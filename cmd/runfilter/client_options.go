package main

import (
	"fmt"
	"log/slog"

	"github.com/helixml/runfilter"
	"github.com/helixml/runfilter/internal/config"
)

// clientOptions returns the runfilter.Option slice derived from AppConfig.
func clientOptions(cfg config.AppConfig, logger *slog.Logger) []runfilter.Option {
	return []runfilter.Option{
		runfilter.WithDataDir(cfg.DataDir()),
		runfilter.WithDatabaseURL(cfg.DBURL()),
		runfilter.WithLogger(logger),
		runfilter.WithDefaultLimit(cfg.DefaultLimit()),
		runfilter.WithValidationParallelism(cfg.ValidationParallelism()),
	}
}

// openClient prepares the data directory and opens a Client from cfg.
func openClient(cfg config.AppConfig, logger *slog.Logger) (*runfilter.Client, error) {
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	client, err := runfilter.New(clientOptions(cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("create runfilter client: %w", err)
	}
	return client, nil
}
