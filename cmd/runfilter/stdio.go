package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixml/runfilter/internal/log"
	"github.com/helixml/runfilter/internal/mcp"
)

func stdioCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants validate flow run filters and query flow runs.
Configuration is loaded from environment variables and .env file.
Logs go to stderr because stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runStdio(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	logger := log.Configure(cfg, os.Stderr)
	logger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", cfg.DataDir()),
	)

	client, err := openClient(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close runfilter client", slog.Any("error", err))
		}
	}()

	return mcp.NewServer(client.Filters, client.FlowRuns, version, logger).ServeStdio()
}
