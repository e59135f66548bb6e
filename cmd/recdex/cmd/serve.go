package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/recdex/internal/config"
	"github.com/Aman-CERP/recdex/internal/logging"
	"github.com/Aman-CERP/recdex/internal/mcp"
	"github.com/Aman-CERP/recdex/internal/metrics"
	"github.com/Aman-CERP/recdex/pkg/indexer"
	"github.com/Aman-CERP/recdex/pkg/searcher"
)

func newServeCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server on stdio. AI clients get three tools: search,
index_record and index_status.

stdout carries JSON-RPC only; logs go to ~/.recdex/logs/recdex.log.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Server.MetricsAddr = metricsAddr
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus /metrics on this address (e.g. :9464)")

	return cmd
}

// serveLoggingConfig maps the config file onto MCP-safe file logging.
func serveLoggingConfig(cfg *config.Config) logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Server.LogLevel
	if debugMode {
		lc.Level = "debug"
	}
	if cfg.Logging.File != "" {
		lc.FilePath = cfg.Logging.File
	}
	if cfg.Logging.MaxSizeMB > 0 {
		lc.MaxSizeMB = cfg.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxFiles > 0 {
		lc.MaxFiles = cfg.Logging.MaxFiles
	}
	return lc
}

func runServe(ctx context.Context, cfg *config.Config) error {
	cleanup, err := logging.SetupMCPMode(serveLoggingConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	s, err := openStore(cfg)
	if err != nil {
		slog.Error("store_open_failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = s.Close() }()

	idx, err := indexer.New(s, indexer.WithMaxOpenWriters(cfg.Indexer.MaxOpenWriters))
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	sr, err := searcher.New(s, searcher.WithMaxConcurrency(cfg.Search.MaxConcurrency))
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(s, sr, idx, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Server.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Server.MetricsAddr); err != nil {
				slog.Error("metrics_server_failed",
					slog.String("addr", cfg.Server.MetricsAddr),
					slog.String("error", err.Error()))
			}
		}()
	}

	slog.Info("serve_started",
		slog.String("data_dir", s.DataDir()),
		slog.Int("indexes", s.Len()))
	return srv.Serve(ctx, cfg.Server.Transport)
}
