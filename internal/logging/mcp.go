package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for the MCP stdio server.
//
// stdout carries JSON-RPC exclusively, so logs go only to the file, never
// to stdout or stderr.
func SetupMCPMode(cfg Config) (func(), error) {
	cfg.WriteToStderr = false
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultLogPath()
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	slog.Info("mcp_logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))
	return cleanup, nil
}
