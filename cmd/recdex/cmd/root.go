// Package cmd provides the CLI commands for recdex.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/recdex/internal/config"
	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
	"github.com/Aman-CERP/recdex/internal/logging"
	"github.com/Aman-CERP/recdex/internal/profiling"
	"github.com/Aman-CERP/recdex/internal/store"
	"github.com/Aman-CERP/recdex/pkg/version"
)

// Global flags
var (
	dataDirFlag    string
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// Profiling flags
var (
	profileOpts profiling.Options
	profile     *profiling.Session
)

// NewRootCmd creates the root command for recdex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recdex",
		Short: "Schema-free full-text index for structured records",
		Long: `recdex indexes arbitrary structured records (JSON objects, structured
log lines) without a declared schema. Records with the same field paths and
value kinds share an index; a single query searches every index at once.

Examples:
  tail -f app.log | recdex ingest
  recdex search 'level:ERROR props.status:>=500'
  recdex demo 'props.id:2'
  recdex serve`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("recdex version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Directory holding the indexes (\"\" keeps them in memory)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .recdex.yaml, then user config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.recdex/logs/")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Mem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDemoCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging enables debug logging and profiling when their
// flags are set.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profile = s
	}
	return nil
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if profile != nil {
		err = profile.Stop()
		profile = nil
	}

	if loggingCleanup != nil {
		slog.Info("debug_logging_stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(root.ErrOrStderr(), rxerrors.FormatForCLI(err))
	}
	return err
}

// loadConfig resolves configuration for cmd: --config or the working
// directory, then --data-dir on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("data-dir"); f != nil && f.Changed {
		cfg.Store.DataDir = dataDirFlag
	}
	return cfg, nil
}

// openStore opens the store cfg points at. The default data dir is never
// empty, so an empty one was configured that way and the store warns.
func openStore(cfg *config.Config) (*store.Store, error) {
	return store.New(store.WithDataDir(cfg.Store.DataDir))
}
