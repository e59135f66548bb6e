package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/recdex/internal/logging"
	"github.com/Aman-CERP/recdex/internal/output"
	"github.com/Aman-CERP/recdex/internal/store"
	"github.com/Aman-CERP/recdex/pkg/indexer"
	"github.com/Aman-CERP/recdex/pkg/searcher"
)

func newDemoCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "demo [query]",
		Short: "Log sample records into an in-memory index and query them",
		Long: `Log a few structured records through an slog handler backed by an
in-memory index, then run query against them (default '*').

Examples:
  recdex demo
  recdex demo 'props.id:2'
  recdex demo 'level:WARN props.err.cause:wrong'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := "*"
			if len(args) == 1 {
				query = args[0]
			}
			return runDemo(cmd.Context(), cmd, query, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "auto", "Output format: auto, text, json")

	return cmd
}

func runDemo(ctx context.Context, cmd *cobra.Command, query, format string) error {
	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}

	s, err := store.New()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	idx, err := indexer.New(s)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	var h slog.Handler = logging.NewIndexHandler(idx, &logging.IndexHandlerOptions{Level: slog.LevelDebug})
	if debugMode {
		h = logging.Tee(h, slog.Default().Handler())
	}
	logSamples(ctx, slog.New(h))

	sr, err := searcher.New(s)
	if err != nil {
		return err
	}
	results, err := sr.Search(ctx, query, 10)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "querying for `%s`\n", query)
	return output.New(cmd.OutOrStdout(), f).Results(results)
}

// logSamples writes two records of different shapes.
func logSamples(ctx context.Context, logger *slog.Logger) {
	logger.InfoContext(ctx, "A structured log",
		slog.Int("id", 1),
		slog.String("name", "log"),
		slog.String("path", "./monkey-path"))

	logger.WarnContext(ctx, "A structured log",
		slog.Int("id", 2),
		slog.Group("err",
			slog.String("cause", "something went wrong!"),
			slog.Any("backtrace", []string{"line 1 ...", "line 2 ...", "line 3 ..."})))
}
