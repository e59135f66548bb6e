package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/recdex/internal/output"
	"github.com/Aman-CERP/recdex/pkg/searcher"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	format string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every index",
		Long: `Search every index with one bleve query string and print the results
ranked by relevance.

Field paths are dotted (props.user.id). Bare words match text fields; '*'
matches every record.

Examples:
  recdex search 'level:ERROR'
  recdex search 'props.status:>=500 timeout' --limit 5
  recdex search '*' --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "auto", "Output format: auto, text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit := opts.limit
	if limit == 0 {
		limit = cfg.Search.DefaultLimit
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	sr, err := searcher.New(s, searcher.WithMaxConcurrency(cfg.Search.MaxConcurrency))
	if err != nil {
		return err
	}

	slog.Info("search_started", slog.String("query", query), slog.Int("limit", limit))
	results, err := sr.Search(ctx, query, limit)
	if err != nil {
		return err
	}

	return output.New(cmd.OutOrStdout(), format).Results(results)
}
