package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/recdex/internal/ingest"
	"github.com/Aman-CERP/recdex/internal/output"
	"github.com/Aman-CERP/recdex/internal/watcher"
	"github.com/Aman-CERP/recdex/pkg/indexer"
)

// ingestOptions holds CLI flags for ingest.
type ingestOptions struct {
	follow  bool
	strict  bool
	polling bool
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Index newline-delimited JSON records",
		Long: `Index newline-delimited JSON records from files, or stdin when no file
is given. Each line is one record; lines that are not JSON objects or that
cannot be indexed are skipped unless --strict is set.

With --follow, files are tailed: existing lines are indexed first, then every
appended line, until interrupted.

Examples:
  recdex ingest app.log
  kubectl logs -f deploy/api | recdex ingest
  recdex ingest --follow /var/log/app/*.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "F", false, "Keep indexing lines appended to the files")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Abort on the first rejected line")
	cmd.Flags().BoolVar(&opts.polling, "polling", false, "Poll files instead of using filesystem notifications")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, files []string, opts ingestOptions) error {
	if opts.follow && len(files) == 0 {
		return fmt.Errorf("--follow needs at least one file")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	idx, err := indexer.New(s, indexer.WithMaxOpenWriters(cfg.Indexer.MaxOpenWriters))
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	start := time.Now()
	in := ingest.New(idx, ingest.WithStrict(opts.strict))
	slog.Info("ingest_started",
		slog.Int("files", len(files)),
		slog.Bool("follow", opts.follow),
		slog.String("data_dir", s.DataDir()))

	switch {
	case opts.follow:
		wopts := watcher.DefaultOptions()
		wopts.Polling = opts.polling
		err = in.Follow(ctx, files, wopts)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	case len(files) == 0:
		err = in.Stream(ctx, "stdin", cmd.InOrStdin())
	default:
		err = ingestFiles(ctx, in, files)
	}

	st := in.Stats()
	slog.Info("ingest_complete",
		slog.Int("lines", st.Lines),
		slog.Int("indexed", st.Indexed),
		slog.Int("skipped", st.Skipped),
		slog.Duration("duration", time.Since(start)))

	out := output.New(cmd.ErrOrStderr(), output.FormatText)
	if err != nil {
		out.Errorf("Stopped after %d records: %v", st.Indexed, err)
		return err
	}
	out.Successf("Indexed %d records (%d skipped) in %s", st.Indexed, st.Skipped,
		time.Since(start).Round(time.Millisecond))
	return nil
}

func ingestFiles(ctx context.Context, in *ingest.Ingester, files []string) error {
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		err = in.Stream(ctx, path, f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
