package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/recdex/internal/output"
	"github.com/Aman-CERP/recdex/internal/record"
	"github.com/Aman-CERP/recdex/internal/store"
)

// statusReport is the JSON form of the status command.
type statusReport struct {
	store.Stats
	Schemas map[string][]record.SchemaField `json:"schemas"`
}

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the indexes and their schemas",
		Long: `Display information about the data dir:
  - Number of indexes (one per record shape)
  - Documents and commit generation per index
  - Field paths and kinds of each index`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(_ context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	report := statusReport{Stats: s.Stats(), Schemas: make(map[string][]record.SchemaField)}
	for _, h := range s.Indexes() {
		report.Schemas[record.FormatFingerprint(h.Fingerprint())] = h.Schema().Fields()
	}

	if jsonOutput {
		return output.New(cmd.OutOrStdout(), output.FormatJSON).JSON(report)
	}

	out := output.New(cmd.OutOrStdout(), output.FormatText)
	if err := out.Stats(report.Stats); err != nil {
		return err
	}
	for _, is := range report.PerIndex {
		fp := record.FormatFingerprint(is.Fingerprint)
		fields := report.Schemas[fp]
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = fmt.Sprintf("%s(%s)", f.Path, f.Kind)
		}
		out.Newline()
		out.Statusf("🗂 ", "%s", fp)
		out.Status("", strings.Join(parts, ", "))
	}
	return nil
}
