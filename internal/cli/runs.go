package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/implied/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database  string
	Limit     int
	InputHash string // optional - only runs over this input
}

// RunSummary is one row of the runs listing.
type RunSummary struct {
	ID             string `json:"id"`
	Seq            int64  `json:"seq"`
	SetName        string `json:"set"`
	InputHash      string `json:"input_hash"`
	DerivationHash string `json:"derivation_hash"`
	Rounds         int    `json:"rounds"`
	Satisfiable    bool   `json:"satisfiable"`
	EngineVersion  string `json:"engine_version"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List logged inference runs",
		Long: `List the runs recorded in the run log, oldest first.

Examples:
  implied runs --db ./implied.db
  implied runs --db ./implied.db --limit 10
  implied runs --db ./implied.db --input-hash 3f2a...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "only the most recent N runs (0 = all)")
	cmd.Flags().StringVar(&opts.InputHash, "input-hash", "", "only runs over this input hash")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to open database", err)
	}
	defer st.Close()

	var runs []store.Run
	if opts.InputHash != "" {
		runs, err = st.FindRunsByInputHash(ctx, opts.InputHash)
	} else {
		runs, err = st.ListRuns(ctx, opts.Limit)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to list runs", err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{
			ID:             r.ID,
			Seq:            r.Seq,
			SetName:        r.SetName,
			InputHash:      r.InputHash,
			DerivationHash: r.DerivationHash,
			Rounds:         r.Rounds,
			Satisfiable:    r.Satisfiable,
			EngineVersion:  r.EngineVersion,
		}
	}

	formatter := NewOutputFormatter(cmd, opts.RootOptions)
	if opts.Format == "json" {
		return formatter.Encode(CLIResponse{Status: "ok", Data: summaries})
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, s := range summaries {
		status := "✓"
		if !s.Satisfiable {
			status = "✗"
		}
		id := truncateID(s.ID)
		if opts.Verbose {
			id = s.ID
		}
		fmt.Fprintf(w, "%s [%d] %s %s (%d round(s))\n", status, s.Seq, id, s.SetName, s.Rounds)
		formatter.VerboseLog("    input %s", s.InputHash)
	}
	return nil
}
