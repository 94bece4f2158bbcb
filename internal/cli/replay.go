package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/implied/internal/engine"
	"github.com/roach88/implied/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID    string   `json:"run_id"`
	SetName  string   `json:"set"`
	Derived  int      `json:"derived"`
	Match    bool     `json:"match"`
	Diffs    []string `json:"diffs,omitempty"`
	Recorded string   `json:"recorded_hash"`
	Replayed string   `json:"replayed_hash"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs     []ReplayRunResult `json:"runs"`
	Total    int               `json:"total"`
	AllMatch bool              `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id...]",
		Short: "Re-run logged inferences and verify determinism",
		Long: `Re-run inference on the inputs of logged runs and verify the output
is identical to what was recorded.

With no run IDs every run in the log is replayed.

Exit codes:
  0 - All replays match
  1 - A replay differs from the log
  2 - Command error (database not found, unknown run, etc.)

Examples:
  implied replay --db ./implied.db
  implied replay --db ./implied.db 0192f6e4-...
  implied replay --db ./implied.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, ids []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to open database", err)
	}
	defer st.Close()

	// Get run IDs to process
	if len(ids) == 0 {
		runs, err := st.ListRuns(ctx, 0)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to list runs", err)
		}
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
	}

	if len(ids) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{
				Runs:     []ReplayRunResult{},
				AllMatch: true,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	result := ReplayResult{
		Runs:     make([]ReplayRunResult, 0, len(ids)),
		Total:    len(ids),
		AllMatch: true,
	}

	for _, id := range ids {
		runResult, err := replayRun(ctx, st, id, logger)
		if errors.Is(err, store.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("%s: run %s", ErrCodeRunNotFound, id), err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("%s: failed to replay run %s", ErrCodeGeneric, id), err)
		}

		result.Runs = append(result.Runs, runResult)
		if !runResult.Match {
			result.AllMatch = false
		}
	}

	// Output results
	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// replayRun replays one run against the log.
func replayRun(ctx context.Context, st *store.Store, id string, logger *slog.Logger) (ReplayRunResult, error) {
	run, err := st.ReadRun(ctx, id)
	if err != nil {
		return ReplayRunResult{}, err
	}

	rr, err := st.Replay(ctx, id, engine.WithLogger(logger))
	if err != nil {
		return ReplayRunResult{}, err
	}

	return ReplayRunResult{
		RunID:    id,
		SetName:  run.SetName,
		Derived:  len(rr.Recorded),
		Match:    rr.Match,
		Diffs:    rr.Diffs,
		Recorded: rr.RecordedHash,
		Replayed: rr.ReplayedHash,
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllMatch {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeReplayDiffers,
			Message: "determinism verification failed",
		}
	}

	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := formatter.Encode(response); err != nil {
		return err
	}

	if !result.AllMatch {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, ErrCodeReplayDiffers+": determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.Total)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Match {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunID, run.SetName)
		fmt.Fprintf(w, "  Derived: %d\n", run.Derived)
		if verbose {
			fmt.Fprintf(w, "  Recorded hash: %s\n", run.Recorded)
			fmt.Fprintf(w, "  Replayed hash: %s\n", run.Replayed)
		}
		for _, d := range run.Diffs {
			fmt.Fprintf(w, "  %s\n", d)
		}
		fmt.Fprintln(w)
	}

	if result.AllMatch {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, ErrCodeReplayDiffers+": determinism verification failed")
}
