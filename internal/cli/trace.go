package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/implied/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Via      string // optional - only derivations through this variable
}

// TraceStep is one derivation in the trace timeline.
type TraceStep struct {
	Seq       int64  `json:"seq"`
	Round     int    `json:"round"`
	Via       string `json:"via"`
	Predicate string `json:"predicate"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID          string      `json:"run_id"`
	SetName        string      `json:"set"`
	Inputs         []string    `json:"inputs"`
	Timeline       []TraceStep `json:"timeline"`
	Contradictions []string    `json:"contradictions,omitempty"`
	Stats          TraceStats  `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Inputs         int  `json:"inputs"`
	Derived        int  `json:"derived"`
	Rounds         int  `json:"rounds"`
	Contradictions int  `json:"contradictions"`
	Satisfiable    bool `json:"satisfiable"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Show how each predicate of a run was derived",
		Long: `Show the provenance of a logged run.

The output includes:
- Inputs: the predicates the run started from
- Timeline: every derived predicate in discovery order, with its closure
  round and the intermediate variable it was derived through
- Stats: summary statistics for the run

Examples:
  implied trace --db ./implied.db 0192f6e4-...
  implied trace --db ./implied.db 0192f6e4-... --via y
  implied trace --db ./implied.db 0192f6e4-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Via, "via", "", "only show derivations through this variable")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
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

	result, err := buildTrace(ctx, st, runID, opts.Via)
	if errors.Is(err, store.ErrRunNotFound) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("%s: run %s", ErrCodeRunNotFound, runID), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to read run", err)
	}

	// Output results
	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return formatter.Encode(CLIResponse{Status: "ok", Data: result, RunID: runID})
	}

	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTrace reads a run and converts it to a trace, optionally keeping
// only derivations through via.
func buildTrace(ctx context.Context, st *store.Store, runID, via string) (TraceResult, error) {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return TraceResult{}, err
	}

	result := TraceResult{
		RunID:    run.ID,
		SetName:  run.SetName,
		Inputs:   run.Inputs,
		Timeline: []TraceStep{},
		Stats: TraceStats{
			Inputs:         len(run.Inputs),
			Derived:        len(run.Derivations),
			Rounds:         run.Rounds,
			Contradictions: len(run.Contradictions),
			Satisfiable:    run.Satisfiable,
		},
	}
	for _, d := range run.Derivations {
		if via != "" && d.Via != via {
			continue
		}
		result.Timeline = append(result.Timeline, TraceStep{
			Seq:       d.Seq,
			Round:     d.Round,
			Via:       d.Via,
			Predicate: d.Predicate,
		})
	}
	for _, c := range run.Contradictions {
		origin := "input"
		if c.Derived {
			origin = "derived"
		}
		result.Contradictions = append(result.Contradictions,
			fmt.Sprintf("%s %s contradicts %s", origin, c.Incoming, c.Existing))
	}
	return result, nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Set: %s\n", result.SetName)
	fmt.Fprintf(w, "Status: %s\n", satisfiableStatus(result.Stats.Satisfiable))
	fmt.Fprintln(w)

	// Inputs section
	fmt.Fprintln(w, "=== Inputs ===")
	for _, in := range result.Inputs {
		fmt.Fprintf(w, "  %s\n", in)
	}
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no derivations)")
	} else {
		for _, step := range result.Timeline {
			if verbose {
				fmt.Fprintf(w, "  [%d] %s (round %d, via %s)\n", step.Seq, step.Predicate, step.Round, step.Via)
			} else {
				fmt.Fprintf(w, "  [%d] %s via %s\n", step.Seq, step.Predicate, step.Via)
			}
		}
	}
	fmt.Fprintln(w)

	if len(result.Contradictions) > 0 {
		fmt.Fprintln(w, "=== Contradictions ===")
		for _, c := range result.Contradictions {
			fmt.Fprintf(w, "  %s\n", c)
		}
		fmt.Fprintln(w)
	}

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Inputs:         %d\n", result.Stats.Inputs)
	fmt.Fprintf(w, "  Derived:        %d\n", result.Stats.Derived)
	fmt.Fprintf(w, "  Rounds:         %d\n", result.Stats.Rounds)
	fmt.Fprintf(w, "  Contradictions: %d\n", result.Stats.Contradictions)

	return nil
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

// satisfiableStatus returns a human-readable satisfiability status.
func satisfiableStatus(ok bool) string {
	if ok {
		return "Satisfiable"
	}
	return "Unsatisfiable"
}
