package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/implied/internal/compiler"
	"github.com/roach88/implied/internal/engine"
	"github.com/roach88/implied/internal/graph"
	"github.com/roach88/implied/internal/ir"
	"github.com/roach88/implied/internal/queryir"
	"github.com/roach88/implied/internal/querysql"
	"github.com/roach88/implied/internal/store"
)

// InferOptions holds flags for the infer command.
type InferOptions struct {
	*RootOptions
	File       string
	Where      string // optional - a WHERE clause to extract predicates from
	Set        string // optional - only this set
	Database   string // optional - log runs here
	MaxDerived int
	MaxRounds  int
	SQL        bool   // print the augmented WHERE clause
	Table      string // with SQL, render a full SELECT against this table

	// RunIDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator store.RunIDGenerator
}

// SQLOutput is the rendered filter for a set.
type SQLOutput struct {
	Query  string `json:"query"`
	Params []any  `json:"params,omitempty"`
}

// InferResult is the outcome for one predicate set.
type InferResult struct {
	Set            string     `json:"set"`
	RunID          string     `json:"run_id,omitempty"`
	Inputs         []string   `json:"inputs"`
	Derived        []string   `json:"derived"`
	Contradictions []string   `json:"contradictions,omitempty"`
	Skipped        []string   `json:"skipped,omitempty"`
	Ignored        []string   `json:"ignored,omitempty"` // WHERE conjuncts outside the fragment
	Rounds         int        `json:"rounds"`
	Satisfiable    bool       `json:"satisfiable"`
	SQL            *SQLOutput `json:"sql,omitempty"`
}

// NewInferCommand creates the infer command.
func NewInferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InferOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "infer [predicate...]",
		Short: "Derive implied predicates",
		Long: `Derive every predicate implied by a set of comparison predicates.

Predicates come from positional arguments, a CUE/YAML set file, or a
WHERE clause (--where). Conjuncts of the clause that are not ordering
comparisons are reported and left out of inference.
With --db every set is logged as a run that can be replayed later.

Exit codes:
  0 - Every set is satisfiable
  1 - A set is unsatisfiable or a quota was exceeded
  2 - Command error (bad predicate text, file not found, etc.)

Examples:
  implied infer "x < y" "y < 10"
  implied infer --file ./sets/orders.cue --set orders
  implied infer --file ./sets --db ./implied.db
  implied infer --file ./sets/orders.yaml --sql --table orders
  implied infer --where "a < b AND b < 10 AND (c = 1 OR c = 2)" --sql --table t`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "predicate set file or directory")
	cmd.Flags().StringVar(&opts.Where, "where", "", "WHERE clause to extract predicates from")
	cmd.Flags().StringVar(&opts.Set, "set", "", "only infer the named set")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite run log")
	cmd.Flags().IntVar(&opts.MaxDerived, "max-derived", engine.DefaultMaxDerived, "derived predicate quota (0 disables)")
	cmd.Flags().IntVar(&opts.MaxRounds, "max-rounds", engine.DefaultMaxRounds, "closure round quota (0 disables)")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "print the augmented SQL filter")
	cmd.Flags().StringVar(&opts.Table, "table", "", "with --sql, render a SELECT against this table")

	return cmd
}

func runInfer(opts *InferOptions, args []string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(cmd, opts.RootOptions)
	logger := formatter.Logger()

	var (
		sets   []*compiler.PredicateSet
		filter queryir.Expr
		notes  []string
		err    error
	)
	if opts.Where != "" {
		sets, filter, notes, err = whereInputs(opts, args)
	} else {
		sets, err = inferInputs(opts, args)
	}
	if err != nil {
		return formatter.Fail(err)
	}
	for _, n := range notes {
		logger.Warn("conjunct ignored", "reason", n)
	}

	var st *store.Store
	if opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to open database", err))
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	gen := opts.RunIDGenerator
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	runOpts := store.RunOptions{MaxDerived: opts.MaxDerived, MaxRounds: opts.MaxRounds}
	engineOpts := append(runOpts.EngineOptions(), engine.WithLogger(logger))

	results := make([]InferResult, 0, len(sets))
	unsatisfiable := 0
	for _, set := range sets {
		logger.Info("inferring", "set", set.Name, "predicates", len(set.Predicates))

		setOpts := engineOpts
		if opts.Verbose {
			setOpts = append(slices.Clip(engineOpts), engine.WithGraphHook(func(g *graph.Graph) {
				fmt.Fprintf(formatter.GetErrWriter(), "graph %s:\n", set.Name)
				if dumpErr := g.Dump(formatter.GetErrWriter()); dumpErr != nil {
					logger.Error("graph dump failed", "error", dumpErr)
				}
			}))
		}
		res, err := engine.Infer(set.Predicates, setOpts...)
		if err != nil && !engine.IsContradiction(err) {
			return formatter.Fail(WrapExitError(ExitFailure, ErrCodeQuota+": "+set.Name, err))
		}

		out := InferResult{
			Set:         set.Name,
			Inputs:      set.Texts(),
			Derived:     res.Derived,
			Rounds:      res.Rounds,
			Satisfiable: res.Satisfiable(),
			Ignored:     notes,
		}
		if out.Derived == nil {
			out.Derived = []string{}
		}
		for _, c := range res.Contradictions {
			out.Contradictions = append(out.Contradictions, c.Error())
		}
		for _, s := range res.Skipped {
			out.Skipped = append(out.Skipped, s.Error())
		}
		if !out.Satisfiable {
			unsatisfiable++
		}

		if opts.SQL {
			sqlOut, err := renderSQL(opts.Table, filter, set.Predicates, res.Predicates())
			if err != nil {
				return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeGeneric+": render SQL", err))
			}
			out.SQL = sqlOut
		}

		if st != nil {
			run, err := store.NewRun(gen.Generate(), set.Name, set.Predicates, res, runOpts)
			if err != nil {
				return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeDatabase+": build run", err))
			}
			if _, err := st.WriteRun(parentCtx, run); err != nil {
				return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to log run", err))
			}
			out.RunID = run.ID
			logger.Info("run logged", "run_id", run.ID, "set", set.Name)
		}

		results = append(results, out)
	}

	if err := outputInferResults(formatter, results); err != nil {
		return err
	}
	if unsatisfiable > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d unsatisfiable set(s)", ErrCodeContradiction, unsatisfiable))
	}
	return nil
}

// inferInputs resolves the sets to run from args or --file.
func inferInputs(opts *InferOptions, args []string) ([]*compiler.PredicateSet, error) {
	if len(args) > 0 && opts.File != "" {
		return nil, NewExitError(ExitCommandError, ErrCodeGeneric+": use either predicate arguments or --file, not both")
	}

	if len(args) > 0 {
		preds, errs := compiler.ParseAll(args)
		if len(errs) > 0 {
			return nil, WrapExitError(ExitCommandError, ErrCodeInvalidPredicate+": invalid predicate", errors.Join(errs...))
		}
		set := &compiler.PredicateSet{Name: "args", Predicates: preds, Sources: args}
		return []*compiler.PredicateSet{set}, nil
	}

	if opts.File == "" {
		return nil, NewExitError(ExitCommandError, ErrCodeGeneric+": no predicates given (pass predicates or --file)")
	}

	loadResult, loadErrors := LoadSets(opts.File, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code := ErrCodeGeneric
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			code = loadErr.Code
		}
		return nil, WrapExitError(ExitCommandError, code+": failed to load sets", loadErrors[0])
	}

	if opts.Set == "" {
		return loadResult.Sets, nil
	}
	set, ok := loadResult.Lookup(opts.Set)
	if !ok {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: set %q not found in %s", ErrCodeSetNotFound, opts.Set, opts.File))
	}
	return []*compiler.PredicateSet{set}, nil
}

// whereInputs parses --where into a single set named "where". It also
// returns the parsed tree and a note for every conjunct left out.
func whereInputs(opts *InferOptions, args []string) ([]*compiler.PredicateSet, queryir.Expr, []string, error) {
	if len(args) > 0 || opts.File != "" {
		return nil, nil, nil, NewExitError(ExitCommandError, ErrCodeGeneric+": --where cannot be combined with predicate arguments or --file")
	}

	tree, err := queryir.ParseWhere(opts.Where)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, ErrCodeInvalidPredicate+": invalid WHERE clause", err)
	}

	report := queryir.Validate(tree)
	preds, _ := queryir.Extract(tree)
	if len(preds) == 0 {
		return nil, nil, nil, NewExitError(ExitCommandError,
			fmt.Sprintf("%s: WHERE clause has no usable comparisons (%d conjunct(s))", ErrCodeInvalidPredicate, report.Conjuncts))
	}

	set := &compiler.PredicateSet{Name: "where", Predicates: preds}
	set.Sources = set.Texts()
	return []*compiler.PredicateSet{set}, tree, report.Warnings, nil
}

// renderSQL renders inputs plus derived predicates as a WHERE clause, or
// as a full SELECT when table is set. A non-nil filter is the host's
// original tree and is rendered in place of inputs, OR branches included.
func renderSQL(table string, filter queryir.Expr, inputs, derived []*ir.Predicate) (*SQLOutput, error) {
	c := querysql.NewSQLCompiler()

	var (
		query  string
		params []any
		err    error
	)
	switch {
	case table != "":
		if filter == nil {
			filter = queryir.Augment(nil, inputs)
		}
		query, params, err = c.CompileSelect(queryir.Select{From: table, Filter: filter}, derived)
	case filter != nil:
		query, params, err = c.CompileExpr(queryir.Augment(filter, derived))
	default:
		all := make([]*ir.Predicate, 0, len(inputs)+len(derived))
		all = append(all, inputs...)
		all = append(all, derived...)
		query, params, err = c.CompileWhere(all)
	}
	if err != nil {
		return nil, err
	}
	return &SQLOutput{Query: query, Params: params}, nil
}

func outputInferResults(formatter *OutputFormatter, results []InferResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: results}
		for _, r := range results {
			if !r.Satisfiable {
				response.Status = "error"
				response.Error = &CLIError{
					Code:    ErrCodeContradiction,
					Message: fmt.Sprintf("set %s is unsatisfiable", r.Set),
				}
				break
			}
		}
		if len(results) == 1 {
			response.RunID = results[0].RunID
		}
		return formatter.Encode(response)
	}

	w := formatter.Writer
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		status := "✓"
		if !r.Satisfiable {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s: %d input(s), %d derived, %d round(s)\n", status, r.Set, len(r.Inputs), len(r.Derived), r.Rounds)
		if r.RunID != "" {
			fmt.Fprintf(w, "  run: %s\n", r.RunID)
		}
		for _, d := range r.Derived {
			fmt.Fprintf(w, "  + %s\n", d)
		}
		for _, c := range r.Contradictions {
			fmt.Fprintf(w, "  ! %s\n", c)
		}
		for _, s := range r.Skipped {
			fmt.Fprintf(w, "  skipped: %s\n", s)
		}
		for _, n := range r.Ignored {
			fmt.Fprintf(w, "  ignored: %s\n", n)
		}
		if r.SQL != nil {
			fmt.Fprintf(w, "  sql: %s\n", r.SQL.Query)
			if len(r.SQL.Params) > 0 {
				fmt.Fprintf(w, "  params: %v\n", r.SQL.Params)
			}
		}
	}
	return nil
}
