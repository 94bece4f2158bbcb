package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/implied/internal/compiler"
	"github.com/roach88/implied/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledSet is the canonical form of one predicate set.
type CompiledSet struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Predicates  []string `json:"predicates"`
	InputHash   string   `json:"input_hash"`
}

// CompilationResult holds the compiled predicate sets.
type CompilationResult struct {
	IRVersion string        `json:"ir_version"`
	Sets      []CompiledSet `json:"sets"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "Compile predicate sets to canonical form",
		Long: `Compile CUE or YAML predicate sets to canonical form.

Every predicate is normalized (constants on the right, canonical spacing)
and each set is labelled with the hash the run log uses to group runs
over the same input.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(cmd, opts.RootOptions)

	// Use shared loader with collect-all mode
	loadResult, loadErrors := LoadSets(path, LoadModeCollectAll)

	// Handle load errors (path not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d set file(s) in %s", loadResult.FileCount, path)

	// Handle compilation errors
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result, err := compileSets(loadResult.Sets, formatter)
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeSetsToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func compileSets(sets []*compiler.PredicateSet, formatter *OutputFormatter) (*CompilationResult, error) {
	result := &CompilationResult{IRVersion: ir.IRVersion, Sets: []CompiledSet{}}
	for _, set := range sets {
		formatter.VerboseLog("Compiling set: %s", set.Name)

		texts, err := ir.FormatAll(set.Predicates)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", set.Name, err)
		}
		hash, err := ir.PredicateSetHash(set.Predicates)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", set.Name, err)
		}
		result.Sets = append(result.Sets, CompiledSet{
			Name:        set.Name,
			Description: set.Description,
			Predicates:  texts,
			InputHash:   hash,
		})
	}
	return result, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d set(s)\n\n", len(result.Sets))

	for _, set := range result.Sets {
		fmt.Fprintf(formatter.Writer, "%s: %d predicate(s)\n", set.Name, len(set.Predicates))
		for _, p := range set.Predicates {
			fmt.Fprintf(formatter.Writer, "  %s\n", p)
		}
		fmt.Fprintf(formatter.Writer, "  hash: %s\n\n", set.InputHash)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical sets to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		// JSON format - use CLIResponse with first error
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		if err := formatter.Encode(response); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeSetsToFile writes the compilation result as indented JSON.
func writeSetsToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling sets: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
