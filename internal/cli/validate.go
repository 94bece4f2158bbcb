package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/implied/internal/compiler"
)

// SetValidation holds the findings for one predicate set.
type SetValidation struct {
	Name     string                     `json:"name"`
	Count    int                        `json:"predicates"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Sets   []SetValidation            `json:"sets,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate predicate sets without running inference",
		Long: `Validate CUE or YAML predicate sets without running inference.

Checks that every entry parses and reports duplicate predicates, strict
self relations and ordering cycles. Duplicates and equality cycles are
warnings; everything else fails validation.

Exit codes:
  0 - All sets valid (warnings allowed)
  1 - Validation failed
  2 - Command error (path not found, unreadable file, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(cmd, opts)

	loadResult, loadErrors := LoadSets(path, LoadModeCollectAll)

	// Handle load errors (path not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d set file(s) in %s", loadResult.FileCount, path)

	result := validateAll(loadResult, formatter)

	// Add any load errors as validation errors
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			result.Errors = append(result.Errors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Error(),
				Code:    loadErr.Code,
				Line:    getLineFromCuePos(loadErr.Pos),
			})
		}
	}
	result.Valid = len(result.Errors) == 0
	for _, s := range result.Sets {
		if len(s.Errors) > 0 {
			result.Valid = false
		}
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateAll validates every loaded set, splitting warnings from errors.
func validateAll(loadResult *LoadResult, formatter *OutputFormatter) ValidationResult {
	var result ValidationResult
	for _, set := range loadResult.Sets {
		formatter.VerboseLog("Validating set: %s (%d predicates)", set.Name, len(set.Predicates))

		sv := SetValidation{Name: set.Name, Count: len(set.Predicates)}
		for _, ve := range compiler.Validate(set) {
			if ve.IsWarning() {
				sv.Warnings = append(sv.Warnings, ve)
			} else {
				sv.Errors = append(sv.Errors, ve)
			}
		}
		result.Sets = append(result.Sets, sv)
	}
	return result
}

// getLineFromCuePos extracts line number from a token.Pos.
func getLineFromCuePos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, s := range result.Sets {
		printWarnings(formatter, s)
	}
	fmt.Fprintf(formatter.Writer, "✓ All sets valid (%d set(s))\n", len(result.Sets))
	return nil
}

func printWarnings(formatter *OutputFormatter, s SetValidation) {
	for _, w := range s.Warnings {
		fmt.Fprintf(formatter.Writer, "warning: %s: %s: %s\n", s.Name, w.Code, w.Message)
	}
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	var all []compiler.ValidationError
	all = append(all, result.Errors...)
	for _, s := range result.Sets {
		all = append(all, s.Errors...)
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    all[0].Code,
				Message: all[0].Message,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(all)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range result.Errors {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}
	for _, s := range result.Sets {
		printWarnings(formatter, s)
		for _, err := range s.Errors {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", s.Name, err.Code, err.Message)
		}
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(all)))
}
