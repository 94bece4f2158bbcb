package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/implied/internal/compiler"
)

// LoadMode controls how errors are handled during set loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the predicate sets loaded from a file or directory.
type LoadResult struct {
	Sets      []*compiler.PredicateSet
	FileCount int // Number of set files found
}

// Lookup returns the set with the given name.
func (r *LoadResult) Lookup(name string) (*compiler.PredicateSet, bool) {
	for _, s := range r.Sets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// LoadError represents an error that occurred during set loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	File    string    // Source file when Pos is unavailable
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSets loads predicate sets from a .cue/.yaml/.yml file or from every
// such file under a directory.
//
// CUE files declare sets under a top-level "set" struct:
//
//	set: orders: {
//		description: "order window"
//		predicates: ["placed < shipped", "shipped <= 30"]
//	}
//
// YAML files hold a single set; an omitted name defaults to the file name.
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadSets(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing path: %v", err)}}
	}

	var files []string
	if info.IsDir() {
		files, err = FindSetFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no .cue or .yaml files found in %s", path)}}
		}
	} else {
		if !isSetFile(path) {
			return nil, []error{&LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported file type: %s", path)}}
		}
		files = []string{path}
	}

	ctx := cuecontext.New()
	result := &LoadResult{FileCount: len(files)}
	var errs []error
	for _, file := range files {
		sets, fileErrs := loadFile(ctx, file)
		result.Sets = append(result.Sets, sets...)
		errs = append(errs, fileErrs...)
		if len(errs) > 0 && mode == LoadModeFailFast {
			return result, errs[:1]
		}
	}

	if len(result.Sets) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoSets, Message: "no predicate sets found"})
	}

	return result, errs
}

// loadFile compiles every set in one file.
func loadFile(ctx *cue.Context, path string) ([]*compiler.PredicateSet, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading file: %v", err), File: path}}
	}

	if filepath.Ext(path) != ".cue" {
		set, err := compiler.CompileSetYAML(data)
		if err != nil {
			return nil, []error{convertCompileError(err, path)}
		}
		if set.Name == "" {
			base := filepath.Base(path)
			set.Name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		return []*compiler.PredicateSet{set}, nil
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		loadErr := convertCompileError(err, path)
		loadErr.Code = ErrCodeBuildFailed
		return nil, []error{loadErr}
	}

	setsVal := value.LookupPath(cue.ParsePath("set"))
	if !setsVal.Exists() {
		return nil, nil
	}
	iter, err := setsVal.Fields()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating sets: %v", err), File: path}}
	}

	var (
		sets []*compiler.PredicateSet
		errs []error
	)
	for iter.Next() {
		set, err := compiler.CompileSet(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "set."+iter.Label()))
			continue
		}
		sets = append(sets, set)
	}
	return sets, errs
}

// FindSetFiles walks the directory and returns all .cue, .yaml and .yml
// file paths in lexical order.
func FindSetFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && isSetFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func isSetFile(path string) bool {
	switch filepath.Ext(path) {
	case ".cue", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		loadErr := &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
		if !compileErr.Pos.IsValid() {
			loadErr.File = context
			loadErr.Message = compileErr.Field + ": " + compileErr.Message
		}
		return loadErr
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: err.Error(),
		File:    context,
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No set files found
	ErrCodeLoadFailed  = "E004" // File read failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeUnsupported = "E008" // Unsupported file type
	ErrCodeNoSets      = "E009" // Files contain no predicate sets

	// Runtime errors
	ErrCodeContradiction = "E020" // Set is unsatisfiable
	ErrCodeQuota         = "E021" // Closure quota exceeded
	ErrCodeRunNotFound   = "E022" // Run ID not in the log
	ErrCodeDatabase      = "E023" // Run log open/read/write failed
	ErrCodeSetNotFound   = "E024" // --set names no loaded set
	ErrCodeReplayDiffers = "E025" // Replay output differs from the log
	ErrCodeTestFailed    = "E026" // One or more scenarios failed

	// Set loading errors
	ErrCodeInvalidPredicate  = "E110" // Predicate entry does not parse
	ErrCodeMissingPredicates = "E111" // Set has no predicates field
	ErrCodeInvalidSetField   = "E112" // name/description has the wrong type
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "predicates":
		return ErrCodeMissingPredicates
	case strings.HasPrefix(field, "predicates["):
		return ErrCodeInvalidPredicate
	case field == "name", field == "description", field == "cue":
		return ErrCodeInvalidSetField
	default:
		return ErrCodeGeneric
	}
}
