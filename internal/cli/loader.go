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

	"github.com/roach88/subq/internal/compiler"
	"github.com/roach88/subq/internal/expr"
	"github.com/roach88/subq/internal/querydoc"
	"github.com/roach88/subq/internal/schema"
)

// LoadMode controls how errors are handled during model loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading models from a directory.
type LoadResult struct {
	Models    []*schema.Model
	FileCount int // Number of CUE files found
}

// Registry returns the loaded models as a registry.
func (r *LoadResult) Registry() *schema.Registry {
	return schema.NewRegistry(r.Models...)
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModels loads and compiles CUE models from a directory or a single
// .cue file. A nil result means nothing could be loaded; otherwise the
// errors are per-model compile errors.
func LoadModels(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("models path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing models path: %v", err)}}
	}

	var (
		value     cue.Value
		fileCount int
	)
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(cueFiles) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
		fileCount = len(cueFiles)

		value, err = compiler.LoadDir(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}}
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}}
		}
		fileCount = 1
		value = cuecontext.New().CompileBytes(data, cue.Filename(path))
		if err := value.Err(); err != nil {
			return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
		}
	}

	result := &LoadResult{FileCount: fileCount}

	modelsVal := value.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: "no models found"}}
	}
	iter, err := modelsVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating models: %v", err)}}
	}

	var errs []error
	for iter.Next() {
		m, compileErr := compiler.CompileModel(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "model."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Models = append(result.Models, m)
	}

	if len(result.Models) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no models found"})
	}
	return result, errs
}

// loadRegistry loads and validates models, failing on the first problem.
func loadRegistry(path string) (*schema.Registry, error) {
	result, errs := LoadModels(path, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if verrs := compiler.Validate(result.Models); len(verrs) > 0 {
		return nil, &LoadError{Code: verrs[0].Code, Message: fmt.Sprintf("%s: %s", verrs[0].Field, verrs[0].Message)}
	}
	return result.Registry(), nil
}

// loadQuery reads a query document and builds it.
func loadQuery(path string) (*expr.Query, error) {
	doc, err := querydoc.Load(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeQueryLoad, Message: err.Error()}
	}
	q, err := querydoc.Build(doc)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeQueryBuild, Message: err.Error()}
	}
	return q, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Query errors
	ErrCodeQueryLoad    = "E201" // Query document unreadable or malformed
	ErrCodeQueryBuild   = "E202" // Query document describes an invalid query
	ErrCodeQueryCompile = "E203" // Query failed to compile

	// Execution errors
	ErrCodeDatabase = "E301" // Database could not be opened or prepared
	ErrCodeExecute  = "E302" // Statement failed to execute

	// Harness errors
	ErrCodeTestFailed = "E401" // One or more scenarios failed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "fields":
		return compiler.ErrModelNoFields
	case field == "type", strings.HasSuffix(field, ".type"):
		return compiler.ErrInvalidFieldType
	default:
		return ErrCodeGeneric
	}
}
