package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/subq/internal/compiler"
	"github.com/roach88/subq/internal/expr"
)

// ValidationIssue is a single problem found while validating models or queries.
type ValidationIssue struct {
	Source  string `json:"source,omitempty"` // query file, empty for models
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// QueryWarning is a lint warning for a query document, or a reference
// cycle between models.
type QueryWarning struct {
	Source  string `json:"source"` // query file or models path
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Models   int               `json:"models"`
	Queries  int               `json:"queries"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []QueryWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [models] [query.yaml...]",
		Short: "Validate models and query documents",
		Long: `Validate CUE model definitions and, optionally, query documents.

Models are checked for structural problems (missing fields, invalid types,
duplicate columns, dangling references) and reference cycles between
models are reported as warnings. Each query document is built and
compiled against the models; lint warnings such as ordering inside EXISTS
or scalar subqueries without LIMIT 1 are reported but do not fail validation.`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	modelsPath, queries, err := splitModelsArg(opts, args)
	if err != nil {
		return err
	}

	loadResult, loadErrors := LoadModels(modelsPath, LoadModeCollectAll)

	// Nothing loaded at all (path not found, no files, CUE syntax errors)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message, _ := describeError(loadErrors[0])
		return outputValidateError(formatter, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, modelsPath)

	result := ValidationResult{Models: len(loadResult.Models), Queries: len(queries)}
	for _, err := range loadErrors {
		result.Errors = append(result.Errors, issueFromError("", err))
	}
	for _, verr := range compiler.Validate(loadResult.Models) {
		result.Errors = append(result.Errors, ValidationIssue{
			Field:   verr.Field,
			Code:    verr.Code,
			Message: verr.Message,
		})
	}

	_, cycles := compiler.ReferenceOrder(loadResult.Models)
	for _, c := range cycles {
		if c.Level == "warning" {
			result.Warnings = append(result.Warnings, QueryWarning{Source: modelsPath, Message: c.Message})
		}
	}

	// Queries are only checked against a clean set of models.
	if len(result.Errors) == 0 {
		models := loadResult.Registry()
		c, err := opts.compiler(models)
		if err != nil {
			return err
		}
		for _, path := range queries {
			formatter.VerboseLog("Validating query: %s", path)
			q, err := loadQuery(path)
			if err != nil {
				result.Errors = append(result.Errors, issueFromError(path, err))
				continue
			}
			if _, err := c.Compile(q); err != nil {
				result.Errors = append(result.Errors, issueFromError(path, err))
				continue
			}
			for _, w := range expr.Validate(q).Warnings {
				result.Warnings = append(result.Warnings, QueryWarning{Source: path, Message: w})
			}
		}
	}

	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}

	result.Valid = true
	return outputValidateSuccess(formatter, result)
}

// issueFromError converts a load or compile error into a validation issue.
func issueFromError(source string, err error) ValidationIssue {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return ValidationIssue{
			Source:  source,
			Code:    loadErr.Code,
			Message: loadErr.Message,
			Line:    getLineFromCuePos(loadErr.Pos),
		}
	}
	code, message, _ := describeError(err)
	if kind := expr.Code(err); kind != expr.ErrCodeOther {
		message = fmt.Sprintf("%s: %s", kind, message)
	}
	return ValidationIssue{Source: source, Code: code, Message: message}
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

	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "warning: %s: %s\n", w.Source, w.Message)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d model(s) and %d query document(s) valid\n", result.Models, result.Queries)
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		switch {
		case err.Source != "":
			fmt.Fprintln(formatter.Writer, err.Source)
		case err.Line > 0:
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
