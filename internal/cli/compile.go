package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/subq/internal/expr"
	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileResult holds a compiled statement and its lint warnings.
type CompileResult struct {
	Dialect     string            `json:"dialect"`
	SQL         string            `json:"sql"`
	Params      []any             `json:"params"`
	Columns     []querysql.Column `json:"columns"`
	StatementID string            `json:"statement_id"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [models] <query.yaml>",
		Short: "Compile a query document to SQL",
		Long: `Compile a YAML query document to SQL and ordered parameters.

Models are read from a CUE directory or file given as the first argument,
or from the models directory in subq.toml. Subqueries are compiled with
outer references resolved against their enclosing query; parameters are
listed in the order their placeholders appear.

Examples:
  subq compile ./models queries/hot_title.yaml
  subq compile --dialect postgres ./models queries/hot_title.yaml
  subq compile ./models queries/hot_title.yaml --output hot_title.json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	modelsPath, rest, err := splitModelsArg(opts.RootOptions, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return NewExitError(ExitCommandError, "expected exactly one query file")
	}

	result, err := compileQueryFile(opts.RootOptions, formatter, modelsPath, rest[0])
	if err != nil {
		return outputCompileError(formatter, err)
	}

	if opts.Output != "" {
		if err := writeResultToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, &LoadError{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)})
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// compileQueryFile loads models and a query document and compiles it.
func compileQueryFile(opts *RootOptions, formatter *OutputFormatter, modelsPath, queryPath string) (*CompileResult, error) {
	models, err := loadRegistry(modelsPath)
	if err != nil {
		return nil, err
	}
	formatter.VerboseLog("Loaded %d model(s) from %s", len(models.Models()), modelsPath)

	q, err := loadQuery(queryPath)
	if err != nil {
		return nil, err
	}

	c, err := opts.compiler(models)
	if err != nil {
		return nil, err
	}
	formatter.VerboseLog("Compiling %s for %s", queryPath, c.Dialect.Name())

	stmt, err := c.Compile(q)
	if err != nil {
		return nil, err
	}
	id, err := stmt.ID()
	if err != nil {
		return nil, err
	}

	params := stmt.Params
	if params == nil {
		params = []any{}
	}
	return &CompileResult{
		Dialect:     c.Dialect.Name(),
		SQL:         stmt.SQL,
		Params:      params,
		Columns:     stmt.Columns,
		StatementID: id,
		Warnings:    expr.Validate(q).Warnings,
	}, nil
}

// outputCompileSuccess outputs a compiled statement.
func outputCompileSuccess(formatter *OutputFormatter, result *CompileResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.encode(CLIResponse{
			Status:      "ok",
			Data:        result,
			StatementID: result.StatementID,
		})
	}

	params, err := ir.MarshalCanonical(result.Params)
	if err != nil {
		return err
	}
	fmt.Fprintln(formatter.Writer, result.SQL)
	fmt.Fprintf(formatter.Writer, "\nParams: %s\n", params)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "Warning: %s\n", w)
	}
	formatter.VerboseLog("Statement ID: %s", result.StatementID)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote statement to %s\n", outputFile)
	}

	return nil
}

// outputCompileError reports a load or compilation failure. Both are
// command-level errors (exit code 2).
func outputCompileError(formatter *OutputFormatter, err error) error {
	code, message, details := describeError(err)
	_ = formatter.Error(code, message, details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// describeError extracts an error code, message and details from an error.
// Query compilation errors carry their kind as details.
func describeError(err error) (string, string, any) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message, nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return ErrCodeGeneric, exitErr.Error(), nil
	}
	return ErrCodeQueryCompile, err.Error(), map[string]string{"kind": string(expr.Code(err))}
}

// writeResultToFile writes the compile result as indented JSON.
func writeResultToFile(result *CompileResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
