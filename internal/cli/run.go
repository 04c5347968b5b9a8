package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/subq/internal/harness"
	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Name     string
	SeedFile string

	// IDGenerator allows overriding the execution ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// RunResult holds the rows returned by a query and its execution log entry.
type RunResult struct {
	Rows      []ir.IRObject   `json:"rows"`
	Execution store.Execution `json:"execution"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [models] <query.yaml>",
		Short: "Execute a query against a SQLite database",
		Long: `Compile a query document and execute it against a SQLite database.

Tables for every model are created if they don't exist. Rows from a seed
file are inserted before the query runs. Each execution is appended to the
database's execution log together with its statement ID and a hash of the
returned rows.

Example:
  subq run --db ./library.db ./models queries/hot_title.yaml
  subq run --db :memory: --seed seed.yaml ./models queries/hot_title.yaml`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to run.database in subq.toml)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "name recorded in the execution log (defaults to the query file name)")
	cmd.Flags().StringVar(&opts.SeedFile, "seed", "", "YAML file of rows to insert before running")

	return cmd
}

func runQuery(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	modelsPath, rest, err := splitModelsArg(opts.RootOptions, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return NewExitError(ExitCommandError, "expected exactly one query file")
	}
	queryPath := rest[0]

	database := opts.Database
	if database == "" {
		database = opts.cfg().Run.Database
	}
	if database == "" {
		return NewExitError(ExitCommandError, "no database given: use --db or set run.database in the config file")
	}

	d, err := opts.dialect()
	if err != nil {
		return err
	}
	if d.Name() != "sqlite" {
		return NewExitError(ExitCommandError, fmt.Sprintf("run requires the sqlite dialect, got %s", d.Name()))
	}

	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(queryPath), filepath.Ext(queryPath))
	}

	models, err := loadRegistry(modelsPath)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	q, err := loadQuery(queryPath)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	c, err := opts.compiler(models)
	if err != nil {
		return err
	}
	stmt, err := c.Compile(q)
	if err != nil {
		return outputCompileError(formatter, err)
	}
	slog.Debug("compiled query", "query", queryPath, "params", len(stmt.Params))

	var seed []harness.SeedBlock
	if opts.SeedFile != "" {
		seed, err = harness.LoadSeed(opts.SeedFile)
		if err != nil {
			return outputRunError(formatter, ErrCodeQueryLoad, err)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	idGen := opts.IDGenerator
	if idGen == nil {
		idGen = store.UUIDv7Generator{}
	}

	slog.Debug("opening database", "path", database)
	st, err := store.Open(database, store.WithIDGenerator(idGen))
	if err != nil {
		return outputRunError(formatter, ErrCodeDatabase, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := st.CreateTables(ctx, models); err != nil {
		return outputRunError(formatter, ErrCodeDatabase, err)
	}
	if len(seed) > 0 {
		if err := harness.Seed(ctx, st, models, seed); err != nil {
			return outputRunError(formatter, ErrCodeDatabase, err)
		}
		slog.Debug("seeded database", "blocks", len(seed))
	}

	rows, exec, err := st.Run(ctx, name, stmt)
	if err != nil {
		return outputRunError(formatter, ErrCodeExecute, err)
	}
	slog.Info("executed query", "name", name, "rows", exec.RowCount, "execution_id", exec.ID)

	return outputRunSuccess(formatter, RunResult{Rows: rows, Execution: exec})
}

// outputRunSuccess prints the returned rows, one canonical JSON object per line.
func outputRunSuccess(formatter *OutputFormatter, result RunResult) error {
	if formatter.Format == "json" {
		return formatter.encode(CLIResponse{
			Status:      "ok",
			Data:        result,
			StatementID: result.Execution.StatementID,
		})
	}

	for _, row := range result.Rows {
		data, err := ir.MarshalCanonical(row)
		if err != nil {
			return err
		}
		fmt.Fprintln(formatter.Writer, string(data))
	}
	fmt.Fprintf(formatter.Writer, "(%d row(s), execution %s)\n", result.Execution.RowCount, result.Execution.ID)
	return nil
}

// outputRunError reports a database failure. These are runtime failures
// (exit code 1).
func outputRunError(formatter *OutputFormatter, code string, err error) error {
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, fmt.Sprintf("%s: %s", code, err.Error()), err)
}
