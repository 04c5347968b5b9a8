package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/subq/internal/config"
	"github.com/roach88/subq/internal/expr"
	"github.com/roach88/subq/internal/querysql"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Dialect    string // "" means the configured dialect, then sqlite
	ConfigPath string

	// Config is loaded before any subcommand runs. Nil when a subcommand
	// is executed on its own, as in tests.
	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the subq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "subq",
		Short: "subq - correlated subquery compiler",
		Long: `Compile query documents with correlated subqueries to SQL.

Models are defined in CUE, queries in YAML. Subqueries refer to the
enclosing query with outer references and compile to parameterized SQL
for SQLite, PostgreSQL or MySQL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Config = cfg
			if !cmd.Flags().Changed("dialect") && cfg.Dialect != "" {
				opts.Dialect = cfg.Dialect
			}
			if _, err := querysql.DialectByName(opts.Dialect); err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}

			setupLogging(opts, cmd.ErrOrStderr())
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (sqlite|postgres|mysql)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+config.FileName+")")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setupLogging installs a text slog handler writing to w. Verbose mode
// lowers the level to debug.
func setupLogging(opts *RootOptions, w io.Writer) {
	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// cfg returns the loaded configuration, or an empty one.
func (o *RootOptions) cfg() *config.Config {
	if o.Config == nil {
		return &config.Config{}
	}
	return o.Config
}

// dialect resolves the dialect flag.
func (o *RootOptions) dialect() (querysql.Dialect, error) {
	return querysql.DialectByName(o.Dialect)
}

// compiler builds a query compiler for models using the global options.
func (o *RootOptions) compiler(models expr.Models) (*querysql.Compiler, error) {
	d, err := o.dialect()
	if err != nil {
		return nil, err
	}
	c := querysql.NewCompiler(models, d)
	c.StableOrdering = o.cfg().StableOrdering
	return c, nil
}

// splitModelsArg returns the models path and the remaining arguments.
// The first argument names the models when it is a directory or a .cue
// file; otherwise the configured models directory is used.
func splitModelsArg(opts *RootOptions, args []string) (string, []string, error) {
	if len(args) > 0 {
		if info, err := os.Stat(args[0]); err == nil && (info.IsDir() || filepath.Ext(args[0]) == ".cue") {
			return args[0], args[1:], nil
		}
	}
	if dir := opts.cfg().Models; dir != "" {
		return dir, args, nil
	}
	return "", nil, NewExitError(ExitCommandError, "no models directory given and none configured")
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
