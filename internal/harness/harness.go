package harness

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/subq/internal/compiler"
	"github.com/roach88/subq/internal/expr"
	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/querydoc"
	"github.com/roach88/subq/internal/querysql"
	"github.com/roach88/subq/internal/schema"
	"github.com/roach88/subq/internal/store"
	"github.com/roach88/subq/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario against a fresh in-memory database.
type Harness struct {
	models   *schema.Registry
	compiler *querysql.Compiler
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger used while running a scenario.
// Defaults to a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load and validate the CUE models
// 2. Build and compile the query document
// 3. Seed a fresh in-memory database and execute (sqlite only)
// 4. Evaluate expectations
//
// The returned error covers problems with the scenario itself (models
// that fail to load, seed rows that cannot be inserted). Compilation
// failures are results, checked against expect.error.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	models, err := compiler.LoadModels(scenario.Models)
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}

	dialect, err := querysql.DialectByName(scenario.Dialect)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		models:   models,
		compiler: querysql.NewCompiler(models, dialect),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	q, err := querydoc.Build(&scenario.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	result.Warnings = append(result.Warnings, expr.Validate(q).Warnings...)

	stmt, err := h.compiler.Compile(q)
	if err != nil {
		code := string(expr.Code(err))
		result.CompileError = err.Error()
		result.ErrorCode = code
		h.logger.Info("compilation failed", "scenario", scenario.Name, "code", code, "error", err)
		for _, msg := range EvaluateCompileError(err, code, scenario.Expect) {
			result.AddError(msg)
		}
		return result, nil
	}
	result.SQL = stmt.SQL
	result.Params = stmt.Params
	h.logger.Info("compiled",
		"scenario", scenario.Name,
		"sql", stmt.SQL,
		"params", len(stmt.Params),
	)

	if h.compiler.Dialect.Name() == "sqlite" && !scenario.Expect.expectsFailure() {
		rows, err := h.execute(ctx, scenario.Seed, stmt)
		if err != nil {
			return nil, err
		}
		result.Rows = rows
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

// execute seeds a fresh in-memory database and runs stmt against it.
func (h *Harness) execute(ctx context.Context, seed []SeedBlock, stmt querysql.Statement) ([]ir.IRObject, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequentialIDGenerator("")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.CreateTables(ctx, h.models); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := Seed(ctx, st, h.models, seed); err != nil {
		return nil, err
	}
	for _, block := range seed {
		h.logger.Info("seeded", "model", block.Model, "rows", len(block.Rows))
	}

	rows, exec, err := st.Run(ctx, "", stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}
	h.logger.Info("executed", "statement_id", exec.StatementID, "rows", exec.RowCount, "rows_hash", exec.RowsHash)
	return rows, nil
}

// Seed inserts each block's rows into its model's table. Blocks are
// inserted so that referenced models are filled first; blocks for the
// same model keep their order.
func Seed(ctx context.Context, st *store.Store, models *schema.Registry, seed []SeedBlock) error {
	ordered, _ := compiler.ReferenceOrder(models.Models())
	rank := make(map[string]int, len(ordered))
	for i, m := range ordered {
		rank[m.Name] = i
	}

	blocks := make([]int, len(seed))
	for i := range seed {
		blocks[i] = i
	}
	slices.SortStableFunc(blocks, func(a, b int) int {
		return cmp.Compare(rank[seed[a].Model], rank[seed[b].Model])
	})

	for _, i := range blocks {
		block := seed[i]
		m, err := models.Get(block.Model)
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		for j, raw := range block.Rows {
			row, err := convertRow(raw)
			if err != nil {
				return fmt.Errorf("seed[%d].rows[%d]: %w", i, j, err)
			}
			if err := st.Insert(ctx, m, row); err != nil {
				return fmt.Errorf("seed[%d].rows[%d]: %w", i, j, err)
			}
		}
	}
	return nil
}

// convertRow converts a YAML-decoded row to an IRObject.
func convertRow(raw map[string]any) (ir.IRObject, error) {
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, err
	}
	row, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("row must be an object, got %T", v)
	}
	return row, nil
}
