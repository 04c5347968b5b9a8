package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/querysql"
)

// IDGenerator produces execution IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 execution IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Execution is one entry of the execution log.
type Execution struct {
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	QueryName   string `json:"query_name,omitempty"`
	StatementID string `json:"statement_id"`
	SQL         string `json:"sql"`
	Params      string `json:"params"` // canonical JSON array
	RowCount    int    `json:"row_count"`
	RowsHash    string `json:"rows_hash"`
}

// Run executes stmt and records the execution under name.
func (s *Store) Run(ctx context.Context, name string, stmt querysql.Statement) ([]ir.IRObject, Execution, error) {
	rows, err := s.Execute(ctx, stmt)
	if err != nil {
		return nil, Execution{}, err
	}
	exec, err := s.RecordExecution(ctx, name, stmt, rows)
	if err != nil {
		return nil, Execution{}, err
	}
	return rows, exec, nil
}

// RecordExecution appends an entry to the execution log. The entry's seq
// is one past the largest seq already logged.
func (s *Store) RecordExecution(ctx context.Context, name string, stmt querysql.Statement, rows []ir.IRObject) (Execution, error) {
	stmtID, err := stmt.ID()
	if err != nil {
		return Execution{}, fmt.Errorf("record execution: %w", err)
	}
	params := stmt.Params
	if params == nil {
		params = []any{}
	}
	paramsJSON, err := ir.MarshalCanonical(params)
	if err != nil {
		return Execution{}, fmt.Errorf("record execution: marshal params: %w", err)
	}
	rowsHash, err := ir.RowsHash(rows)
	if err != nil {
		return Execution{}, fmt.Errorf("record execution: %w", err)
	}

	exec := Execution{
		ID:          s.ids.Generate(),
		QueryName:   name,
		StatementID: stmtID,
		SQL:         stmt.SQL,
		Params:      string(paramsJSON),
		RowCount:    len(rows),
		RowsHash:    rowsHash,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO executions
		(id, seq, query_name, statement_id, sql, params, row_count, rows_hash)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ?
		FROM executions
		RETURNING seq
	`,
		exec.ID,
		exec.QueryName,
		exec.StatementID,
		exec.SQL,
		exec.Params,
		exec.RowCount,
		exec.RowsHash,
	).Scan(&exec.Seq)
	if err != nil {
		return Execution{}, fmt.Errorf("record execution: %w", err)
	}
	return exec, nil
}

// ReadExecutions returns logged executions in seq order. A non-empty
// statementID restricts the result to that statement.
//
// Returns an empty slice (not nil) if nothing has been logged.
func (s *Store) ReadExecutions(ctx context.Context, statementID string) ([]Execution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, query_name, statement_id, sql, params, row_count, rows_hash
		FROM executions
		WHERE ? = '' OR statement_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, statementID, statementID)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	execs := []Execution{}
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.Seq, &e.QueryName, &e.StatementID, &e.SQL, &e.Params, &e.RowCount, &e.RowsHash); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return execs, nil
}
