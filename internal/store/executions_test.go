package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/subq/internal/expr"
	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/querysql"
)

func TestRun_RecordsExecution(t *testing.T) {
	s := createTestStore(t)
	reg := seedLibrary(t, s)
	ctx := context.Background()

	stmt, err := querysql.NewCompiler(reg, querysql.SQLite{}).Compile(
		expr.From("Book").Filter(expr.Gt("pages", 300)).Values("title").OrderBy("id"))
	require.NoError(t, err)

	rows, exec, err := s.Run(ctx, "long_books", stmt)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	wantID, err := stmt.ID()
	require.NoError(t, err)
	wantHash, err := ir.RowsHash(rows)
	require.NoError(t, err)

	assert.Equal(t, "exec-1", exec.ID)
	assert.Equal(t, int64(1), exec.Seq)
	assert.Equal(t, "long_books", exec.QueryName)
	assert.Equal(t, wantID, exec.StatementID)
	assert.Equal(t, stmt.SQL, exec.SQL)
	assert.Equal(t, "[300]", exec.Params)
	assert.Equal(t, 2, exec.RowCount)
	assert.Equal(t, wantHash, exec.RowsHash)
}

func TestRecordExecution_SeqIncrements(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	stmt := querysql.Statement{SQL: "SELECT 1"}

	for i := 1; i <= 3; i++ {
		exec, err := s.RecordExecution(ctx, "", stmt, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(i), exec.Seq)
		assert.Equal(t, "[]", exec.Params)
	}
}

func TestReadExecutions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := querysql.Statement{SQL: "SELECT ?", Params: []any{int64(1)}}
	b := querysql.Statement{SQL: "SELECT ?", Params: []any{int64(2)}}
	_, err := s.RecordExecution(ctx, "a", a, nil)
	require.NoError(t, err)
	_, err = s.RecordExecution(ctx, "b", b, nil)
	require.NoError(t, err)
	_, err = s.RecordExecution(ctx, "a", a, nil)
	require.NoError(t, err)

	all, err := s.ReadExecutions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, int64(i+1), e.Seq)
	}

	aID, err := a.ID()
	require.NoError(t, err)
	onlyA, err := s.ReadExecutions(ctx, aID)
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, []string{"exec-1", "exec-3"}, []string{onlyA[0].ID, onlyA[1].ID})
}

func TestReadExecutions_Empty(t *testing.T) {
	s := createTestStore(t)

	execs, err := s.ReadExecutions(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, execs)
	assert.Empty(t, execs)
}

func TestUUIDv7Generator(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-7[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	gen := UUIDv7Generator{}

	first := gen.Generate()
	second := gen.Generate()
	assert.Regexp(t, pattern, first)
	assert.NotEqual(t, first, second)
}
