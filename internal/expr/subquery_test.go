package expr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingContext compiles nested queries to a placeholder and records
// what it was asked to compile.
type recordingContext struct {
	outer    *Scope
	models   Models
	compiled []*Query
}

func (c *recordingContext) Outer() *Scope  { return c.outer }
func (c *recordingContext) Models() Models { return c.models }

func (c *recordingContext) CompileSubquery(q *Query) (string, []any, error) {
	c.compiled = append(c.compiled, q)
	return fmt.Sprintf("SELECT ... FROM %s", q.Model), []any{"p"}, nil
}

func TestSubqueryCompileSQL(t *testing.T) {
	ctx := &recordingContext{
		outer:  &Scope{Alias: `"publisher"`, Model: mustModel(t, "Publisher")},
		models: testModels(),
	}
	sq := NewSubquery(From("Book").Filter(Eq("publisher", Outer("pk"))).Values("title").Slice(0, 1))

	sql, params, err := sq.CompileSQL(ctx)
	require.NoError(t, err)

	assert.Equal(t, "(SELECT ... FROM Book)", sql)
	assert.Equal(t, []any{"p"}, params)
	require.Len(t, ctx.compiled, 1)
	assert.Equal(t, Col{Alias: `"publisher"`, Column: "id", Type: "int"}, ctx.compiled[0].Where.(Lookup).RHS)
}

func TestSubqueryCompileSQLTemplate(t *testing.T) {
	ctx := &recordingContext{models: testModels()}
	sq := &Subquery{Query: From("Book").Values("title"), Template: "ARRAY(%s)"}

	sql, _, err := sq.CompileSQL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ARRAY(SELECT ... FROM Book)", sql)
}

func TestSubqueryCompileSQLAmbiguous(t *testing.T) {
	ctx := &recordingContext{models: testModels()}

	_, _, err := NewSubquery(From("Book").Values("title", "pages")).CompileSQL(ctx)
	require.Error(t, err)
	assert.True(t, IsAmbiguousOutputFieldError(err))
	assert.Empty(t, ctx.compiled, "nothing is compiled once inference fails")
}

func TestSubqueryCompileSQLUncorrelated(t *testing.T) {
	ctx := &recordingContext{models: testModels()}

	_, _, err := NewSubquery(From("Book").Filter(Eq("publisher", Outer("pk"))).Values("title")).CompileSQL(ctx)
	require.Error(t, err)
	assert.Equal(t, ErrCodeUncorrelatedSubquery, Code(err))
}

func TestExistsCompileSQLDropsOrdering(t *testing.T) {
	ctx := &recordingContext{
		outer:  &Scope{Alias: `"publisher"`, Model: mustModel(t, "Publisher")},
		models: testModels(),
	}
	inner := From("Book").Filter(Eq("publisher", Outer("pk"))).OrderBy("-pages")

	sql, _, err := NewExists(inner).CompileSQL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EXISTS(SELECT ... FROM Book)", sql)
	assert.Empty(t, ctx.compiled[0].Ordering)
	assert.Len(t, inner.Ordering, 1)

	sql, _, err = NotExists(inner).CompileSQL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "NOT EXISTS(SELECT ... FROM Book)", sql)
}
