package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementIDDeterministic(t *testing.T) {
	sql := `SELECT "book"."id" FROM "book" WHERE "book"."title" = ?`

	a, err := StatementID(sql, []any{"Dune"})
	require.NoError(t, err)
	b, err := StatementID(sql, []any{"Dune"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestStatementIDDistinguishesParams(t *testing.T) {
	sql := `SELECT 1 WHERE ? = ?`

	a := MustStatementID(sql, []any{int64(1), int64(2)})
	b := MustStatementID(sql, []any{int64(2), int64(1)})
	c := MustStatementID(sql, []any{int64(1), nil})

	assert.NotEqual(t, a, b, "param order is part of identity")
	assert.NotEqual(t, a, c)
}

func TestStatementIDRejectsFloatParam(t *testing.T) {
	_, err := StatementID("SELECT ?", []any{1.5})
	require.Error(t, err)
}

func TestRowsHashOrderSensitive(t *testing.T) {
	r1 := IRObject{"id": IRInt(1)}
	r2 := IRObject{"id": IRInt(2)}

	a, err := RowsHash([]IRObject{r1, r2})
	require.NoError(t, err)
	b, err := RowsHash([]IRObject{r2, r1})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t,
		hashWithDomain(DomainStatement, data),
		hashWithDomain(DomainRows, data))
}
