package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectByName(t *testing.T) {
	for name, want := range map[string]Dialect{
		"":           SQLite{},
		"sqlite":     SQLite{},
		"SQLite3":    SQLite{},
		"postgres":   Postgres{},
		"postgresql": Postgres{},
		"mysql":      MySQL{},
	} {
		d, err := DialectByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, d, name)
	}

	_, err := DialectByName("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown dialect "oracle"`)
}

func TestLimitOffset(t *testing.T) {
	tests := []struct {
		d             Dialect
		limit, offset int
		want          string
	}{
		{SQLite{}, 0, 0, ""},
		{SQLite{}, 1, 0, " LIMIT 1"},
		{SQLite{}, 5, 10, " LIMIT 5 OFFSET 10"},
		{SQLite{}, 0, 10, " LIMIT -1 OFFSET 10"},
		{Postgres{}, 0, 10, " OFFSET 10"},
		{MySQL{}, 0, 10, " LIMIT 18446744073709551615 OFFSET 10"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.d.LimitOffset(tt.limit, tt.offset), "%s %d/%d", tt.d.Name(), tt.limit, tt.offset)
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"book"`, SQLite{}.QuoteIdent("book"))
	assert.Equal(t, `"a""b"`, Postgres{}.QuoteIdent(`a"b`))
	assert.Equal(t, "`a``b`", MySQL{}.QuoteIdent("a`b"))
}

func TestRebind(t *testing.T) {
	sql := `SELECT '?', "a?" FROM t WHERE x = ? AND y LIKE ? ESCAPE '\'`

	assert.Equal(t, `SELECT '?', "a?" FROM t WHERE x = $1 AND y LIKE $2 ESCAPE '\'`, rebind(Postgres{}, sql))
	assert.Equal(t, sql, rebind(SQLite{}, sql))
	assert.Equal(t, sql, rebind(MySQL{}, sql))
}

func TestAliasPrefix(t *testing.T) {
	assert.Equal(t, "U", aliasPrefix(1))
	assert.Equal(t, "V", aliasPrefix(2))
	assert.Equal(t, "Z", aliasPrefix(6))
	assert.Equal(t, "A", aliasPrefix(7))
	assert.Equal(t, "UU", aliasPrefix(len(aliasLetters)+1))
}

func TestTableAlias(t *testing.T) {
	comp := &compilation{rootTable: "book"}
	assert.Equal(t, "U0", comp.tableAlias(1))
	assert.Equal(t, "V0", comp.tableAlias(2))

	comp.rootTable = "v0"
	assert.Equal(t, "U0", comp.tableAlias(1))
	assert.Equal(t, "W0", comp.tableAlias(2))
	assert.Equal(t, "X0", comp.tableAlias(3))
}
