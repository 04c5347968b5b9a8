package querysql

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect renders the parts of a statement that differ between databases.
type Dialect interface {
	Name() string

	// Placeholder returns the marker for the n-th parameter, starting at 1.
	Placeholder(n int) string

	QuoteIdent(name string) string

	// LimitOffset renders the trailing clause. limit 0 means no limit.
	LimitOffset(limit, offset int) string

	// Like renders lhs LIKE pattern with backslash as the escape character.
	Like(lhs, pattern string) string

	// Concat joins string expressions.
	Concat(parts ...string) string
}

// DialectByName returns the dialect registered under name.
// The empty string selects SQLite.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return SQLite{}, nil
	case "postgres", "postgresql", "pg":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q (expected sqlite, postgres or mysql)", name)
	}
}

// DialectNames lists the names accepted by DialectByName.
var DialectNames = []string{"sqlite", "postgres", "mysql"}

func quoteWith(name string, q string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// SQLite renders ? placeholders and double-quoted identifiers.
type SQLite struct{}

func (SQLite) Name() string               { return "sqlite" }
func (SQLite) Placeholder(int) string     { return "?" }
func (SQLite) QuoteIdent(n string) string { return quoteWith(n, `"`) }

func (SQLite) LimitOffset(limit, offset int) string {
	return limitOffset(limit, offset, "-1")
}

func (SQLite) Like(lhs, pattern string) string {
	return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, lhs, pattern)
}

func (SQLite) Concat(parts ...string) string { return strings.Join(parts, " || ") }

// Postgres renders $n placeholders and double-quoted identifiers.
type Postgres struct{}

func (Postgres) Name() string               { return "postgres" }
func (Postgres) Placeholder(n int) string   { return "$" + strconv.Itoa(n) }
func (Postgres) QuoteIdent(n string) string { return quoteWith(n, `"`) }

func (Postgres) LimitOffset(limit, offset int) string {
	return limitOffset(limit, offset, "")
}

func (Postgres) Like(lhs, pattern string) string {
	return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, lhs, pattern)
}

func (Postgres) Concat(parts ...string) string { return strings.Join(parts, " || ") }

// MySQL renders ? placeholders and backquoted identifiers.
type MySQL struct{}

func (MySQL) Name() string               { return "mysql" }
func (MySQL) Placeholder(int) string     { return "?" }
func (MySQL) QuoteIdent(n string) string { return quoteWith(n, "`") }

func (MySQL) LimitOffset(limit, offset int) string {
	return limitOffset(limit, offset, "18446744073709551615")
}

// Like relies on MySQL's default escape character, which is already a
// backslash.
func (MySQL) Like(lhs, pattern string) string {
	return fmt.Sprintf("%s LIKE %s", lhs, pattern)
}

func (MySQL) Concat(parts ...string) string {
	return "CONCAT(" + strings.Join(parts, ", ") + ")"
}

// limitOffset renders LIMIT/OFFSET. noLimit is the LIMIT value a dialect
// needs before a bare OFFSET; empty means OFFSET may stand alone.
func limitOffset(limit, offset int, noLimit string) string {
	var b strings.Builder
	switch {
	case limit > 0:
		fmt.Fprintf(&b, " LIMIT %d", limit)
	case offset > 0 && noLimit != "":
		b.WriteString(" LIMIT " + noLimit)
	}
	if offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}
	return b.String()
}

// rebind rewrites ? markers outside quoted text into the dialect's
// placeholders.
func rebind(d Dialect, sql string) string {
	if d.Placeholder(1) == "?" {
		return sql
	}
	var (
		b     strings.Builder
		n     int
		quote rune
	)
	b.Grow(len(sql) + 8)
	for _, r := range sql {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '?':
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
