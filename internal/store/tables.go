package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/querysql"
	"github.com/roach88/subq/internal/schema"
)

var quote = querysql.SQLite{}.QuoteIdent

// CreateTables creates a table for every model in reg. Existing tables are
// left as they are.
func (s *Store) CreateTables(ctx context.Context, reg *schema.Registry) error {
	for _, m := range reg.Models() {
		ddl, err := createTableSQL(m, reg)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", m.Table, err)
		}
	}
	return nil
}

func createTableSQL(m *schema.Model, reg *schema.Registry) (string, error) {
	var defs []string
	for _, f := range m.Fields {
		def := quote(f.Column) + " " + f.Type.SQLType()
		if f.PrimaryKey {
			def += " PRIMARY KEY"
		}
		if f.References != "" {
			target, err := reg.Get(f.References)
			if err != nil {
				return "", fmt.Errorf("model %s field %s: %w", m.Name, f.Name, err)
			}
			pk, ok := target.PrimaryKey()
			if !ok {
				return "", fmt.Errorf("model %s field %s: %s has no primary key", m.Name, f.Name, target.Name)
			}
			def += fmt.Sprintf(" REFERENCES %s(%s)", quote(target.Table), quote(pk.Column))
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(m.Table), strings.Join(defs, ", ")), nil
}

// Insert writes one row into m's table. Keys of row are field names;
// fields missing from row are left to their column default.
func (s *Store) Insert(ctx context.Context, m *schema.Model, row ir.IRObject) error {
	// Keys may be field names, column names or the pk alias.
	values := make(map[string]ir.IRValue, len(row))
	for _, k := range row.SortedKeys() {
		f, err := m.Field(k)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", m.Table, err)
		}
		if _, dup := values[f.Column]; dup {
			return fmt.Errorf("insert into %s: field %s given more than once", m.Table, f.Name)
		}
		values[f.Column] = row[k]
	}

	var (
		cols   []string
		marks  []string
		params []any
	)
	for _, f := range m.Fields {
		v, ok := values[f.Column]
		if !ok {
			continue
		}
		p, err := ir.ToParam(v)
		if err != nil {
			return fmt.Errorf("insert into %s: field %s: %w", m.Table, f.Name, err)
		}
		cols = append(cols, quote(f.Column))
		marks = append(marks, "?")
		params = append(params, p)
	}
	if len(cols) == 0 {
		return fmt.Errorf("insert into %s: row has no fields", m.Table)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(m.Table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := s.db.ExecContext(ctx, query, params...); err != nil {
		return fmt.Errorf("insert into %s: %w", m.Table, err)
	}
	return nil
}
