package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/querysql"
	"github.com/roach88/subq/internal/schema"
)

// Execute runs a compiled statement and decodes each row into an IRObject
// keyed by column name. Values are decoded according to the statement's
// column types, so booleans stored as 0/1 come back as IRBool and dates
// as "YYYY-MM-DD" strings.
//
// Returns an empty slice (not nil) when no rows match.
func (s *Store) Execute(ctx context.Context, stmt querysql.Statement) ([]ir.IRObject, error) {
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Params...)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	types := make([]schema.FieldType, len(names))
	if len(stmt.Columns) > 0 {
		if len(stmt.Columns) != len(names) {
			return nil, fmt.Errorf("statement declares %d columns, result has %d", len(stmt.Columns), len(names))
		}
		for i, c := range stmt.Columns {
			names[i] = c.Name
			types[i] = c.Type
		}
	}

	result := []ir.IRObject{}
	raw := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		obj := make(ir.IRObject, len(names))
		for i, name := range names {
			v, err := decodeValue(raw[i], types[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			obj[name] = v
		}
		result = append(result, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

// decodeValue converts a driver value to an IRValue. An empty type means
// the column type is unknown and the driver's type is kept.
func decodeValue(v any, t schema.FieldType) (ir.IRValue, error) {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}, nil
	case int64:
		if t == schema.TypeBool {
			return ir.IRBool(val != 0), nil
		}
		return ir.IRInt(val), nil
	case bool:
		return ir.IRBool(val), nil
	case float64:
		if val != math.Trunc(val) {
			return nil, fmt.Errorf("floats are not supported: %v", val)
		}
		return ir.IRInt(int64(val)), nil
	case []byte:
		return ir.IRString(val), nil
	case string:
		return ir.IRString(val), nil
	case time.Time:
		if t == schema.TypeDate {
			return ir.IRString(val.Format(time.DateOnly)), nil
		}
		return ir.FromAny(val)
	default:
		return nil, fmt.Errorf("unsupported driver value %T", v)
	}
}
