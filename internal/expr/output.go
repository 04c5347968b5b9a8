package expr

import (
	"fmt"

	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/schema"
)

// SelectedNames returns the names q selects: q.Selected, or every model
// field followed by every annotation.
func SelectedNames(q *Query, m *schema.Model) []string {
	if len(q.Selected) > 0 {
		return q.Selected
	}
	names := m.FieldNames()
	for _, a := range q.Annotations {
		names = append(names, a.Name)
	}
	return names
}

// inferOutputType derives a single type from the query's selection.
// Columns of unknown type (NULL literals, unresolved references) are
// ignored.
func inferOutputType(q *Query, models Models) (schema.FieldType, error) {
	m, err := models.Get(q.Model)
	if err != nil {
		return "", err
	}

	var (
		columns []string
		types   []schema.FieldType
		seen    = map[schema.FieldType]bool{}
	)
	for _, name := range SelectedNames(q, m) {
		t, err := TypeOf(F{Name: name}, q, m, models)
		if err != nil {
			return "", err
		}
		columns = append(columns, name)
		types = append(types, t)
		if t != "" {
			seen[t] = true
		}
	}

	switch len(seen) {
	case 0:
		return "", nil
	case 1:
		for t := range seen {
			return t, nil
		}
	}
	return "", &AmbiguousOutputFieldError{Model: q.Model, Columns: columns, Types: types}
}

// TypeOf returns the result type of e evaluated in q over model m.
// An empty type means unknown.
func TypeOf(e Expression, q *Query, m *schema.Model, models Models) (schema.FieldType, error) {
	return typeOf(e, q, m, models, nil)
}

// typeOf follows annotation references; visiting records the annotations
// being followed so a cycle fails instead of recursing.
func typeOf(e Expression, q *Query, m *schema.Model, models Models, visiting map[string]bool) (schema.FieldType, error) {
	switch n := e.(type) {
	case F:
		if q != nil {
			if a, ok := q.Annotation(n.Name); ok {
				if visiting[n.Name] {
					return "", fmt.Errorf("annotation %q refers to itself", n.Name)
				}
				if visiting == nil {
					visiting = make(map[string]bool)
				}
				visiting[n.Name] = true
				defer delete(visiting, n.Name)
				return typeOf(a, q, m, models, visiting)
			}
		}
		f, err := m.Field(n.Name)
		if err != nil {
			return "", err
		}
		return f.Type, nil
	case Col:
		return n.Type, nil
	case Value:
		v, err := ir.FromAny(n.V)
		if err != nil {
			return "", err
		}
		switch v.(type) {
		case ir.IRInt:
			return schema.TypeInt, nil
		case ir.IRString:
			return schema.TypeString, nil
		case ir.IRBool:
			return schema.TypeBool, nil
		}
		return "", nil
	case Aggregate:
		if n.Func == AggCount || n.Arg == nil {
			return schema.TypeInt, nil
		}
		return typeOf(n.Arg, q, m, models, visiting)
	case *Subquery:
		return n.OutputType(models)
	case *Exists, Lookup, And, Or, Not:
		return schema.TypeBool, nil
	default:
		return "", nil
	}
}
