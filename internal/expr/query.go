package expr

import (
	"slices"
	"strings"
)

// Query is a query definition over a single model.
//
// Semantics:
//
//	SELECT <selected or all fields + annotations>
//	FROM <model table>
//	WHERE <where>
//	ORDER BY <ordering>
//	LIMIT <limit> OFFSET <offset>
//
// Builder methods never modify the receiver; each returns a new Query.
type Query struct {
	Model       string
	Where       Expression // nil = no filter
	Annotations []Annotation
	Selected    []string // field or annotation names; empty = every field then every annotation
	Ordering    []OrderBy
	Limit       int // 0 = no limit
	Offset      int
}

// From starts a query over model.
func From(model string) *Query {
	return &Query{Model: model}
}

// Clone returns a copy whose slices can be modified independently.
// Expressions themselves are immutable and are shared.
func (q *Query) Clone() *Query {
	c := *q
	c.Annotations = slices.Clone(q.Annotations)
	c.Selected = slices.Clone(q.Selected)
	c.Ordering = slices.Clone(q.Ordering)
	return &c
}

// Filter narrows the query to rows matching every condition.
func (q *Query) Filter(conds ...Expression) *Query {
	c := q.Clone()
	c.Where = conjoin(c.Where, conds...)
	return c
}

// Exclude removes rows matching all of the given conditions.
func (q *Query) Exclude(conds ...Expression) *Query {
	if len(conds) == 0 {
		return q.Clone()
	}
	c := q.Clone()
	c.Where = conjoin(c.Where, Not{Child: conjoin(nil, conds...)})
	return c
}

// Annotate adds a named computed column. Re-annotating a name replaces it
// in place.
func (q *Query) Annotate(name string, e Expression) *Query {
	c := q.Clone()
	for i, a := range c.Annotations {
		if a.Name == name {
			c.Annotations[i].Expr = e
			return c
		}
	}
	c.Annotations = append(c.Annotations, Annotation{Name: name, Expr: e})
	return c
}

// Values restricts the selection to the named fields and annotations.
func (q *Query) Values(names ...string) *Query {
	c := q.Clone()
	c.Selected = slices.Clone(names)
	return c
}

// OrderBy replaces the ordering. A leading "-" sorts descending.
// Calling it with no arguments clears the ordering.
func (q *Query) OrderBy(fields ...string) *Query {
	c := q.Clone()
	c.Ordering = nil
	for _, f := range fields {
		desc := strings.HasPrefix(f, "-")
		c.Ordering = append(c.Ordering, OrderBy{
			Expr:       F{Name: strings.TrimPrefix(f, "-")},
			Descending: desc,
		})
	}
	return c
}

// Slice limits the query to rows [start, end). end <= start removes the
// upper bound.
func (q *Query) Slice(start, end int) *Query {
	c := q.Clone()
	c.Offset = start
	c.Limit = 0
	if end > start {
		c.Limit = end - start
	}
	return c
}

// Annotation returns the annotation expression registered under name.
func (q *Query) Annotation(name string) (Expression, bool) {
	for _, a := range q.Annotations {
		if a.Name == name {
			return a.Expr, true
		}
	}
	return nil, false
}

// conjoin appends conds to an existing where tree, flattening And nodes.
func conjoin(where Expression, conds ...Expression) Expression {
	var children []Expression
	if and, ok := where.(And); ok {
		children = slices.Clone(and.Children)
	} else if where != nil {
		children = append(children, where)
	}
	for _, c := range conds {
		if c == nil {
			continue
		}
		children = append(children, c)
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return And{Children: children}
	}
}
