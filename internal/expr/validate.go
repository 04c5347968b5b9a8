package expr

import (
	"fmt"
)

// ValidationResult lists constructs that compile but are likely mistakes.
type ValidationResult struct {
	// OK is true when no warnings were found.
	OK bool

	Warnings []string
}

// Validate inspects q without compiling it. Validate is a pure function.
//
// Checks:
//  1. Outer references not enclosed by enough subqueries
//  2. Scalar subqueries that may return more than one row or column
//  3. Ordering inside EXISTS, which is dropped
//  4. Offset without limit
func Validate(q *Query) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validateQuery(q, 0)
	return ValidationResult{
		OK:       len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validateQuery checks q, which sits level subqueries below the root.
func (v *validator) validateQuery(q *Query, level int) {
	if q == nil {
		v.addWarning("nil query")
		return
	}
	if q.Model == "" {
		v.addWarning("query has no model")
	}
	if q.Offset > 0 && q.Limit == 0 {
		v.addWarning("query on %s has an offset but no limit", q.Model)
	}

	visit := func(e Expression, role string) {
		v.validateExpr(e, q, level, role)
	}
	visit(q.Where, "filter")
	for _, a := range q.Annotations {
		visit(a.Expr, "annotation "+a.Name)
	}
	for _, o := range q.Ordering {
		visit(o.Expr, "ordering")
	}
}

func (v *validator) validateExpr(e Expression, q *Query, level int, role string) {
	switch n := e.(type) {
	case nil:
	case OuterRef:
		if n.Depth >= level {
			v.addWarning("outer reference %q in %s on %s is not enclosed by a subquery; it can only be compiled inside one",
				n.Name, role, q.Model)
		}
	case Lookup:
		v.validateExpr(n.LHS, q, level, role)
		if sq, ok := n.RHS.(*Subquery); ok {
			if n.Op != OpIn {
				v.checkScalar(sq, role)
			}
			v.validateQuery(sq.Query, level+1)
			return
		}
		v.validateExpr(n.RHS, q, level, role)
	case And:
		for _, c := range n.Children {
			v.validateExpr(c, q, level, role)
		}
	case Or:
		for _, c := range n.Children {
			v.validateExpr(c, q, level, role)
		}
	case Not:
		v.validateExpr(n.Child, q, level, role)
	case List:
		for _, c := range n.Items {
			v.validateExpr(c, q, level, role)
		}
	case Aggregate:
		v.validateExpr(n.Arg, q, level, role)
	case *Subquery:
		v.checkScalar(n, role)
		v.validateQuery(n.Query, level+1)
	case *Exists:
		if n.Query != nil && len(n.Query.Ordering) > 0 {
			v.addWarning("ordering inside EXISTS on %s in %s is ignored", n.Query.Model, role)
		}
		v.validateQuery(n.Query, level+1)
	}
}

func (v *validator) checkScalar(sq *Subquery, role string) {
	q := sq.Query
	if q == nil {
		return
	}
	if q.Limit != 1 && !selectsOnlyAggregates(q) {
		v.addWarning("subquery on %s in %s may return more than one row; slice it to one row", q.Model, role)
	}
	if len(q.Selected) != 1 {
		v.addWarning("subquery on %s in %s should select exactly one column", q.Model, role)
	}
}

func selectsOnlyAggregates(q *Query) bool {
	if len(q.Selected) == 0 {
		return false
	}
	for _, name := range q.Selected {
		a, ok := q.Annotation(name)
		if !ok {
			return false
		}
		if _, isAgg := a.(Aggregate); !isAgg {
			return false
		}
	}
	return true
}
