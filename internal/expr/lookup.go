package expr

// toExpr wraps plain Go values as Value; expressions pass through.
func toExpr(v any) Expression {
	if e, ok := v.(Expression); ok {
		return e
	}
	return Value{V: v}
}

func lookup(field string, op Op, v any) Lookup {
	return Lookup{LHS: F{Name: field}, Op: op, RHS: toExpr(v)}
}

// Eq builds field = v. v may be a literal, F, OuterRef or subquery.
func Eq(field string, v any) Lookup { return lookup(field, OpExact, v) }

// Gt builds field > v.
func Gt(field string, v any) Lookup { return lookup(field, OpGt, v) }

// Gte builds field >= v.
func Gte(field string, v any) Lookup { return lookup(field, OpGte, v) }

// Lt builds field < v.
func Lt(field string, v any) Lookup { return lookup(field, OpLt, v) }

// Lte builds field <= v.
func Lte(field string, v any) Lookup { return lookup(field, OpLte, v) }

// Contains builds a LIKE match on a substring.
func Contains(field string, v any) Lookup { return lookup(field, OpContains, v) }

// StartsWith builds a LIKE match on a prefix.
func StartsWith(field string, v any) Lookup { return lookup(field, OpStartsWith, v) }

// IsNull builds field IS NULL, or IS NOT NULL when null is false.
func IsNull(field string, null bool) Lookup {
	return Lookup{LHS: F{Name: field}, Op: OpIsNull, RHS: Value{V: null}}
}

// In builds field IN (...). A single subquery argument is used as the
// right side directly; anything else becomes a List.
func In(field string, vals ...any) Lookup {
	if len(vals) == 1 {
		switch v := vals[0].(type) {
		case *Subquery:
			return Lookup{LHS: F{Name: field}, Op: OpIn, RHS: v}
		case *Query:
			return Lookup{LHS: F{Name: field}, Op: OpIn, RHS: NewSubquery(v)}
		}
	}
	items := make([]Expression, len(vals))
	for i, v := range vals {
		items[i] = toExpr(v)
	}
	return Lookup{LHS: F{Name: field}, Op: OpIn, RHS: List{Items: items}}
}

// AllOf is And over conds.
func AllOf(conds ...Expression) And { return And{Children: conds} }

// AnyOf is Or over conds.
func AnyOf(conds ...Expression) Or { return Or{Children: conds} }

// Negate is Not over cond.
func Negate(cond Expression) Not { return Not{Child: cond} }
