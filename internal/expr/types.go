package expr

import (
	"github.com/roach88/subq/internal/schema"
)

// Expression is a node in a query expression tree.
//
// This is a sealed interface: the marker method keeps implementations in
// this package and lets compilers use exhaustive type switches.
type Expression interface {
	exprNode()
}

// F references a field or annotation of the query currently being
// compiled, by name. "pk" names the primary key.
type F struct {
	Name string
}

func (F) exprNode() {}

// Col is a column already bound to a table alias. OuterRef resolves to Col.
type Col struct {
	Alias  string // rendered qualifier, e.g. `"publisher"` or `U0`
	Column string
	Type   schema.FieldType
}

func (Col) exprNode() {}

// Value is a literal bound as a statement parameter, never interpolated.
type Value struct {
	V any
}

func (Value) exprNode() {}

// List is a parenthesized list of expressions, the right side of IN.
type List struct {
	Items []Expression
}

func (List) exprNode() {}

// Op is a lookup operator.
type Op string

const (
	OpExact      Op = "exact"
	OpGt         Op = "gt"
	OpGte        Op = "gte"
	OpLt         Op = "lt"
	OpLte        Op = "lte"
	OpIn         Op = "in"
	OpIsNull     Op = "isnull"
	OpContains   Op = "contains"
	OpStartsWith Op = "startswith"
)

// ValidOps lists the supported lookup operators.
var ValidOps = []Op{OpExact, OpGt, OpGte, OpLt, OpLte, OpIn, OpIsNull, OpContains, OpStartsWith}

// IsValid reports whether op is supported.
func (op Op) IsValid() bool {
	for _, v := range ValidOps {
		if op == v {
			return true
		}
	}
	return false
}

// Lookup compares LHS to RHS with Op.
//
// For OpIsNull the RHS is a Value holding a bool. For OpIn the RHS is a List
// or a subquery.
type Lookup struct {
	LHS Expression
	Op  Op
	RHS Expression
}

func (Lookup) exprNode() {}

// And is a conjunction. Empty And is always true.
type And struct {
	Children []Expression
}

func (And) exprNode() {}

// Or is a disjunction. Empty Or is always false.
type Or struct {
	Children []Expression
}

func (Or) exprNode() {}

// Not negates Child.
type Not struct {
	Child Expression
}

func (Not) exprNode() {}

// AggregateFunc names an aggregate function.
type AggregateFunc string

const (
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// Aggregate applies Func to Arg. A nil Arg with AggCount is COUNT(*).
type Aggregate struct {
	Func AggregateFunc
	Arg  Expression
}

func (Aggregate) exprNode() {}

// Count builds COUNT(field), or COUNT(*) for an empty field name.
func Count(field string) Aggregate {
	if field == "" {
		return Aggregate{Func: AggCount}
	}
	return Aggregate{Func: AggCount, Arg: F{Name: field}}
}

// Sum builds SUM(field).
func Sum(field string) Aggregate { return Aggregate{Func: AggSum, Arg: F{Name: field}} }

// Min builds MIN(field).
func Min(field string) Aggregate { return Aggregate{Func: AggMin, Arg: F{Name: field}} }

// Max builds MAX(field).
func Max(field string) Aggregate { return Aggregate{Func: AggMax, Arg: F{Name: field}} }

// OrderBy is one ORDER BY term.
type OrderBy struct {
	Expr       Expression
	Descending bool
}

// Annotation is a named computed column.
type Annotation struct {
	Name string
	Expr Expression
}

// Models looks up models by name; *schema.Registry implements it.
type Models interface {
	Get(name string) (*schema.Model, error)
}
