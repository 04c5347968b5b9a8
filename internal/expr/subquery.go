package expr

import (
	"errors"
	"fmt"

	"github.com/roach88/subq/internal/schema"
)

// CompileContext is what the host compiler hands a Compilable expression.
type CompileContext interface {
	// Outer is the scope of the query the expression is embedded in, or nil
	// when the expression is compiled standalone.
	Outer() *Scope

	// Models resolves model names.
	Models() Models

	// CompileSubquery compiles q as a query nested one alias level below
	// Outer and returns its SQL (without surrounding parentheses) and
	// parameters in textual order.
	CompileSubquery(q *Query) (string, []any, error)
}

// Compilable is an expression that renders itself. The host compiler calls
// CompileSQL whenever it reaches one in the tree.
type Compilable interface {
	Expression
	CompileSQL(ctx CompileContext) (string, []any, error)
}

var errNilQuery = errors.New("subquery has no inner query")

// SubqueryTemplate wraps a scalar subquery.
const SubqueryTemplate = "(%s)"

// Subquery embeds an inner query in an enclosing query's SQL.
// The inner query may contain OuterRef values; they are resolved against
// the enclosing query when the Subquery is compiled.
type Subquery struct {
	Query *Query

	// OutputField declares the result type. Empty means infer it from the
	// inner query's selection.
	OutputField schema.FieldType

	// Template is a fmt format with one %s verb for the inner SQL.
	// Empty means SubqueryTemplate.
	Template string
}

func (*Subquery) exprNode() {}

// NewSubquery wraps q.
func NewSubquery(q *Query) *Subquery {
	return &Subquery{Query: q}
}

// SubQuery is the name Subquery had before it was renamed.
//
// Deprecated: use Subquery.
type SubQuery = Subquery

// NewSubQuery is the name NewSubquery had before it was renamed.
//
// Deprecated: use NewSubquery.
func NewSubQuery(q *Query) *SubQuery {
	return NewSubquery(q)
}

// WithOutputField returns a copy declaring the output type t.
func (s *Subquery) WithOutputField(t schema.FieldType) *Subquery {
	c := *s
	c.OutputField = t
	return &c
}

func (s *Subquery) template() string {
	if s.Template == "" {
		return SubqueryTemplate
	}
	return s.Template
}

// Correlated reports whether the inner query references a query outside
// itself.
func (s *Subquery) Correlated() bool {
	return correlated(s.Query)
}

func correlated(q *Query) bool {
	found := false
	q.Walk(func(e Expression, level int) bool {
		if ref, ok := e.(OuterRef); ok && ref.Depth >= level {
			found = true
		}
		return !found
	})
	return found
}

// Resolve returns a copy of the inner query in which every OuterRef that
// targets the enclosing query is replaced by a Col bound to outer. The
// Subquery itself is left untouched.
//
// A nil outer means there is no enclosing query; any such reference then
// fails with *UncorrelatedSubqueryError.
func (s *Subquery) Resolve(outer *Scope) (*Query, error) {
	return resolveOuterRefs(s.Query, outer)
}

func resolveOuterRefs(q *Query, outer *Scope) (*Query, error) {
	if q == nil {
		return nil, errNilQuery
	}
	return q.Rewrite(func(e Expression, level int) (Expression, error) {
		ref, ok := e.(OuterRef)
		if !ok || ref.Depth != level {
			return e, nil
		}
		if outer == nil {
			return nil, &UncorrelatedSubqueryError{Field: ref.Name}
		}
		col, err := ref.Resolve(outer.Alias, outer.Model)
		if err != nil {
			return nil, fmt.Errorf("resolve outer reference: %w", err)
		}
		return col, nil
	})
}

// OutputType returns the declared output field, or infers it from the
// inner query's selection.
func (s *Subquery) OutputType(models Models) (schema.FieldType, error) {
	if s.OutputField != "" {
		return s.OutputField, nil
	}
	if s.Query == nil {
		return "", errNilQuery
	}
	return inferOutputType(s.Query, models)
}

// CompileSQL resolves outer references against ctx.Outer(), checks the
// output type, compiles the rewritten inner query and wraps it in the
// template.
func (s *Subquery) CompileSQL(ctx CompileContext) (string, []any, error) {
	q, err := s.Resolve(ctx.Outer())
	if err != nil {
		return "", nil, err
	}
	if s.OutputField == "" {
		if _, err := inferOutputType(q, ctx.Models()); err != nil {
			return "", nil, err
		}
	}
	sql, params, err := ctx.CompileSubquery(q)
	if err != nil {
		return "", nil, fmt.Errorf("compile subquery on %s: %w", q.Model, err)
	}
	return fmt.Sprintf(s.template(), sql), params, nil
}

// Exists is an EXISTS (subquery) predicate. Its output type is always bool.
type Exists struct {
	Query   *Query
	Negated bool
}

func (*Exists) exprNode() {}

// NewExists builds EXISTS(q).
func NewExists(q *Query) *Exists {
	return &Exists{Query: q}
}

// NotExists builds NOT EXISTS(q).
func NotExists(q *Query) *Exists {
	return &Exists{Query: q, Negated: true}
}

// Not returns a copy with the negation flipped.
func (e *Exists) Not() *Exists {
	return &Exists{Query: e.Query, Negated: !e.Negated}
}

// Correlated reports whether the inner query references a query outside
// itself.
func (e *Exists) Correlated() bool {
	return correlated(e.Query)
}

// CompileSQL resolves outer references and renders EXISTS(...). Ordering
// is dropped since EXISTS only tests for a matching row.
func (e *Exists) CompileSQL(ctx CompileContext) (string, []any, error) {
	q, err := resolveOuterRefs(e.Query, ctx.Outer())
	if err != nil {
		return "", nil, err
	}
	q.Ordering = nil

	sql, params, err := ctx.CompileSubquery(q)
	if err != nil {
		return "", nil, fmt.Errorf("compile exists on %s: %w", q.Model, err)
	}
	if e.Negated {
		return fmt.Sprintf("NOT EXISTS(%s)", sql), params, nil
	}
	return fmt.Sprintf("EXISTS(%s)", sql), params, nil
}
