package expr

import (
	"github.com/roach88/subq/internal/schema"
)

// OuterRef refers to a field of an enclosing query's current row.
//
// Depth 0 targets the query the subquery is embedded in; each additional
// level reaches one query further out. OuterRef is an immutable value.
type OuterRef struct {
	Name  string
	Depth int
}

func (OuterRef) exprNode() {}

// Outer builds a reference to name on the immediately enclosing query.
func Outer(name string) OuterRef {
	return OuterRef{Name: name}
}

// Up returns a reference to the same field one enclosing query further out.
func (r OuterRef) Up() OuterRef {
	r.Depth++
	return r
}

// Resolve binds the reference to alias using the outer model's schema.
// It has no side effects and returns the same Col every time it is called
// with the same arguments.
func (r OuterRef) Resolve(alias string, m *schema.Model) (Col, error) {
	f, err := m.Field(r.Name)
	if err != nil {
		return Col{}, err
	}
	return Col{Alias: alias, Column: f.Column, Type: f.Type}, nil
}

// Scope is the compile-time view of the query an expression is embedded in.
type Scope struct {
	Alias string // rendered qualifier for the scope's base table
	Model *schema.Model
}
