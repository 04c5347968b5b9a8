package querydoc

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/subq/internal/expr"
	"github.com/roach88/subq/internal/schema"
)

// Doc is a query over one model.
type Doc struct {
	Model    string      `yaml:"model"`
	Filter   []Condition `yaml:"filter,omitempty"`
	Exclude  []Condition `yaml:"exclude,omitempty"`
	Annotate []Node      `yaml:"annotate,omitempty"`
	Values   []string    `yaml:"values,omitempty"`
	OrderBy  []string    `yaml:"order_by,omitempty"`
	Limit    int         `yaml:"limit,omitempty"`
	Offset   int         `yaml:"offset,omitempty"`
}

// SubqueryDoc is a nested query used as an expression.
type SubqueryDoc struct {
	Doc `yaml:",inline"`

	// OutputField declares the result type instead of inferring it.
	OutputField string `yaml:"output_field,omitempty"`
}

// Condition is one filter term. Exactly one right-hand side may be given:
// value, values, ref, outer_ref or subquery. any, not and exists build
// compound conditions and take no field.
type Condition struct {
	Field string `yaml:"field,omitempty"`

	// Op defaults to "exact", or "in" when values is given.
	Op string `yaml:"op,omitempty"`

	Value      any          `yaml:"value,omitempty"`
	Values     []any        `yaml:"values,omitempty"`
	Ref        string       `yaml:"ref,omitempty"`
	OuterRef   string       `yaml:"outer_ref,omitempty"`
	OuterDepth int          `yaml:"outer_depth,omitempty"`
	Subquery   *SubqueryDoc `yaml:"subquery,omitempty"`
	SubQuery   *SubqueryDoc `yaml:"SubQuery,omitempty"`

	Exists  *Doc `yaml:"exists,omitempty"`
	Negated bool `yaml:"negated,omitempty"`

	Any []Condition `yaml:"any,omitempty"`
	Not []Condition `yaml:"not,omitempty"`
}

// Node is an annotation expression.
type Node struct {
	Name string `yaml:"name"`

	Field      string       `yaml:"field,omitempty"`
	Value      any          `yaml:"value,omitempty"`
	OuterRef   string       `yaml:"outer_ref,omitempty"`
	OuterDepth int          `yaml:"outer_depth,omitempty"`
	Aggregate  string       `yaml:"aggregate,omitempty"`
	Subquery   *SubqueryDoc `yaml:"subquery,omitempty"`
	SubQuery   *SubqueryDoc `yaml:"SubQuery,omitempty"`
	Exists     *Doc         `yaml:"exists,omitempty"`
	Negated    bool         `yaml:"negated,omitempty"`
	Condition  *Condition   `yaml:"condition,omitempty"`
}

// Load reads and parses a query document.
func Load(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a query document, rejecting unknown keys.
func Parse(data []byte) (*Doc, error) {
	var doc Doc
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Model == "" {
		return nil, fmt.Errorf("invalid query: model is required")
	}
	return &doc, nil
}

// Build converts the document into a query.
func Build(doc *Doc) (*expr.Query, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil query document")
	}
	if doc.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	q := expr.From(doc.Model)

	for i, n := range doc.Annotate {
		if n.Name == "" {
			return nil, fmt.Errorf("annotate[%d]: name is required", i)
		}
		e, err := n.build()
		if err != nil {
			return nil, fmt.Errorf("annotate %s: %w", n.Name, err)
		}
		q = q.Annotate(n.Name, e)
	}

	filter, err := buildAll(doc.Filter, "filter")
	if err != nil {
		return nil, err
	}
	if len(filter) > 0 {
		q = q.Filter(filter...)
	}
	exclude, err := buildAll(doc.Exclude, "exclude")
	if err != nil {
		return nil, err
	}
	if len(exclude) > 0 {
		q = q.Exclude(exclude...)
	}

	if len(doc.Values) > 0 {
		q = q.Values(doc.Values...)
	}
	if len(doc.OrderBy) > 0 {
		q = q.OrderBy(doc.OrderBy...)
	}
	if doc.Limit < 0 || doc.Offset < 0 {
		return nil, fmt.Errorf("limit and offset must not be negative")
	}
	if doc.Limit > 0 {
		q = q.Slice(doc.Offset, doc.Offset+doc.Limit)
	} else if doc.Offset > 0 {
		q = q.Slice(doc.Offset, 0)
	}
	return q, nil
}

func buildAll(conds []Condition, path string) ([]expr.Expression, error) {
	out := make([]expr.Expression, 0, len(conds))
	for i, c := range conds {
		e, err := c.build()
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", path, i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (c Condition) build() (expr.Expression, error) {
	switch {
	case len(c.Any) > 0:
		children, err := buildAll(c.Any, "any")
		if err != nil {
			return nil, err
		}
		return expr.AnyOf(children...), nil
	case len(c.Not) > 0:
		children, err := buildAll(c.Not, "not")
		if err != nil {
			return nil, err
		}
		return expr.Negate(expr.AllOf(children...)), nil
	case c.Exists != nil:
		return buildExists(c.Exists, c.Negated)
	}

	if c.Field == "" {
		return nil, fmt.Errorf("condition needs a field, any, not or exists")
	}
	op := expr.Op(c.Op)
	if op == "" {
		op = expr.OpExact
		if c.Values != nil {
			op = expr.OpIn
		}
	}
	if !op.IsValid() {
		return nil, fmt.Errorf("unknown op %q (expected one of %v)", c.Op, expr.ValidOps)
	}

	rhs, err := c.rhs()
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", c.Field, err)
	}
	if op == expr.OpIsNull {
		if _, ok := c.Value.(bool); !ok {
			return nil, fmt.Errorf("field %s: isnull needs a boolean value", c.Field)
		}
	}

	var e expr.Expression = expr.Lookup{LHS: expr.F{Name: c.Field}, Op: op, RHS: rhs}
	if c.Negated {
		e = expr.Negate(e)
	}
	return e, nil
}

func (c Condition) rhs() (expr.Expression, error) {
	sub, err := pickSubquery(c.Subquery, c.SubQuery)
	if err != nil {
		return nil, err
	}

	set := 0
	for _, ok := range []bool{c.Value != nil, c.Values != nil, c.Ref != "", c.OuterRef != "", sub != nil} {
		if ok {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("only one of value, values, ref, outer_ref or subquery may be set")
	}

	switch {
	case c.Values != nil:
		items := make([]expr.Expression, len(c.Values))
		for i, v := range c.Values {
			items[i] = expr.Value{V: v}
		}
		return expr.List{Items: items}, nil
	case c.Ref != "":
		return expr.F{Name: c.Ref}, nil
	case c.OuterRef != "":
		return expr.OuterRef{Name: c.OuterRef, Depth: c.OuterDepth}, nil
	case sub != nil:
		return sub.build(c.SubQuery != nil)
	default:
		return expr.Value{V: c.Value}, nil
	}
}

func (n Node) build() (expr.Expression, error) {
	sub, err := pickSubquery(n.Subquery, n.SubQuery)
	if err != nil {
		return nil, err
	}
	switch {
	case sub != nil:
		return sub.build(n.SubQuery != nil)
	case n.Exists != nil:
		return buildExists(n.Exists, n.Negated)
	case n.Condition != nil:
		return n.Condition.build()
	case n.Aggregate != "":
		return buildAggregate(n.Aggregate, n.Field)
	case n.Field != "":
		return expr.F{Name: n.Field}, nil
	case n.OuterRef != "":
		return expr.OuterRef{Name: n.OuterRef, Depth: n.OuterDepth}, nil
	case n.Value != nil:
		return expr.Value{V: n.Value}, nil
	default:
		return nil, fmt.Errorf("annotation needs one of subquery, exists, condition, aggregate, field, outer_ref or value")
	}
}

func pickSubquery(current, legacy *SubqueryDoc) (*SubqueryDoc, error) {
	if current != nil && legacy != nil {
		return nil, fmt.Errorf("subquery and SubQuery are the same key; set only one")
	}
	if current != nil {
		return current, nil
	}
	return legacy, nil
}

func (s *SubqueryDoc) build(legacy bool) (*expr.Subquery, error) {
	q, err := Build(&s.Doc)
	if err != nil {
		return nil, fmt.Errorf("subquery: %w", err)
	}
	sq := expr.NewSubquery(q)
	if legacy {
		sq = expr.NewSubQuery(q)
	}
	if s.OutputField != "" {
		t := schema.FieldType(s.OutputField)
		if !t.IsValid() {
			return nil, fmt.Errorf("subquery: invalid output_field %q (expected one of %v)", s.OutputField, schema.ValidFieldTypes)
		}
		sq = sq.WithOutputField(t)
	}
	return sq, nil
}

func buildExists(d *Doc, negated bool) (*expr.Exists, error) {
	q, err := Build(d)
	if err != nil {
		return nil, fmt.Errorf("exists: %w", err)
	}
	if negated {
		return expr.NotExists(q), nil
	}
	return expr.NewExists(q), nil
}

func buildAggregate(fn, field string) (expr.Aggregate, error) {
	switch fn {
	case "count":
		return expr.Count(field), nil
	case "sum", "min", "max":
		if field == "" {
			return expr.Aggregate{}, fmt.Errorf("%s needs a field", fn)
		}
		switch fn {
		case "sum":
			return expr.Sum(field), nil
		case "min":
			return expr.Min(field), nil
		default:
			return expr.Max(field), nil
		}
	default:
		return expr.Aggregate{}, fmt.Errorf("unknown aggregate %q (expected count, sum, min or max)", fn)
	}
}
