package querysql

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/subq/internal/expr"
	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/schema"
)

// Compiler compiles expr queries to parameterized SQL.
//
// Values are always bound as parameters, never interpolated. A Compiler
// carries no per-compilation state, so one value may compile many queries
// concurrently.
type Compiler struct {
	Models  expr.Models
	Dialect Dialect

	// StableOrdering appends the primary key to the root query's ORDER BY
	// so that results come back in a deterministic order.
	StableOrdering bool
}

// NewCompiler creates a Compiler. A nil dialect selects SQLite.
func NewCompiler(models expr.Models, d Dialect) *Compiler {
	if d == nil {
		d = SQLite{}
	}
	return &Compiler{Models: models, Dialect: d}
}

// Column describes one column of a statement's result.
type Column struct {
	Name string           `json:"name"`
	Type schema.FieldType `json:"type"`
}

// Statement is a compiled query.
type Statement struct {
	SQL     string   `json:"sql"`
	Params  []any    `json:"params"`
	Columns []Column `json:"columns"`
}

// ID returns the content hash of the statement's SQL and parameters.
func (s Statement) ID() (string, error) {
	return ir.StatementID(s.SQL, s.Params)
}

// Compile converts q to a statement in the compiler's dialect.
// Parameters are ordered as their placeholders appear in the SQL.
func (c *Compiler) Compile(q *expr.Query) (Statement, error) {
	if q == nil {
		return Statement{}, fmt.Errorf("cannot compile nil query")
	}
	comp := c.newCompilation()
	sql, params, cols, err := comp.compileQuery(q, 0)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: rebind(comp.dialect, sql), Params: params, Columns: cols}, nil
}

// CompileExpr compiles a standalone expression with no enclosing query.
// Only expressions that carry their own query (subqueries, EXISTS) and
// literals can be compiled this way; outer references fail with
// *expr.UncorrelatedSubqueryError.
func (c *Compiler) CompileExpr(e expr.Expression) (string, []any, error) {
	comp := c.newCompilation()
	qc := &queryCompiler{comp: comp}
	sql, params, err := qc.expr(e)
	if err != nil {
		return "", nil, err
	}
	return rebind(comp.dialect, sql), params, nil
}

func (c *Compiler) newCompilation() *compilation {
	d := c.Dialect
	if d == nil {
		d = SQLite{}
	}
	return &compilation{
		models:  c.Models,
		dialect: d,
		stable:  c.StableOrdering,
		cache:   make(map[cacheKey]fragment),
	}
}

// compilation is the state of one Compile call.
type compilation struct {
	models  expr.Models
	dialect Dialect
	stable  bool

	// cache holds compiled subquery fragments per compilation scope.
	cache map[cacheKey]fragment

	// rootTable is the unaliased table of the root query, if any.
	rootTable string
}

type cacheKey struct {
	node  expr.Compilable
	alias string
	model string
	level int
}

type fragment struct {
	sql    string
	params []any
}

const aliasLetters = "UVWXYZABCDEFGHIJKLMNOPQRST"

// aliasPrefix returns the table alias prefix for a query nested level
// subqueries below the root: U, V, W, ...
func aliasPrefix(level int) string {
	i := level - 1
	n := len(aliasLetters)
	return strings.Repeat(string(aliasLetters[i%n]), i/n+1)
}

// tableAlias returns the alias of a query nested level subqueries below
// the root. Prefixes that would name the root table are skipped; SQL
// identifiers are compared without case.
func (comp *compilation) tableAlias(level int) string {
	n := 0
	for i := 1; ; i++ {
		alias := aliasPrefix(i) + "0"
		if strings.EqualFold(alias, comp.rootTable) {
			continue
		}
		if n++; n == level {
			return alias
		}
	}
}

// compileQuery renders q as a SELECT nested level subqueries below the
// root. The root query addresses its table by name; nested queries use an
// alias so they never collide with an enclosing query's table.
func (comp *compilation) compileQuery(q *expr.Query, level int) (string, []any, []Column, error) {
	m, err := comp.models.Get(q.Model)
	if err != nil {
		return "", nil, nil, err
	}
	d := comp.dialect

	alias := d.QuoteIdent(m.Table)
	from := alias
	if level == 0 {
		comp.rootTable = m.Table
	} else {
		alias = comp.tableAlias(level)
		from = d.QuoteIdent(m.Table) + " " + alias
	}
	qc := &queryCompiler{
		comp:     comp,
		q:        q,
		scope:    &expr.Scope{Alias: alias, Model: m},
		level:    level,
		inlining: make(map[string]bool),
	}

	var (
		params    []any
		selects   []string
		groupBy   []string
		aggregate bool
	)

	names := expr.SelectedNames(q, m)
	if len(names) == 0 {
		return "", nil, nil, fmt.Errorf("query on %s selects no columns", q.Model)
	}
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		if a, ok := q.Annotation(name); ok {
			sql, p, err := qc.field(name)
			if err != nil {
				return "", nil, nil, fmt.Errorf("annotation %q: %w", name, err)
			}
			params = append(params, p...)
			selects = append(selects, sql+" AS "+d.QuoteIdent(name))
			if _, isAgg := a.(expr.Aggregate); isAgg {
				aggregate = true
			} else {
				groupBy = append(groupBy, d.QuoteIdent(name))
			}
		} else {
			f, err := m.Field(name)
			if err != nil {
				return "", nil, nil, err
			}
			sql := qc.column(f)
			selects = append(selects, sql)
			groupBy = append(groupBy, sql)
		}

		t, err := expr.TypeOf(expr.F{Name: name}, q, m, comp.models)
		if err != nil {
			return "", nil, nil, err
		}
		cols = append(cols, Column{Name: name, Type: t})
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selects, ", "))
	b.WriteString(" FROM ")
	b.WriteString(from)

	if q.Where != nil {
		qc.inWhere = true
		sql, p, err := qc.expr(q.Where)
		qc.inWhere = false
		if err != nil {
			return "", nil, nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(sql)
		params = append(params, p...)
	}

	if aggregate && len(groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupBy, ", "))
	}

	order, p, err := qc.ordering(names)
	if err != nil {
		return "", nil, nil, fmt.Errorf("compile ordering: %w", err)
	}
	if len(order) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(order, ", "))
		params = append(params, p...)
	}

	b.WriteString(d.LimitOffset(q.Limit, q.Offset))
	return b.String(), params, cols, nil
}

// queryCompiler renders the expressions of one query. It is the
// expr.CompileContext handed to subqueries embedded in that query.
type queryCompiler struct {
	comp  *compilation
	q     *expr.Query // nil when compiling a standalone expression
	scope *expr.Scope
	level int

	inlining map[string]bool
	inWhere  bool
}

func (qc *queryCompiler) Outer() *expr.Scope  { return qc.scope }
func (qc *queryCompiler) Models() expr.Models { return qc.comp.models }

func (qc *queryCompiler) CompileSubquery(q *expr.Query) (string, []any, error) {
	sql, params, _, err := qc.comp.compileQuery(q, qc.level+1)
	return sql, params, err
}

func (qc *queryCompiler) column(f schema.Field) string {
	return qc.scope.Alias + "." + qc.comp.dialect.QuoteIdent(f.Column)
}

func (qc *queryCompiler) expr(e expr.Expression) (string, []any, error) {
	switch n := e.(type) {
	case nil:
		return "", nil, errors.New("nil expression")
	case expr.F:
		return qc.field(n.Name)
	case expr.Col:
		return n.Alias + "." + qc.comp.dialect.QuoteIdent(n.Column), nil, nil
	case expr.Value:
		return qc.value(n.V)
	case expr.List:
		return qc.list(n)
	case expr.OuterRef:
		return "", nil, &expr.UncorrelatedSubqueryError{Field: n.Name}
	case expr.Lookup:
		return qc.lookup(n)
	case expr.And:
		return qc.junction(n.Children, " AND ", "1 = 1")
	case expr.Or:
		return qc.junction(n.Children, " OR ", "1 = 0")
	case expr.Not:
		sql, params, err := qc.expr(n.Child)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", params, nil
	case expr.Aggregate:
		return qc.aggregate(n)
	case expr.Compilable:
		return qc.compilable(n)
	default:
		return "", nil, fmt.Errorf("unsupported expression type: %T", e)
	}
}

// field renders a name of the current query: an annotation is inlined,
// anything else must resolve to a model field.
func (qc *queryCompiler) field(name string) (string, []any, error) {
	if qc.q == nil || qc.scope == nil {
		return "", nil, fmt.Errorf("field %q referenced outside of a query", name)
	}
	if a, ok := qc.q.Annotation(name); ok {
		if qc.inlining[name] {
			return "", nil, fmt.Errorf("annotation %q refers to itself", name)
		}
		if qc.inWhere && containsAggregate(a) {
			return "", nil, fmt.Errorf("cannot filter on aggregate annotation %q", name)
		}
		qc.inlining[name] = true
		defer delete(qc.inlining, name)
		return qc.expr(a)
	}
	f, err := qc.scope.Model.Field(name)
	if err != nil {
		return "", nil, err
	}
	return qc.column(f), nil, nil
}

func containsAggregate(e expr.Expression) bool {
	found := false
	expr.Walk(e, func(n expr.Expression, level int) bool {
		if _, ok := n.(expr.Aggregate); ok && level == 0 {
			found = true
		}
		return !found && level == 0
	})
	return found
}

func (qc *queryCompiler) value(v any) (string, []any, error) {
	iv, err := ir.FromAny(v)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	p, err := ir.ToParam(iv)
	if err != nil {
		return "", nil, fmt.Errorf("convert value: %w", err)
	}
	return "?", []any{p}, nil
}

func (qc *queryCompiler) list(l expr.List) (string, []any, error) {
	parts := make([]string, len(l.Items))
	var params []any
	for i, item := range l.Items {
		sql, p, err := qc.expr(item)
		if err != nil {
			return "", nil, err
		}
		parts[i] = sql
		params = append(params, p...)
	}
	return "(" + strings.Join(parts, ", ") + ")", params, nil
}

var comparisons = map[expr.Op]string{
	expr.OpExact: "=",
	expr.OpGt:    ">",
	expr.OpGte:   ">=",
	expr.OpLt:    "<",
	expr.OpLte:   "<=",
}

func (qc *queryCompiler) lookup(l expr.Lookup) (string, []any, error) {
	if !l.Op.IsValid() {
		return "", nil, fmt.Errorf("unsupported lookup %q", l.Op)
	}
	if l.Op == expr.OpIn {
		if list, ok := l.RHS.(expr.List); ok && len(list.Items) == 0 {
			return "1 = 0", nil, nil
		}
	}

	lhs, params, err := qc.expr(l.LHS)
	if err != nil {
		return "", nil, err
	}

	switch l.Op {
	case expr.OpExact:
		if isNull(l.RHS) {
			return lhs + " IS NULL", params, nil
		}
		fallthrough
	case expr.OpGt, expr.OpGte, expr.OpLt, expr.OpLte:
		rhs, p, err := qc.expr(l.RHS)
		if err != nil {
			return "", nil, err
		}
		return lhs + " " + comparisons[l.Op] + " " + rhs, append(params, p...), nil

	case expr.OpIn:
		rhs := l.RHS
		switch n := rhs.(type) {
		case expr.List:
		case *expr.Subquery:
			if n.Query != nil && len(n.Query.Selected) == 0 {
				c := *n
				c.Query = n.Query.Values(schema.PKAlias)
				rhs = &c
			}
		default:
			return "", nil, fmt.Errorf("in lookup on %s requires a list or subquery, got %T", lhs, l.RHS)
		}
		sql, p, err := qc.expr(rhs)
		if err != nil {
			return "", nil, err
		}
		return lhs + " IN " + sql, append(params, p...), nil

	case expr.OpIsNull:
		v, ok := l.RHS.(expr.Value)
		null, isBool := v.V.(bool)
		if !ok || !isBool {
			return "", nil, fmt.Errorf("isnull lookup on %s requires a bool", lhs)
		}
		if null {
			return lhs + " IS NULL", params, nil
		}
		return lhs + " IS NOT NULL", params, nil

	default: // contains, startswith
		d := qc.comp.dialect
		if v, ok := l.RHS.(expr.Value); ok {
			s, ok := v.V.(string)
			if !ok {
				return "", nil, fmt.Errorf("%s lookup on %s requires a string, got %T", l.Op, lhs, v.V)
			}
			pattern := escapeLike(s) + "%"
			if l.Op == expr.OpContains {
				pattern = "%" + pattern
			}
			return d.Like(lhs, "?"), append(params, pattern), nil
		}
		rhs, p, err := qc.expr(l.RHS)
		if err != nil {
			return "", nil, err
		}
		pattern := d.Concat(rhs, "'%'")
		if l.Op == expr.OpContains {
			pattern = d.Concat("'%'", rhs, "'%'")
		}
		return d.Like(lhs, pattern), append(params, p...), nil
	}
}

func isNull(e expr.Expression) bool {
	v, ok := e.(expr.Value)
	if !ok {
		return false
	}
	if v.V == nil {
		return true
	}
	_, null := v.V.(ir.IRNull)
	return null
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (qc *queryCompiler) junction(children []expr.Expression, sep, empty string) (string, []any, error) {
	if len(children) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, len(children))
	var params []any
	for i, c := range children {
		sql, p, err := qc.expr(c)
		if err != nil {
			return "", nil, err
		}
		switch n := c.(type) {
		case expr.And:
			if len(n.Children) > 1 {
				sql = "(" + sql + ")"
			}
		case expr.Or:
			if len(n.Children) > 1 {
				sql = "(" + sql + ")"
			}
		}
		parts[i] = sql
		params = append(params, p...)
	}
	return strings.Join(parts, sep), params, nil
}

func (qc *queryCompiler) aggregate(a expr.Aggregate) (string, []any, error) {
	if a.Arg == nil {
		if a.Func != expr.AggCount {
			return "", nil, fmt.Errorf("%s requires an argument", a.Func)
		}
		return "COUNT(*)", nil, nil
	}
	sql, params, err := qc.expr(a.Arg)
	if err != nil {
		return "", nil, err
	}
	return string(a.Func) + "(" + sql + ")", params, nil
}

// compilable hands a self-rendering expression this query as its context.
// The result is cached for the rest of the compilation, so an annotation
// referenced from both the select list and the filter is rendered once.
func (qc *queryCompiler) compilable(n expr.Compilable) (string, []any, error) {
	key := cacheKey{node: n, level: qc.level}
	if qc.scope != nil {
		key.alias = qc.scope.Alias
		key.model = qc.scope.Model.Name
	}
	if f, ok := qc.comp.cache[key]; ok {
		return f.sql, slices.Clone(f.params), nil
	}
	sql, params, err := n.CompileSQL(qc)
	if err != nil {
		return "", nil, err
	}
	qc.comp.cache[key] = fragment{sql: sql, params: params}
	return sql, slices.Clone(params), nil
}

// ordering renders ORDER BY terms. Selected annotations are referenced by
// their output alias; the stable ordering tiebreaker is only added to the
// root query.
func (qc *queryCompiler) ordering(selected []string) ([]string, []any, error) {
	d := qc.comp.dialect
	var (
		terms  []string
		params []any
	)
	for _, o := range qc.q.Ordering {
		var (
			sql string
			p   []any
			err error
		)
		if f, ok := o.Expr.(expr.F); ok && slices.Contains(selected, f.Name) {
			if _, isAnnotation := qc.q.Annotation(f.Name); isAnnotation {
				sql = d.QuoteIdent(f.Name)
			}
		}
		if sql == "" {
			if sql, p, err = qc.expr(o.Expr); err != nil {
				return nil, nil, err
			}
		}
		if o.Descending {
			sql += " DESC"
		} else {
			sql += " ASC"
		}
		terms = append(terms, sql)
		params = append(params, p...)
	}

	if qc.comp.stable && qc.level == 0 {
		if pk, ok := qc.scope.Model.PrimaryKey(); ok {
			col := qc.column(pk)
			if !slices.Contains(terms, col+" ASC") && !slices.Contains(terms, col+" DESC") {
				terms = append(terms, col+" ASC")
			}
		}
	}
	return terms, params, nil
}
