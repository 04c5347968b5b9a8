package expr

// Walk visits e and its descendants in pre-order. level counts the subquery
// boundaries crossed between the starting expression and the visited node.
// Returning false from fn skips the node's children.
func Walk(e Expression, fn func(e Expression, level int) bool) {
	walk(e, 0, fn)
}

func walk(e Expression, level int, fn func(Expression, int) bool) {
	if e == nil || !fn(e, level) {
		return
	}
	switch n := e.(type) {
	case Lookup:
		walk(n.LHS, level, fn)
		walk(n.RHS, level, fn)
	case And:
		for _, c := range n.Children {
			walk(c, level, fn)
		}
	case Or:
		for _, c := range n.Children {
			walk(c, level, fn)
		}
	case Not:
		walk(n.Child, level, fn)
	case List:
		for _, c := range n.Items {
			walk(c, level, fn)
		}
	case Aggregate:
		walk(n.Arg, level, fn)
	case *Subquery:
		n.Query.walk(level+1, fn)
	case *Exists:
		n.Query.walk(level+1, fn)
	}
}

// Walk visits every expression of q: the where tree, annotations, then
// ordering, all at level 0.
func (q *Query) Walk(fn func(e Expression, level int) bool) {
	q.walk(0, fn)
}

func (q *Query) walk(level int, fn func(Expression, int) bool) {
	if q == nil {
		return
	}
	walk(q.Where, level, fn)
	for _, a := range q.Annotations {
		walk(a.Expr, level, fn)
	}
	for _, o := range q.Ordering {
		walk(o.Expr, level, fn)
	}
}

// RewriteFunc returns the replacement for e, or e itself to keep it.
type RewriteFunc func(e Expression, level int) (Expression, error)

// Rewrite rebuilds e bottom-up, applying fn to every node after its
// children have been rewritten. Subquery and Exists nodes are copied
// together with their inner query, so the input tree is never modified.
func Rewrite(e Expression, fn RewriteFunc) (Expression, error) {
	return rewrite(e, 0, fn)
}

func rewrite(e Expression, level int, fn RewriteFunc) (Expression, error) {
	if e == nil {
		return nil, nil
	}
	var err error
	switch n := e.(type) {
	case Lookup:
		if n.LHS, err = rewrite(n.LHS, level, fn); err != nil {
			return nil, err
		}
		if n.RHS, err = rewrite(n.RHS, level, fn); err != nil {
			return nil, err
		}
		e = n
	case And:
		if n.Children, err = rewriteAll(n.Children, level, fn); err != nil {
			return nil, err
		}
		e = n
	case Or:
		if n.Children, err = rewriteAll(n.Children, level, fn); err != nil {
			return nil, err
		}
		e = n
	case Not:
		if n.Child, err = rewrite(n.Child, level, fn); err != nil {
			return nil, err
		}
		e = n
	case List:
		if n.Items, err = rewriteAll(n.Items, level, fn); err != nil {
			return nil, err
		}
		e = n
	case Aggregate:
		if n.Arg, err = rewrite(n.Arg, level, fn); err != nil {
			return nil, err
		}
		e = n
	case *Subquery:
		c := *n
		if c.Query, err = n.Query.rewrite(level+1, fn); err != nil {
			return nil, err
		}
		e = &c
	case *Exists:
		c := *n
		if c.Query, err = n.Query.rewrite(level+1, fn); err != nil {
			return nil, err
		}
		e = &c
	}
	return fn(e, level)
}

func rewriteAll(in []Expression, level int, fn RewriteFunc) ([]Expression, error) {
	out := make([]Expression, len(in))
	for i, e := range in {
		r, err := rewrite(e, level, fn)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Rewrite returns a clone of q with fn applied to every expression.
func (q *Query) Rewrite(fn RewriteFunc) (*Query, error) {
	return q.rewrite(0, fn)
}

func (q *Query) rewrite(level int, fn RewriteFunc) (*Query, error) {
	if q == nil {
		return nil, nil
	}
	c := q.Clone()
	var err error
	if c.Where, err = rewrite(q.Where, level, fn); err != nil {
		return nil, err
	}
	for i, a := range q.Annotations {
		if c.Annotations[i].Expr, err = rewrite(a.Expr, level, fn); err != nil {
			return nil, err
		}
	}
	for i, o := range q.Ordering {
		if c.Ordering[i].Expr, err = rewrite(o.Expr, level, fn); err != nil {
			return nil, err
		}
	}
	return c, nil
}
