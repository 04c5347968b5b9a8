// Package expr provides the query expression tree compiled by querysql.
//
// A Query names a model and carries a where tree, ordered annotations, a
// values selection, ordering and a slice. Expressions are sealed: only
// types in this package implement Expression, so compilers can switch
// exhaustively.
//
// # Correlated subqueries
//
// OuterRef is a placeholder for "column X of the row the enclosing query is
// currently producing". It resolves nothing on its own. Subquery wraps an
// inner Query; when the host compiler reaches it, Subquery clones the inner
// query, rewrites every OuterRef that targets the enclosing query into a Col
// bound to the enclosing alias, has the host compile the rewritten query one
// alias level deeper, and wraps the result in its template:
//
//	newest := expr.From("Book").
//		Filter(expr.Eq("publisher", expr.Outer("pk"))).
//		OrderBy("-publication_date").
//		Values("title").
//		Slice(0, 1)
//
//	q := expr.From("Publisher").Annotate("hot_title", expr.NewSubquery(newest))
//
// compiles (SQLite dialect) to
//
//	SELECT "publisher"."id", "publisher"."name",
//	  (SELECT U0."title" FROM "book" U0
//	   WHERE U0."publisher_id" = "publisher"."id"
//	   ORDER BY U0."publication_date" DESC LIMIT 1) AS "hot_title"
//	FROM "publisher"
//
// Definitions are never mutated during compilation, so a Subquery or Query
// value may be shared between goroutines compiling different outer queries.
//
// The inner query's alias depends on its nesting depth (U0 one level down,
// V0 two levels down) and skips any alias equal to the root query's table
// name. An uncorrelated Subquery therefore compiles to the same SQL in
// every context at the same depth, not in every context.
//
// OuterRef.Depth reaches past the immediately enclosing query: depth 1 is
// the query enclosing that one, and so on. Outer("x").Up() builds it.
//
// SubQuery and NewSubQuery are the legacy spellings of Subquery and
// NewSubquery. They are aliases, so code migrating between them generates
// the same SQL.
package expr
