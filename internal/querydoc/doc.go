// Package querydoc reads query definitions from YAML.
//
// A document mirrors the expr builder:
//
//	model: Publisher
//	annotate:
//	  - name: hot_title
//	    subquery:
//	      model: Book
//	      filter:
//	        - field: publisher
//	          outer_ref: pk
//	      order_by: ["-publication_date"]
//	      values: [title]
//	      limit: 1
//	filter:
//	  - field: name
//	    op: startswith
//	    value: A
//
// The legacy key SubQuery is accepted wherever subquery is.
package querydoc
