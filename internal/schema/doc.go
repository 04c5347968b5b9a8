// Package schema describes the models a query can target: their tables,
// their fields and the column each field is stored in.
//
// Field lookup accepts a field name, its column name, or the "pk" alias for
// the model's primary key. Failed lookups return *FieldResolutionError, which
// is also what an outer reference reports when it names a field the outer
// model does not have.
package schema
