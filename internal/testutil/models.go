package testutil

import "github.com/roach88/subq/internal/schema"

// Library returns a fresh registry with the Publisher/Book/Tag models used
// throughout the tests. Tag has no primary key.
func Library() *schema.Registry {
	return schema.NewRegistry(
		&schema.Model{
			Name:  "Publisher",
			Table: "publisher",
			Fields: []schema.Field{
				{Name: "id", Column: "id", Type: schema.TypeInt, PrimaryKey: true},
				{Name: "name", Column: "name", Type: schema.TypeString},
			},
		},
		&schema.Model{
			Name:  "Book",
			Table: "book",
			Fields: []schema.Field{
				{Name: "id", Column: "id", Type: schema.TypeInt, PrimaryKey: true},
				{Name: "title", Column: "title", Type: schema.TypeString},
				{Name: "publisher", Column: "publisher_id", Type: schema.TypeInt, References: "Publisher"},
				{Name: "publication_date", Column: "publication_date", Type: schema.TypeDate},
				{Name: "pages", Column: "pages", Type: schema.TypeInt},
			},
		},
		&schema.Model{
			Name:   "Tag",
			Table:  "tag",
			Fields: []schema.Field{{Name: "label", Column: "label", Type: schema.TypeString}},
		},
	)
}
