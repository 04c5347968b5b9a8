package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookModel() *Model {
	return &Model{
		Name:  "Book",
		Table: "book",
		Fields: []Field{
			{Name: "id", Column: "id", Type: TypeInt, PrimaryKey: true},
			{Name: "title", Column: "title", Type: TypeString},
			{Name: "publisher", Column: "publisher_id", Type: TypeInt, References: "Publisher"},
		},
	}
}

func TestModelFieldLookup(t *testing.T) {
	m := bookModel()

	tests := []struct {
		name   string
		lookup string
		want   string
	}{
		{"by name", "title", "title"},
		{"pk alias", "pk", "id"},
		{"foreign key by name", "publisher", "publisher"},
		{"foreign key by column", "publisher_id", "publisher"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := m.Field(tt.lookup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Name)
		})
	}
}

func TestModelFieldUnknown(t *testing.T) {
	_, err := bookModel().Field("isbn")
	require.Error(t, err)

	var fre *FieldResolutionError
	require.True(t, errors.As(err, &fre))
	assert.Equal(t, "Book", fre.Model)
	assert.Equal(t, "isbn", fre.Field)
	assert.Equal(t, []string{"pk", "id", "title", "publisher"}, fre.Choices)
	assert.Contains(t, err.Error(), `"isbn"`)
}

func TestModelWithoutPrimaryKey(t *testing.T) {
	m := &Model{
		Name:   "Tag",
		Table:  "tag",
		Fields: []Field{{Name: "label", Column: "label", Type: TypeString}},
	}

	_, ok := m.PrimaryKey()
	assert.False(t, ok)

	_, err := m.Field("pk")
	var fre *FieldResolutionError
	require.ErrorAs(t, err, &fre)
	assert.Equal(t, []string{"label"}, fre.Choices)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(bookModel())

	m, err := r.Get("Book")
	require.NoError(t, err)
	assert.Equal(t, "book", m.Table)

	_, err = r.Get("Author")
	assert.Error(t, err)

	replacement := bookModel()
	replacement.Table = "books"
	r.Add(replacement)
	require.Len(t, r.Models(), 1)
	assert.Equal(t, "books", r.Models()[0].Table)
}

func TestFieldTypeValidity(t *testing.T) {
	assert.True(t, TypeDate.IsValid())
	assert.False(t, FieldType("float").IsValid())
	assert.Equal(t, "INTEGER", TypeInt.SQLType())
	assert.Equal(t, "TEXT", TypeString.SQLType())
}
