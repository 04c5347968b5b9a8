package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/subq/internal/schema"
)

func publisher() *schema.Model {
	return &schema.Model{
		Name:  "Publisher",
		Table: "publisher",
		Fields: []schema.Field{
			{Name: "id", Column: "id", Type: schema.TypeInt, PrimaryKey: true},
			{Name: "name", Column: "name", Type: schema.TypeString},
		},
	}
}

func book() *schema.Model {
	return &schema.Model{
		Name:  "Book",
		Table: "book",
		Fields: []schema.Field{
			{Name: "id", Column: "id", Type: schema.TypeInt, PrimaryKey: true},
			{Name: "publisher", Column: "publisher_id", Type: schema.TypeInt, References: "Publisher"},
		},
	}
}

func codes(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidateValid(t *testing.T) {
	errs := Validate([]*schema.Model{publisher(), book()})
	assert.Empty(t, errs, "valid models should have no errors")
}

func TestValidateNoFields(t *testing.T) {
	errs := Validate([]*schema.Model{{Name: "Empty", Table: "empty"}})
	assert.Equal(t, []string{ErrModelNoFields}, codes(errs))
}

func TestValidateInvalidType(t *testing.T) {
	m := publisher()
	m.Fields[1].Type = "float"

	errs := Validate([]*schema.Model{m})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidFieldType, errs[0].Code)
	assert.Equal(t, "model.Publisher.fields.name.type", errs[0].Field)
}

func TestValidateDuplicateColumn(t *testing.T) {
	m := publisher()
	m.Fields = append(m.Fields, schema.Field{Name: "title", Column: "name", Type: schema.TypeString})

	errs := Validate([]*schema.Model{m})
	assert.Equal(t, []string{ErrDuplicateColumn}, codes(errs))
	assert.Contains(t, errs[0].Message, `already used by field "name"`)
}

func TestValidateMultiplePrimaryKeys(t *testing.T) {
	m := publisher()
	m.Fields[1].PrimaryKey = true

	errs := Validate([]*schema.Model{m})
	assert.Equal(t, []string{ErrMultiplePrimaryKeys}, codes(errs))
}

func TestValidateUnknownReference(t *testing.T) {
	errs := Validate([]*schema.Model{book()})
	assert.Equal(t, []string{ErrUnknownReference}, codes(errs))
}

func TestValidateReferenceWithoutKey(t *testing.T) {
	p := publisher()
	p.Fields[0].PrimaryKey = false

	errs := Validate([]*schema.Model{p, book()})
	assert.Equal(t, []string{ErrReferenceNoKey}, codes(errs))
}

func TestValidateDuplicateModelAndTable(t *testing.T) {
	other := publisher()
	other.Name = "Imprint"

	errs := Validate([]*schema.Model{publisher(), publisher(), other})
	assert.Contains(t, codes(errs), ErrDuplicateModel)
	assert.Contains(t, codes(errs), ErrDuplicateTable)
}

func TestValidateReservedAndIdentifiers(t *testing.T) {
	m := &schema.Model{
		Name:  "Odd",
		Table: "odd table",
		Fields: []schema.Field{
			{Name: "pk", Column: "pk", Type: schema.TypeInt},
			{Name: "x", Column: `x"; DROP`, Type: schema.TypeInt},
		},
	}

	errs := Validate([]*schema.Model{m})
	assert.ElementsMatch(t, []string{ErrInvalidIdentifier, ErrReservedFieldName, ErrInvalidIdentifier}, codes(errs))
}

func TestValidationErrorString(t *testing.T) {
	err := ValidationError{Field: "model.Book", Message: "bad", Code: ErrModelNoFields}
	assert.Equal(t, "[E101] model.Book: bad", err.Error())
}
