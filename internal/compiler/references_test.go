package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/subq/internal/schema"
)

func refModel(name string, refs ...string) *schema.Model {
	m := &schema.Model{
		Name:   name,
		Table:  name,
		Fields: []schema.Field{{Name: "id", Column: "id", Type: schema.TypeInt, PrimaryKey: true}},
	}
	for _, ref := range refs {
		m.Fields = append(m.Fields, schema.Field{Name: ref + "_ref", Column: ref + "_ref_id", Type: schema.TypeInt, References: ref})
	}
	return m
}

func modelNames(models []*schema.Model) []string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return names
}

func TestReferenceOrder_Empty(t *testing.T) {
	ordered, warnings := ReferenceOrder(nil)
	assert.Empty(t, ordered)
	assert.Empty(t, warnings)
}

func TestReferenceOrder_AlreadyOrdered(t *testing.T) {
	ordered, warnings := ReferenceOrder([]*schema.Model{
		refModel("Publisher"),
		refModel("Book", "Publisher"),
		refModel("Tag"),
	})
	assert.Equal(t, []string{"Publisher", "Book", "Tag"}, modelNames(ordered))
	assert.Empty(t, warnings)
}

func TestReferenceOrder_ReferencedModelsFirst(t *testing.T) {
	ordered, warnings := ReferenceOrder([]*schema.Model{
		refModel("Review", "Book"),
		refModel("Book", "Publisher"),
		refModel("Publisher"),
	})
	assert.Equal(t, []string{"Publisher", "Book", "Review"}, modelNames(ordered))
	assert.Empty(t, warnings)
}

func TestReferenceOrder_Diamond(t *testing.T) {
	ordered, _ := ReferenceOrder([]*schema.Model{
		refModel("Loan", "Book", "Member"),
		refModel("Book", "Library"),
		refModel("Member", "Library"),
		refModel("Library"),
	})
	names := modelNames(ordered)
	require.Len(t, names, 4)
	assert.Equal(t, "Library", names[0])
	assert.Equal(t, "Loan", names[3])
}

func TestReferenceOrder_SelfReference(t *testing.T) {
	ordered, warnings := ReferenceOrder([]*schema.Model{
		refModel("Category", "Category"),
	})
	assert.Equal(t, []string{"Category"}, modelNames(ordered))
	require.Len(t, warnings, 1)
	assert.Equal(t, "info", warnings[0].Level)
	assert.Equal(t, []string{"Category", "Category"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "references itself")
}

func TestReferenceOrder_Cycle(t *testing.T) {
	ordered, warnings := ReferenceOrder([]*schema.Model{
		refModel("Author", "Book"),
		refModel("Book", "Author"),
		refModel("Publisher"),
	})
	assert.Equal(t, []string{"Author", "Book", "Publisher"}, modelNames(ordered))

	require.Len(t, warnings, 1)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Equal(t, []string{"Author", "Book", "Author"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "reference cycle")
}

func TestReferenceOrder_IgnoresUnknownReferences(t *testing.T) {
	ordered, warnings := ReferenceOrder([]*schema.Model{
		refModel("Book", "Author"),
	})
	assert.Equal(t, []string{"Book"}, modelNames(ordered))
	assert.Empty(t, warnings)
}

func TestReferenceOrder_Deterministic(t *testing.T) {
	models := []*schema.Model{
		refModel("C", "A"),
		refModel("B"),
		refModel("A"),
		refModel("D", "B", "C"),
	}
	first, _ := ReferenceOrder(models)
	for i := 0; i < 20; i++ {
		again, _ := ReferenceOrder(models)
		assert.Equal(t, modelNames(first), modelNames(again))
	}
	assert.Equal(t, []string{"A", "C", "B", "D"}, modelNames(first))
}
