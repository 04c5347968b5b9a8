package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var libraryDir = filepath.Join("..", "..", "testdata", "models")

func TestLoadModelsDirectory(t *testing.T) {
	reg, err := LoadModels(libraryDir)
	require.NoError(t, err)

	names := make([]string, 0, len(reg.Models()))
	for _, m := range reg.Models() {
		names = append(names, m.Name)
	}
	assert.ElementsMatch(t, []string{"Publisher", "Book", "Tag"}, names)

	book, err := reg.Get("Book")
	require.NoError(t, err)
	f, err := book.Field("publisher")
	require.NoError(t, err)
	assert.Equal(t, "publisher_id", f.Column)
	assert.Equal(t, "Publisher", f.References)
}

func TestLoadModelsSingleFile(t *testing.T) {
	reg, err := LoadModels(filepath.Join(libraryDir, "library.cue"))
	require.NoError(t, err)

	_, err = reg.Get("Publisher")
	assert.NoError(t, err)
}

func TestLoadModelsSpansFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "publisher.cue"), []byte(`
package shop

model: Publisher: fields: {
	id: {type: "int", primary_key: true}
	name: string
}
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "book.cue"), []byte(`
package shop

model: Book: fields: {
	id: {type: "int", primary_key: true}
	publisher: {type: "int", references: "Publisher"}
}
`), 0644))

	reg, err := LoadModels(dir)
	require.NoError(t, err)
	assert.Len(t, reg.Models(), 2)
}

func TestLoadModelsMissingPath(t *testing.T) {
	_, err := LoadModels(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "models path")
}

func TestLoadModelsNoModels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.cue")
	require.NoError(t, os.WriteFile(path, []byte("other: 1\n"), 0644))

	_, err := LoadModels(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no models found")
}

func TestLoadModelsSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte("model: Book: {\n"), 0644))

	_, err := LoadModels(path)
	require.Error(t, err)
}

func TestLoadModelsJoinsValidationErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
model: Book: fields: {
	id: {type: "int", primary_key: true}
	isbn: {type: "string", primary_key: true}
	author: {type: "int", references: "Author"}
}
`), 0644))

	_, err := LoadModels(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMultiplePrimaryKeys)
	assert.Contains(t, err.Error(), ErrUnknownReference)
}

func TestLoadDirConflictingValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package x\n\nmodel: Book: table: \"books\"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cue"), []byte("package x\n\nmodel: Book: table: \"book\"\n"), 0644))

	_, err := LoadDir(dir)
	require.Error(t, err)
}
