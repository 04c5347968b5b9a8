package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/schema"
	"github.com/roach88/subq/internal/testutil"
)

func TestCreateTableSQL(t *testing.T) {
	reg := testutil.Library()
	book, err := reg.Get("Book")
	require.NoError(t, err)

	ddl, err := createTableSQL(book, reg)
	require.NoError(t, err)
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "book" ("id" INTEGER PRIMARY KEY, "title" TEXT, `+
			`"publisher_id" INTEGER REFERENCES "publisher"("id"), "publication_date" DATE, "pages" INTEGER)`,
		ddl)
}

func TestCreateTableSQL_ReferenceWithoutKey(t *testing.T) {
	reg := testutil.Library()
	m := &schema.Model{
		Name:  "Label",
		Table: "label",
		Fields: []schema.Field{
			{Name: "tag", Column: "tag_id", Type: schema.TypeString, References: "Tag"},
		},
	}

	_, err := createTableSQL(m, reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tag has no primary key")
}

func TestCreateTables_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	reg := testutil.Library()

	require.NoError(t, s.CreateTables(ctx, reg))
	require.NoError(t, s.CreateTables(ctx, reg))

	for _, table := range []string{"publisher", "book", "tag"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestInsert_FieldOrColumnNames(t *testing.T) {
	s := createTestStore(t)
	seedLibrary(t, s)
	book, _ := testutil.Library().Get("Book")

	err := s.Insert(context.Background(), book, ir.IRObject{
		"id":           ir.IRInt(10),
		"title":        ir.IRString("Hyperion"),
		"publisher_id": ir.IRInt(2),
	})
	require.NoError(t, err)

	var publisherID int64
	require.NoError(t, s.db.QueryRow(`SELECT publisher_id FROM book WHERE id = 10`).Scan(&publisherID))
	assert.Equal(t, int64(2), publisherID)
}

func TestInsert_PrimaryKeyAlias(t *testing.T) {
	s := createTestStore(t)
	seedLibrary(t, s)
	pub, _ := testutil.Library().Get("Publisher")

	err := s.Insert(context.Background(), pub, ir.IRObject{
		"pk":   ir.IRInt(42),
		"name": ir.IRString("Orbit"),
	})
	require.NoError(t, err)

	var name string
	require.NoError(t, s.db.QueryRow(`SELECT name FROM publisher WHERE id = 42`).Scan(&name))
	assert.Equal(t, "Orbit", name)
}

func TestInsert_SameFieldTwice(t *testing.T) {
	s := createTestStore(t)
	seedLibrary(t, s)
	book, _ := testutil.Library().Get("Book")

	err := s.Insert(context.Background(), book, ir.IRObject{
		"id":           ir.IRInt(11),
		"publisher":    ir.IRInt(1),
		"publisher_id": ir.IRInt(2),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "given more than once")
}

func TestInsert_UnknownField(t *testing.T) {
	s := createTestStore(t)
	seedLibrary(t, s)
	book, _ := testutil.Library().Get("Book")

	err := s.Insert(context.Background(), book, ir.IRObject{"isbn": ir.IRString("x")})
	require.Error(t, err)

	var fre *schema.FieldResolutionError
	assert.ErrorAs(t, err, &fre)
}

func TestInsert_EmptyRow(t *testing.T) {
	s := createTestStore(t)
	seedLibrary(t, s)
	book, _ := testutil.Library().Get("Book")

	err := s.Insert(context.Background(), book, ir.IRObject{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row has no fields")
}

func TestInsert_ForeignKeyEnforced(t *testing.T) {
	s := createTestStore(t)
	seedLibrary(t, s)
	book, _ := testutil.Library().Get("Book")

	err := s.Insert(context.Background(), book, ir.IRObject{
		"id":        ir.IRInt(11),
		"title":     ir.IRString("Orphan"),
		"publisher": ir.IRInt(99),
	})
	require.Error(t, err)
}
