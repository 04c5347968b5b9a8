package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/subq/internal/ir"
	"github.com/roach88/subq/internal/schema"
	"github.com/roach88/subq/internal/testutil"
)

// createTestStore creates a new store in a temp dir with deterministic
// execution IDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDGenerator("exec")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedLibrary creates the library tables and two publishers with three
// books between them.
func seedLibrary(t *testing.T, s *Store) *schema.Registry {
	t.Helper()
	ctx := context.Background()
	reg := testutil.Library()
	if err := s.CreateTables(ctx, reg); err != nil {
		t.Fatalf("CreateTables() failed: %v", err)
	}

	publisher, _ := reg.Get("Publisher")
	book, _ := reg.Get("Book")
	rows := []struct {
		m   *schema.Model
		row ir.IRObject
	}{
		{publisher, ir.IRObject{"id": ir.IRInt(1), "name": ir.IRString("Ace")}},
		{publisher, ir.IRObject{"id": ir.IRInt(2), "name": ir.IRString("Baen")}},
		{book, ir.IRObject{"id": ir.IRInt(1), "title": ir.IRString("Dune"), "publisher": ir.IRInt(1), "publication_date": ir.IRString("1965-08-01"), "pages": ir.IRInt(412)}},
		{book, ir.IRObject{"id": ir.IRInt(2), "title": ir.IRString("Neuromancer"), "publisher": ir.IRInt(1), "publication_date": ir.IRString("1984-07-01"), "pages": ir.IRInt(271)}},
		{book, ir.IRObject{"id": ir.IRInt(3), "title": ir.IRString("Ringworld"), "publisher": ir.IRInt(2), "publication_date": ir.IRString("1970-10-01"), "pages": ir.IRInt(342)}},
	}
	for _, r := range rows {
		if err := s.Insert(ctx, r.m, r.row); err != nil {
			t.Fatalf("Insert() failed: %v", err)
		}
	}
	return reg
}
