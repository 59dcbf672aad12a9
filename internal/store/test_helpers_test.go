package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/reorder/internal/ir"
)

// drivers lists every driver the store supports; tests that touch SQL run
// against each.
var drivers = []string{DriverMattn, DriverModernc}

// createTestStore opens a store in a fresh temp directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertMenu adds a menu row under parent with the given key.
func insertMenu(t *testing.T, s *Store, title string, parent, key int64) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), "menu", ir.IRObject{
		"title":     ir.IRString(title),
		"parent_id": ir.IRInt(parent),
		"order_key": ir.IRInt(key),
	})
	if err != nil {
		t.Fatalf("Insert(%q) failed: %v", title, err)
	}
	return id
}
