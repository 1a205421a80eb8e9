// Package testutil holds shared test fixtures.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/raido/internal/store"
)

// TestStore opens a throwaway SQLite store backed by a temp file and
// registers cleanup on t.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	f, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := store.Open(f.Name())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
