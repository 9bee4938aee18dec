package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/storetest"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestNew_ReopensExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "bills.db")

	first, err := New(dbPath)
	if err != nil {
		t.Fatalf("first New failed: %v", err)
	}
	first.Close()

	// Migrations are already applied; a second open must not fail.
	second, err := New(dbPath)
	if err != nil {
		t.Fatalf("second New failed: %v", err)
	}
	second.Close()
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "?"},
		{3, "?, ?, ?"},
	}
	for _, tt := range tests {
		if got := placeholders(tt.n); got != tt.want {
			t.Errorf("placeholders(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
