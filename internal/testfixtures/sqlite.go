package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/wavemeet/internal/persistence/sqlite"
	"github.com/example/wavemeet/internal/persistence/sqlite/migration"
)

// NewSQLiteStorage opens a migrated SQLite database in a temporary directory
// and closes it when the test ends. A file is used rather than :memory:
// because every pooled connection must see the same database.
func NewSQLiteStorage(tb testing.TB) *sqlite.Storage {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "wavemeet.db")
	storage, err := sqlite.Open(migration.TempFileTestSQLiteConfig(path), DiscardLogger())
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return storage
}
