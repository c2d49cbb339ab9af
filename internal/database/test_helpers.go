package database

import (
	"path/filepath"
	"testing"
)

// setupTestDB opens a throwaway sqlite database and applies the real
// migrations, so repository tests run against the production schema.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(Config{Path: filepath.Join(t.TempDir(), "videolitic_test.db")})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrator := NewMigrator(db.Conn())
	if err := migrator.Run(filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}
