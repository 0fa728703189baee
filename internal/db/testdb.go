package db

import (
	"database/sql"
	"testing"
)

// NewTestDB returns a migrated in-memory database that is closed when the
// test ends. The pool holds a single connection, so concurrent callers are
// serialized the way SQLite serializes writers on disk.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	database, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Errorf("closing test database: %v", err)
		}
	})

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("creating test database schema: %v", err)
	}

	var fk bool
	if err := database.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil || !fk {
		t.Fatalf("foreign keys not enabled on test database (err=%v)", err)
	}
	return database
}
