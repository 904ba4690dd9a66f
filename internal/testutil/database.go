package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ndewijer/portfolio-service/internal/database"
	"github.com/ndewijer/portfolio-service/internal/repository"
)

// SetupTestDB creates an in-memory SQLite database with the schema migrated.
// The database is automatically cleaned up when the test completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// NewTestSQLiteStore returns a SQLiteStore on a fresh in-memory database.
func NewTestSQLiteStore(t *testing.T) (*repository.SQLiteStore, *sql.DB) {
	t.Helper()
	db := SetupTestDB(t)
	return repository.NewSQLiteStore(db), db
}

// NewTestFileStore returns a FileStore writing to a temp directory, and the file path.
func NewTestFileStore(t *testing.T) (*repository.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portfolios.json")
	return repository.NewFileStore(path, zerolog.Nop()), path
}
