package lookup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteSchema is the table layout SQLite maps read from. It is exported
// so tooling and tests can create compatible databases.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`

const sqliteLookupQuery = `SELECT value FROM entries WHERE key = ? LIMIT 1`

// SQLite is a map backed by a key/value table in a SQLite database. It
// fills the role CDB files do elsewhere: a compact on-disk key database
// shared read-only between processes.
type SQLite struct {
	db   *sql.DB
	stmt *sql.Stmt
	path string
}

// NewSQLite opens the database at path and prepares the lookup statement.
// A missing database or missing entries table is a construction error.
func NewSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open map database %q: %w", path, err)
	}

	// SQLite supports a single writer; lookups are read-only.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	stmt, err := db.Prepare(sqliteLookupQuery)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare map lookup for %q: %w", path, err)
	}

	return &SQLite{db: db, stmt: stmt, path: path}, nil
}

// Lookup queries the entries table for key.
func (m *SQLite) Lookup(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := m.stmt.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("map database %q: %w", m.path, err)
	}
	return value, true, nil
}

// Path returns the database path.
func (m *SQLite) Path() string {
	return m.path
}

// Close releases the prepared statement and the database handle.
func (m *SQLite) Close() error {
	m.stmt.Close()
	return m.db.Close()
}
