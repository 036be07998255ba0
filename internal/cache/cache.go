package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// Entry is one cached lowering result.
type Entry struct {
	Fingerprint        string
	LoweredFingerprint string
	LoweredJSON        []byte
	RunID              string
}

// Cache stores lowered query plans in SQLite, keyed by the canonical
// fingerprint of the input block sequence.
type Cache struct {
	db *sql.DB
}

// Open creates or opens a cache database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Put stores a lowering result under its query fingerprint, replacing
// any previous row for the same fingerprint. The returned run ID
// identifies this write.
func (c *Cache) Put(ctx context.Context, fingerprint, loweredFingerprint string, loweredJSON []byte) (string, error) {
	runID := uuid.New().String()

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO lowered_queries
			(fingerprint, lowered_fingerprint, lowered_json, run_id)
		VALUES (?, ?, ?, ?)
	`, fingerprint, loweredFingerprint, string(loweredJSON), runID)
	if err != nil {
		return "", fmt.Errorf("failed to store lowered query %s: %w", fingerprint, err)
	}

	return runID, nil
}

// Get retrieves the cached lowering result for a query fingerprint.
// The second return value reports whether an entry was found.
func (c *Cache) Get(ctx context.Context, fingerprint string) (Entry, bool, error) {
	var entry Entry
	var loweredJSON string

	err := c.db.QueryRowContext(ctx, `
		SELECT fingerprint, lowered_fingerprint, lowered_json, run_id
		FROM lowered_queries
		WHERE fingerprint = ?
	`, fingerprint).Scan(&entry.Fingerprint, &entry.LoweredFingerprint, &loweredJSON, &entry.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to load lowered query %s: %w", fingerprint, err)
	}

	entry.LoweredJSON = []byte(loweredJSON)
	return entry, true, nil
}

// Len reports the number of cached entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lowered_queries").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (c *Cache) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := c.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
