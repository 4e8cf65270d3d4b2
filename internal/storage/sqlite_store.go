package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/overlaycfg/internal/events"
)

// schemaVersion of the documents table.
const schemaVersion = 1

// SQLiteStore keeps documents as rows keyed by location and path.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = events.Discard()
	}

	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

// initialize creates tables.
func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        location TEXT NOT NULL,
        path TEXT NOT NULL,
        body TEXT NOT NULL,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (location, path)
    );

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `

	if _, err := s.db.Exec(schema, schemaVersion); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load retrieves a document body.
func (s *SQLiteStore) Load(ctx context.Context, loc Location, path string) (string, error) {
	key, err := cleanPath(path)
	if err != nil {
		return "", wrapErr("load", loc, path, err)
	}

	var body string
	err = s.db.QueryRowContext(ctx, `
        SELECT body FROM documents
        WHERE location = ? AND path = ?
    `, loc.String(), key).Scan(&body)

	if errors.Is(err, sql.ErrNoRows) {
		return "", wrapErr("load", loc, path, ErrNotFound)
	}
	if err != nil {
		return "", wrapErr("load", loc, path, fmt.Errorf("query document: %w", err))
	}

	tagged(ctx, s.logger).WithFields(map[string]interface{}{
		"location": loc.String(),
		"path":     key,
	}).Debug("Loaded document from SQLite")

	return body, nil
}

// Store upserts a document body.
func (s *SQLiteStore) Store(ctx context.Context, text string, loc Location, path string) error {
	key, err := cleanPath(path)
	if err != nil {
		return wrapErr("store", loc, path, err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO documents (location, path, body, updated_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(location, path) DO UPDATE SET
            body = excluded.body,
            updated_at = CURRENT_TIMESTAMP
    `, loc.String(), key, text)
	if err != nil {
		return wrapErr("store", loc, path, fmt.Errorf("upsert document: %w", err))
	}

	tagged(ctx, s.logger).WithFields(map[string]interface{}{
		"location": loc.String(),
		"path":     key,
		"size":     len(text),
	}).Debug("Stored document in SQLite")

	return nil
}

// Exists reports whether a row is present.
func (s *SQLiteStore) Exists(ctx context.Context, loc Location, path string) (bool, error) {
	key, err := cleanPath(path)
	if err != nil {
		return false, wrapErr("exists", loc, path, err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, `
        SELECT 1 FROM documents WHERE location = ? AND path = ?
    `, loc.String(), key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("exists", loc, path, err)
	}
	return true, nil
}

// List returns the document paths stored under loc.
func (s *SQLiteStore) List(ctx context.Context, loc Location) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT path FROM documents WHERE location = ? ORDER BY path
    `, loc.String())
	if err != nil {
		return nil, wrapErr("list", loc, "", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, wrapErr("list", loc, "", fmt.Errorf("scan row: %w", err))
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list", loc, "", err)
	}
	return paths, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
