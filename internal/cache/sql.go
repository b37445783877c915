package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS cache_entries (
		cache_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)
`

const mysqlSchema = `
	CREATE TABLE IF NOT EXISTS cache_entries (
		cache_key CHAR(64) NOT NULL PRIMARY KEY,
		payload MEDIUMTEXT NOT NULL
	)
`

// SQLStore persists entries in a single cache_entries table. Keys are stored
// as sha256 hex digests, so query length is not bounded by the key column.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path
func NewSQLiteStore(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	return newSQLStore(db, "sqlite3", sqliteSchema)
}

// NewMySQLStore connects to MySQL using dsn
func NewMySQLStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	return newSQLStore(db, "mysql", mysqlSchema)
}

func newSQLStore(db *sql.DB, driver, schema string) (*SQLStore, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// Get returns the payload stored under key
func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM cache_entries WHERE cache_key = ?`, storageKey(key)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cache entry: %w", err)
	}
	return payload, true, nil
}

// Set stores value under key. REPLACE works on both SQLite and MySQL.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, `REPLACE INTO cache_entries (cache_key, payload) VALUES (?, ?)`, storageKey(key), value); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Remove deletes key
func (s *SQLStore) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key = ?`, storageKey(key)); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func storageKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Driver returns the database/sql driver name
func (s *SQLStore) Driver() string {
	return s.driver
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
