// Package sqlite provides a store.Backend that mirrors database snapshots to
// a single SQLite file. It keeps the same full-rewrite contract as the JSON
// file backend: every Persist replaces the entire documents table inside one
// transaction.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/asaidimu/go-mimic/core/document"
	"github.com/asaidimu/go-mimic/core/store"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

// Backend stores one row per document:
//
//	documents(collection, position, doc)  PRIMARY KEY (collection, position)
//
// position preserves each collection's insertion order across reloads.
type Backend struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var _ store.Backend = (*Backend)(nil)

// NewBackend opens (creating if needed) the SQLite file at path.
func NewBackend(path string, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database '%s': %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		position INTEGER NOT NULL,
		doc TEXT NOT NULL,
		PRIMARY KEY (collection, position)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}
	return &Backend{db: db, path: path, logger: logger}, nil
}

func (b *Backend) Name() string { return "sqlite:" + b.path }

// Close releases the underlying connection pool.
func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) Load() (document.Database, error) {
	rows, err := b.db.Query(
		"SELECT collection, doc FROM documents ORDER BY collection, position")
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	defer rows.Close()

	db := document.Database{}
	for rows.Next() {
		var collection, raw string
		if err := rows.Scan(&collection, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		var doc document.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document in '%s': %w", collection, err)
		}
		db[collection] = append(db[collection], doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return db, nil
}

func (b *Backend) Persist(db document.Database) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM documents"); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	for collection, docs := range db {
		for position, doc := range docs {
			raw, err := json.Marshal(doc)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to encode document in '%s': %w", collection, err)
			}
			if _, err := tx.Exec(
				"INSERT INTO documents (collection, position, doc) VALUES (?, ?, ?)",
				collection, position, string(raw)); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to insert document in '%s': %w", collection, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}
