// Package store owns the canonical in-memory database and the snapshot
// backend persisting it. The whole database is loaded once at open and
// rewritten in full after every mutation; there are no partial writes.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/asaidimu/go-mimic/core/document"
	"go.uber.org/zap"
)

// ErrResourceNotFound indicates that a requested collection name does not
// exist in the loaded database.
var ErrResourceNotFound = errors.New("resource not found")

// ErrItemNotFound indicates that an existing collection holds no document
// with the requested id.
var ErrItemNotFound = errors.New("item not found")

// Backend loads and persists a full database snapshot. Implementations are
// free to use any medium (JSON file, SQLite, Bolt, plain memory) as long as
// Persist followed by Load round-trips the database.
type Backend interface {
	// Load reads the entire database. A backend with no prior state returns
	// an empty database, not an error.
	Load() (document.Database, error)

	// Persist rewrites the backend's state to match the given database.
	Persist(db document.Database) error

	// Name identifies the backend in logs.
	Name() string
}

// Store holds the live database and serializes access to it. A single mutex
// guards the whole read-mutate-persist cycle: the original runtime processed
// requests one at a time, and the lock preserves its lost-update-free
// behavior on a concurrent runtime.
type Store struct {
	mu      sync.Mutex
	db      document.Database
	backend Backend
	logger  *zap.Logger
}

// Open loads the backend's snapshot into memory and returns a ready store.
func Open(backend Backend, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load database from backend '%s': %w", backend.Name(), err)
	}
	if db == nil {
		db = document.Database{}
	}

	total := 0
	for _, docs := range db {
		total += len(docs)
	}
	logger.Info("Store opened",
		zap.String("backend", backend.Name()),
		zap.Int("collections", len(db)),
		zap.Int("documents", total))

	return &Store{db: db, backend: backend, logger: logger}, nil
}

// Resource returns a deep copy of the named collection.
func (s *Store) Resource(name string) ([]document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.db[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, name)
	}
	return document.CloneAll(docs), nil
}

// Has reports whether the named collection exists.
func (s *Store) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.db[name]
	return ok
}

// Resources returns the collection names in sorted order.
func (s *Store) Resources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.db))
	for name := range s.db {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Counts returns the number of documents per collection.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int, len(s.db))
	for name, docs := range s.db {
		counts[name] = len(docs)
	}
	return counts
}

// Snapshot returns a deep copy of the whole database. Readers work on the
// copy, so nothing a caller does to the result can reach store state.
func (s *Store) Snapshot() document.Database {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Clone()
}

// Update runs fn against the live database under the store lock. When fn
// succeeds the database is persisted synchronously before Update returns;
// a response built after Update implies the write already landed. When fn
// fails the in-memory mutation is NOT rolled back, matching the original's
// single-writer semantics where handler failures abort the whole request.
func (s *Store) Update(fn func(db document.Database) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.db); err != nil {
		return err
	}
	if err := s.backend.Persist(s.db); err != nil {
		return fmt.Errorf("failed to persist database to backend '%s': %w", s.backend.Name(), err)
	}
	return nil
}
