package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/asaidimu/go-mimic/core/document"
	"go.uber.org/zap"
)

// ErrStoreNotFound indicates that none of the candidate database files could
// be loaded at startup. This is fatal for the process instance.
var ErrStoreNotFound = errors.New("no database file found")

// FileBackend mirrors the database to a single JSON file: a top-level object
// mapping resource names to arrays of documents. Load walks a fallback list
// of candidate paths in order; the first file that exists and parses becomes
// the active path, and every subsequent Persist rewrites that same file.
type FileBackend struct {
	candidates []string
	active     string
	logger     *zap.Logger
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend creates a file backend over the given candidate paths.
func NewFileBackend(logger *zap.Logger, candidates ...string) *FileBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileBackend{candidates: candidates, logger: logger}
}

func (b *FileBackend) Name() string {
	return "json:" + b.active
}

// Path returns the file Persist writes to. Empty before a successful Load.
func (b *FileBackend) Path() string {
	return b.active
}

func (b *FileBackend) Load() (document.Database, error) {
	for _, path := range b.candidates {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read database file '%s': %w", path, err)
		}

		var db document.Database
		if err := json.Unmarshal(raw, &db); err != nil {
			b.logger.Warn("Skipping unparseable database file",
				zap.String("path", path), zap.Error(err))
			continue
		}

		b.active = path
		b.logger.Info("Loaded database file", zap.String("path", path))
		return db, nil
	}
	return nil, fmt.Errorf("%w: tried %v", ErrStoreNotFound, b.candidates)
}

func (b *FileBackend) Persist(db document.Database) error {
	if b.active == "" {
		return fmt.Errorf("file backend has no active path; Load must succeed first")
	}
	raw, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize database: %w", err)
	}
	if err := os.WriteFile(b.active, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write database file '%s': %w", b.active, err)
	}
	return nil
}
