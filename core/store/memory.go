package store

import "github.com/asaidimu/go-mimic/core/document"

// MemoryBackend holds a database snapshot in memory with no I/O. It exists
// for unit tests and for embedding the store inside another process without
// touching the filesystem.
type MemoryBackend struct {
	db document.Database
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend seeds a memory backend. A nil seed yields an empty
// database. The seed is cloned so the caller's copy stays independent.
func NewMemoryBackend(seed document.Database) *MemoryBackend {
	if seed == nil {
		seed = document.Database{}
	}
	return &MemoryBackend{db: seed.Clone()}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Load() (document.Database, error) {
	return b.db.Clone(), nil
}

func (b *MemoryBackend) Persist(db document.Database) error {
	b.db = db.Clone()
	return nil
}

// Database returns a copy of the last persisted state, for assertions.
func (b *MemoryBackend) Database() document.Database {
	return b.db.Clone()
}
