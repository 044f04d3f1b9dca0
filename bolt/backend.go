// Package bolt provides a store.Backend over a Bolt (bbolt) file: one bucket
// per collection, keys encoding insertion order, JSON document values. Like
// the other backends, Persist rewrites the whole snapshot.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/asaidimu/go-mimic/core/document"
	"github.com/asaidimu/go-mimic/core/store"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Backend persists snapshots to a bbolt database file.
type Backend struct {
	db     *bbolt.DB
	path   string
	logger *zap.Logger
}

var _ store.Backend = (*Backend)(nil)

// NewBackend opens (creating if needed) the bolt file at path.
func NewBackend(path string, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db '%s': %w", path, err)
	}
	return &Backend{db: db, path: path, logger: logger}, nil
}

func (b *Backend) Name() string { return "bolt:" + b.path }

// Close releases the file lock.
func (b *Backend) Close() error { return b.db.Close() }

func (b *Backend) Load() (document.Database, error) {
	db := document.Database{}
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, bucket *bbolt.Bucket) error {
			collection := string(name)
			return bucket.ForEach(func(_, v []byte) error {
				var doc document.Document
				if err := json.Unmarshal(v, &doc); err != nil {
					return fmt.Errorf("failed to decode document in '%s': %w", collection, err)
				}
				db[collection] = append(db[collection], doc)
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (b *Backend) Persist(snapshot document.Database) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		// Drop every existing bucket so removed collections and documents
		// do not survive the rewrite.
		var stale [][]byte
		if err := tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			stale = append(stale, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}
		for _, name := range stale {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("failed to drop bucket '%s': %w", name, err)
			}
		}

		for collection, docs := range snapshot {
			bucket, err := tx.CreateBucket([]byte(collection))
			if err != nil {
				return fmt.Errorf("failed to create bucket '%s': %w", collection, err)
			}
			for i, doc := range docs {
				raw, err := json.Marshal(doc)
				if err != nil {
					return fmt.Errorf("failed to encode document in '%s': %w", collection, err)
				}
				key := make([]byte, 8)
				binary.BigEndian.PutUint64(key, uint64(i))
				if err := bucket.Put(key, raw); err != nil {
					return fmt.Errorf("failed to write document in '%s': %w", collection, err)
				}
			}
		}
		return nil
	})
}
