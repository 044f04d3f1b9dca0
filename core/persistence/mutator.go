// Package persistence implements the write side of the store: create,
// replace, merge, and delete with cascading removal of dependent documents,
// wrapped with event emission for observability.
package persistence

import (
	"fmt"
	"time"

	"github.com/asaidimu/go-mimic/core/document"
	"github.com/asaidimu/go-mimic/core/store"
	"go.uber.org/zap"
)

// Mutator performs the actual mutations against the store. Every operation
// runs inside store.Update, so the in-memory change and the backend persist
// complete before the call returns.
type Mutator struct {
	store  *store.Store
	clock  func() time.Time
	logger *zap.Logger
}

// NewMutator creates a mutator over the given store. A nil clock defaults to
// time.Now; tests inject a fixed clock for deterministic timestamps.
func NewMutator(s *store.Store, clock func() time.Time, logger *zap.Logger) *Mutator {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutator{store: s, clock: clock, logger: logger}
}

func (m *Mutator) timestamp() string {
	return m.clock().UTC().Format(time.RFC3339)
}

// Insert appends a new document to the collection. The id is allocated as
// one past the largest numeric id already present, and createdAt is stamped
// unless the body already carries one.
func (m *Mutator) Insert(resource string, doc document.Document) (document.Document, error) {
	var created document.Document
	err := m.store.Update(func(db document.Database) error {
		docs, ok := db[resource]
		if !ok {
			return fmt.Errorf("%w: %s", store.ErrResourceNotFound, resource)
		}
		created = doc.Clone()
		if created == nil {
			created = document.Document{}
		}
		created["id"] = document.MaxID(docs) + 1
		if _, ok := created["createdAt"]; !ok {
			created["createdAt"] = m.timestamp()
		}
		db[resource] = append(docs, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Inserted document",
		zap.String("resource", resource), zap.Any("id", created["id"]))
	return created.Clone(), nil
}

// Replace swaps the stored document for the submitted body wholesale. The
// body's id, if any, is discarded in favor of the original document's id, and
// updatedAt is stamped.
func (m *Mutator) Replace(resource, id string, doc document.Document) (document.Document, error) {
	var replaced document.Document
	err := m.store.Update(func(db document.Database) error {
		docs, idx, err := locate(db, resource, id)
		if err != nil {
			return err
		}
		replaced = doc.Clone()
		if replaced == nil {
			replaced = document.Document{}
		}
		replaced["id"] = docs[idx]["id"]
		replaced["updatedAt"] = m.timestamp()
		docs[idx] = replaced
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replaced.Clone(), nil
}

// Merge overlays the submitted body onto the stored document: submitted
// fields win, untouched fields survive, and updatedAt is stamped. The merge
// is shallow; nested structures are replaced, not merged.
func (m *Mutator) Merge(resource, id string, doc document.Document) (document.Document, error) {
	var merged document.Document
	err := m.store.Update(func(db document.Database) error {
		docs, idx, err := locate(db, resource, id)
		if err != nil {
			return err
		}
		merged = docs[idx].Clone()
		for k, v := range doc.Clone() {
			merged[k] = v
		}
		merged["updatedAt"] = m.timestamp()
		docs[idx] = merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged.Clone(), nil
}

// Remove deletes the document and every document that transitively references
// it through the foreign-key convention. The returned CascadeResult maps each
// touched resource to the ids removed from it, the root included.
func (m *Mutator) Remove(resource, id string) (document.Document, CascadeResult, error) {
	var removed document.Document
	cascade := CascadeResult{}
	err := m.store.Update(func(db document.Database) error {
		docs, idx, err := locate(db, resource, id)
		if err != nil {
			return err
		}
		removed = docs[idx]
		db[resource] = append(docs[:idx:idx], docs[idx+1:]...)
		cascade.add(resource, removed["id"])
		cascadeDelete(db, resource, removed["id"], cascade)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	m.logger.Debug("Removed document",
		zap.String("resource", resource),
		zap.Any("id", removed["id"]),
		zap.Int("cascaded", cascade.size()-1))
	return removed.Clone(), cascade, nil
}

func locate(db document.Database, resource, id string) ([]document.Document, int, error) {
	docs, ok := db[resource]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", store.ErrResourceNotFound, resource)
	}
	idx := document.FindByID(docs, id)
	if idx < 0 {
		return nil, 0, fmt.Errorf("%w: %s/%s", store.ErrItemNotFound, resource, id)
	}
	return docs, idx, nil
}
