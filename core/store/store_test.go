package store

import (
	"errors"
	"testing"

	"github.com/asaidimu/go-mimic/core/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed() document.Database {
	return document.Database{
		"clientes": []document.Document{
			{"id": float64(1), "name": "Cliente 1"},
			{"id": float64(2), "name": "Cliente 2"},
		},
		"pacotes": []document.Document{
			{"id": float64(1), "name": "Setup Gamer"},
		},
	}
}

func TestOpen(t *testing.T) {
	t.Run("Loads the backend snapshot", func(t *testing.T) {
		s, err := Open(NewMemoryBackend(seed()), nil)
		require.NoError(t, err)

		docs, err := s.Resource("clientes")
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("Nil database becomes empty", func(t *testing.T) {
		s, err := Open(NewMemoryBackend(nil), nil)
		require.NoError(t, err)
		assert.Empty(t, s.Resources())
	})
}

func TestResource(t *testing.T) {
	s, err := Open(NewMemoryBackend(seed()), nil)
	require.NoError(t, err)

	t.Run("Unknown resource", func(t *testing.T) {
		_, err := s.Resource("unknown")
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})

	t.Run("Result is isolated from store state", func(t *testing.T) {
		docs, err := s.Resource("clientes")
		require.NoError(t, err)
		docs[0]["name"] = "changed"

		again, err := s.Resource("clientes")
		require.NoError(t, err)
		assert.Equal(t, "Cliente 1", again[0]["name"])
	})
}

func TestSnapshotIsolation(t *testing.T) {
	s, err := Open(NewMemoryBackend(seed()), nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap["clientes"][0]["name"] = "changed"
	delete(snap, "pacotes")

	assert.True(t, s.Has("pacotes"))
	docs, err := s.Resource("clientes")
	require.NoError(t, err)
	assert.Equal(t, "Cliente 1", docs[0]["name"])
}

func TestUpdate(t *testing.T) {
	t.Run("Mutation persists to the backend", func(t *testing.T) {
		backend := NewMemoryBackend(seed())
		s, err := Open(backend, nil)
		require.NoError(t, err)

		err = s.Update(func(db document.Database) error {
			db["clientes"] = append(db["clientes"], document.Document{"id": float64(3)})
			return nil
		})
		require.NoError(t, err)

		assert.Len(t, backend.Database()["clientes"], 3)
	})

	t.Run("Failed mutation does not persist", func(t *testing.T) {
		backend := NewMemoryBackend(seed())
		s, err := Open(backend, nil)
		require.NoError(t, err)

		boom := errors.New("boom")
		err = s.Update(func(db document.Database) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Len(t, backend.Database()["clientes"], 2)
	})
}

func TestResourcesAndCounts(t *testing.T) {
	s, err := Open(NewMemoryBackend(seed()), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"clientes", "pacotes"}, s.Resources())
	assert.Equal(t, map[string]int{"clientes": 2, "pacotes": 1}, s.Counts())
}
