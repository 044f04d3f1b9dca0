package bolt

import (
	"path/filepath"
	"testing"

	"github.com/asaidimu/go-mimic/core/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshot() document.Database {
	return document.Database{
		"pacotes": []document.Document{
			{"id": float64(1), "name": "Setup Gamer"},
			{"id": float64(2), "name": "Setup Office"},
		},
		"avaliacoes": []document.Document{
			{"id": float64(1), "pacoteId": float64(1), "rating": float64(5)},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mimic.bolt")

	backend, err := NewBackend(path, nil)
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Persist(snapshot()))

	db, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, snapshot(), db)
}

func TestFreshFileLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mimic.bolt")

	backend, err := NewBackend(path, nil)
	require.NoError(t, err)
	defer backend.Close()

	db, err := backend.Load()
	require.NoError(t, err)
	assert.Empty(t, db)
}

func TestPersistIsFullRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mimic.bolt")

	backend, err := NewBackend(path, nil)
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.Persist(snapshot()))

	smaller := document.Database{
		"pacotes": []document.Document{{"id": float64(1), "name": "Setup Gamer"}},
	}
	require.NoError(t, backend.Persist(smaller))

	db, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, smaller, db)
	assert.NotContains(t, db, "avaliacoes")
}

func TestInsertionOrderSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mimic.bolt")

	backend, err := NewBackend(path, nil)
	require.NoError(t, err)
	defer backend.Close()

	ordered := document.Database{"itens": []document.Document{}}
	for i := 1; i <= 10; i++ {
		ordered["itens"] = append(ordered["itens"], document.Document{"id": float64(i)})
	}
	require.NoError(t, backend.Persist(ordered))

	db, err := backend.Load()
	require.NoError(t, err)
	require.Len(t, db["itens"], 10)
	for i, doc := range db["itens"] {
		assert.EqualValues(t, i+1, doc["id"])
	}
}
