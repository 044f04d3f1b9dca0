package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asaidimu/go-mimic/core/document"
	"github.com/asaidimu/go-mimic/core/persistence"
	"github.com/asaidimu/go-mimic/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() document.Database {
	return document.Database{
		"clientes": []document.Document{
			{"id": float64(1), "name": "Cliente 1"},
			{"id": float64(2), "name": "Cliente 2"},
		},
		"pacotes": []document.Document{
			{"id": float64(1), "name": "Setup Gamer"},
		},
		"reservas": []document.Document{
			{"id": float64(1), "pacoteId": float64(1), "clienteId": float64(1)},
			{"id": float64(2), "pacoteId": float64(1), "clienteId": float64(2)},
		},
	}
}

func setup(t *testing.T) (*httptest.Server, *store.MemoryBackend) {
	t.Helper()
	backend := store.NewMemoryBackend(fixture())
	s, err := store.Open(backend, nil)
	require.NoError(t, err)
	p, err := persistence.New(s, nil, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(New(s, p, Config{}, nil))
	t.Cleanup(ts.Close)
	return ts, backend
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if raw, ok := body.(string); ok {
		reader = bytes.NewBufferString(raw)
	} else if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(encoded)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeObject(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

func decodeArray(t *testing.T, r io.Reader) []any {
	t.Helper()
	var v []any
	require.NoError(t, json.NewDecoder(r).Decode(&v))
	return v
}

func TestList(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/clientes", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeArray(t, resp.Body), 2)
}

func TestGetSingle(t *testing.T) {
	ts, _ := setup(t)

	t.Run("Found", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/clientes/1", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Cliente 1", decodeObject(t, resp.Body)["name"])
	})

	t.Run("Unknown id", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/clientes/99", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, decodeObject(t, resp.Body), "error")
	})

	t.Run("Unknown resource", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/nothing", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestQueryParameters(t *testing.T) {
	ts, _ := setup(t)

	t.Run("Equality filter", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/clientes?name=Cliente%201", nil)
		defer resp.Body.Close()
		docs := decodeArray(t, resp.Body)
		require.Len(t, docs, 1)
		assert.Equal(t, "Cliente 1", docs[0].(map[string]any)["name"])
	})

	t.Run("Embed on single fetch", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/pacotes/1?_embed=reservas", nil)
		defer resp.Body.Close()
		doc := decodeObject(t, resp.Body)
		embedded, ok := doc["reservas"].([]any)
		require.True(t, ok)
		assert.Len(t, embedded, 2)
	})

	t.Run("Expand on single fetch", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/reservas/1?_expand=cliente", nil)
		defer resp.Body.Close()
		doc := decodeObject(t, resp.Body)
		parent, ok := doc["cliente"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Cliente 1", parent["name"])
	})

	t.Run("Sort and paginate", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/clientes?_sort=id&_order=desc&_limit=1", nil)
		defer resp.Body.Close()
		docs := decodeArray(t, resp.Body)
		require.Len(t, docs, 1)
		// _limit slices before _sort, so the first stored document wins.
		assert.EqualValues(t, 1, docs[0].(map[string]any)["id"])
	})
}

func TestCreate(t *testing.T) {
	ts, backend := setup(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/clientes", map[string]any{"name": "Cliente 3"})
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeObject(t, resp.Body)
	assert.EqualValues(t, 3, created["id"])
	assert.NotEmpty(t, created["createdAt"])

	assert.Len(t, backend.Database()["clientes"], 3)
}

func TestReplace(t *testing.T) {
	ts, _ := setup(t)

	t.Run("Id in body is ignored", func(t *testing.T) {
		resp := do(t, http.MethodPut, ts.URL+"/api/clientes/1",
			map[string]any{"id": 42, "name": "Renamed"})
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		doc := decodeObject(t, resp.Body)
		assert.EqualValues(t, 1, doc["id"])
		assert.Equal(t, "Renamed", doc["name"])
		assert.NotEmpty(t, doc["updatedAt"])
	})

	t.Run("Missing id segment", func(t *testing.T) {
		resp := do(t, http.MethodPut, ts.URL+"/api/clientes", map[string]any{"name": "x"})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestMerge(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodPatch, ts.URL+"/api/clientes/2", map[string]any{"vip": true})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := decodeObject(t, resp.Body)
	assert.Equal(t, "Cliente 2", doc["name"])
	assert.Equal(t, true, doc["vip"])
}

func TestDelete(t *testing.T) {
	ts, backend := setup(t)

	t.Run("Cascade response shape", func(t *testing.T) {
		resp := do(t, http.MethodDelete, ts.URL+"/api/pacotes/1", nil)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeObject(t, resp.Body)

		deleted, ok := body["deleted"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Setup Gamer", deleted["name"])

		cascade, ok := body["cascade"].(map[string]any)
		require.True(t, ok)
		assert.Len(t, cascade["pacotes"], 1)
		assert.Len(t, cascade["reservas"], 2)

		assert.Empty(t, backend.Database()["reservas"])
	})

	t.Run("Missing id segment", func(t *testing.T) {
		resp := do(t, http.MethodDelete, ts.URL+"/api/clientes", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestMalformedBody(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/clientes", "{not json")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeObject(t, resp.Body)
	assert.Contains(t, body, "error")
	assert.Contains(t, body, "message")
}

func TestEmptyBody(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/clientes", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeObject(t, resp.Body)
	assert.EqualValues(t, 3, created["id"])
}

func TestOptionsAndCORS(t *testing.T) {
	ts, _ := setup(t)

	t.Run("OPTIONS short-circuits", func(t *testing.T) {
		resp := do(t, http.MethodOptions, ts.URL+"/api/clientes", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("CORS headers on data responses", func(t *testing.T) {
		resp := do(t, http.MethodGet, ts.URL+"/api/clientes", nil)
		defer resp.Body.Close()
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	})
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, "TRACE", ts.URL+"/api/clientes", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestIndex(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/api", nil)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	counts := decodeObject(t, resp.Body)
	assert.EqualValues(t, 2, counts["clientes"])
	assert.EqualValues(t, 1, counts["pacotes"])
}

func TestPathWithoutPrefix(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/clientes/1", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
