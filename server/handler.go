// Package server adapts HTTP requests onto the query and persistence
// engines. The handler is a plain http.Handler, so it works the same mounted
// in a full server process or embedded behind another mux.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asaidimu/go-mimic/core/document"
	"github.com/asaidimu/go-mimic/core/persistence"
	"github.com/asaidimu/go-mimic/core/query"
	"github.com/asaidimu/go-mimic/core/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrMissingID indicates a write verb that requires an id path segment was
// called without one.
var ErrMissingID = errors.New("missing id")

// Config carries the adapter's knobs.
type Config struct {
	// CORSOrigin is the value of Access-Control-Allow-Origin. Empty means "*".
	CORSOrigin string
}

// Handler dispatches /api/{resource}[/{id}] requests to the engines.
type Handler struct {
	store       *store.Store
	engine      *query.Engine
	persistence *persistence.Persistence
	logger      *zap.Logger
	corsOrigin  string
}

var _ http.Handler = (*Handler)(nil)

// New wires a handler over an opened store and its persistence layer.
func New(s *store.Store, p *persistence.Persistence, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return &Handler{
		store:       s,
		engine:      query.NewEngine(logger),
		persistence: p,
		logger:      logger,
		corsOrigin:  origin,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.New().String()

	w.Header().Set("X-Request-Id", requestID)
	w.Header().Set("Access-Control-Allow-Origin", h.corsOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := h.serve(w, r)

	h.logger.Info("Handled request",
		zap.String("requestId", requestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Duration("duration", time.Since(start)))
}

// serve resolves one request and returns the response status for logging.
// Failures from the engines are classified here; nothing below this layer is
// allowed to take the process down.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) (status int) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("Recovered from handler panic", zap.Any("panic", rec))
			status = h.writeFailure(w, fmt.Errorf("%v", rec))
		}
	}()

	resource, id := splitPath(r.URL.Path)
	if resource == "" {
		if r.Method == http.MethodGet {
			return h.writeJSON(w, http.StatusOK, h.store.Counts())
		}
		return h.writeError(w, http.StatusNotFound, "resource not specified")
	}

	params := query.ParseParams(r.URL.RawQuery)

	switch r.Method {
	case http.MethodGet:
		return h.read(w, resource, id, params)
	case http.MethodPost:
		body, err := readBody(r)
		if err != nil {
			return h.writeFailure(w, err)
		}
		created, err := h.persistence.Insert(resource, body)
		if err != nil {
			return h.classify(w, err)
		}
		return h.writeJSON(w, http.StatusCreated, created)
	case http.MethodPut, http.MethodPatch:
		if id == "" {
			return h.writeError(w, http.StatusBadRequest, ErrMissingID.Error())
		}
		body, err := readBody(r)
		if err != nil {
			return h.writeFailure(w, err)
		}
		var doc document.Document
		if r.Method == http.MethodPut {
			doc, err = h.persistence.Replace(resource, id, body)
		} else {
			doc, err = h.persistence.Merge(resource, id, body)
		}
		if err != nil {
			return h.classify(w, err)
		}
		return h.writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if id == "" {
			return h.writeError(w, http.StatusBadRequest, ErrMissingID.Error())
		}
		result, err := h.persistence.Remove(resource, id)
		if err != nil {
			return h.classify(w, err)
		}
		return h.writeJSON(w, http.StatusOK, result)
	default:
		return h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) read(w http.ResponseWriter, resource, id string, params query.Params) int {
	db := h.store.Snapshot()
	if id != "" {
		doc, err := h.engine.Get(db, resource, id, params)
		if err != nil {
			return h.classify(w, err)
		}
		return h.writeJSON(w, http.StatusOK, doc)
	}
	docs, err := h.engine.List(db, resource, params)
	if err != nil {
		return h.classify(w, err)
	}
	return h.writeJSON(w, http.StatusOK, docs)
}

// splitPath parses "/api/{resource}[/{id}]", tolerating the bare
// "/{resource}[/{id}]" form when the handler is mounted without a prefix.
func splitPath(path string) (resource, id string) {
	path = strings.Trim(path, "/")
	if path == "api" {
		path = ""
	} else if after, ok := strings.CutPrefix(path, "api/"); ok {
		path = after
	}
	if path == "" {
		return "", ""
	}
	parts := strings.SplitN(path, "/", 3)
	resource = parts[0]
	if len(parts) > 1 {
		id = parts[1]
	}
	return resource, id
}

// readBody decodes the JSON request body. An empty body parses to an empty
// document; malformed JSON is a failure the caller reports as a 500.
func readBody(r *http.Request) (document.Document, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return document.Document{}, nil
	}
	var doc document.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse request body: %w", err)
	}
	return doc, nil
}

func (h *Handler) classify(w http.ResponseWriter, err error) int {
	switch {
	case errors.Is(err, store.ErrResourceNotFound), errors.Is(err, store.ErrItemNotFound):
		return h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrMissingID):
		return h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		return h.writeFailure(w, err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
	return status
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) int {
	return h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error) int {
	return h.writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "failed to process request",
		"message": err.Error(),
	})
}
