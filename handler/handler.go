// Package handler serves record collections and the kanban board over HTTP
// so a front-end can run against a fake backend.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stevemurr/mockdb/board"
	"github.com/stevemurr/mockdb/medium"
	"github.com/stevemurr/mockdb/recordstore"
)

// Handler holds the server dependencies and registers routes.
type Handler struct {
	medium medium.Medium
	opts   []recordstore.Option
	board  *board.Board
	log    *zap.Logger
	mux    *http.ServeMux
}

// New creates a Handler and wires up all routes. opts apply to every record
// store the handler opens.
func New(m medium.Medium, log *zap.Logger, opts ...recordstore.Option) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		medium: m,
		opts:   append(append([]recordstore.Option{}, opts...), recordstore.WithLogger(log)),
		board:  board.New(m, log, opts...),
		log:    log,
		mux:    http.NewServeMux(),
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)
	h.log.Info("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", rec.status),
		zap.Duration("duration", time.Since(start)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) routes() {
	// Health / status
	h.mux.HandleFunc("GET /", h.root)
	h.mux.HandleFunc("GET /health", h.health)

	// --- Collections ---
	h.mux.HandleFunc("GET /collections", h.listCollections)
	h.mux.HandleFunc("GET /collections/{collection}/items", h.listItems)
	h.mux.HandleFunc("POST /collections/{collection}/items", h.createItem)
	h.mux.HandleFunc("GET /collections/{collection}/items/{id}", h.readItem)
	h.mux.HandleFunc("PUT /collections/{collection}/items/{id}", h.updateItem)
	h.mux.HandleFunc("DELETE /collections/{collection}/items/{id}", h.deleteItem)

	// --- Board ---
	h.mux.HandleFunc("GET /board", h.getBoard)
	h.mux.HandleFunc("POST /board/cards", h.addCard)
	h.mux.HandleFunc("PATCH /board/cards/{id}", h.patchCard)
	h.mux.HandleFunc("DELETE /board/cards/{id}", h.removeCard)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.log.Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) collection(r *http.Request) *recordstore.Store[recordstore.Document] {
	return recordstore.New[recordstore.Document](h.medium, r.PathValue("collection"), h.opts...)
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	// Only match exact root path
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "mockdb",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- collections ----------

func (h *Handler) listCollections(w http.ResponseWriter, r *http.Request) {
	keys, err := h.medium.Keys()
	if err != nil {
		h.internalError(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.collection(r).List()
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var doc recordstore.Document
	if err := readJSON(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if doc == nil {
		writeError(w, http.StatusBadRequest, "expected a JSON object")
		return
	}
	if _, present := doc["id"]; !present {
		doc["id"] = uuid.New().String()
	} else if doc.RecordID() == "" {
		writeError(w, http.StatusBadRequest, `"id" must be a non-empty string`)
		return
	}

	created, err := h.collection(r).Create(doc)
	if errors.Is(err, recordstore.ErrStorageFull) {
		writeError(w, http.StatusInsufficientStorage, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) readItem(w http.ResponseWriter, r *http.Request) {
	doc, ok, err := h.collection(r).Read(r.PathValue("id"))
	if err != nil {
		h.internalError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var doc recordstore.Document
	if err := readJSON(r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if doc == nil {
		writeError(w, http.StatusBadRequest, "expected a JSON object")
		return
	}
	doc["id"] = r.PathValue("id")

	updated, ok, err := h.collection(r).Update(doc)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := h.collection(r).Delete(id)
	if err != nil {
		h.internalError(w, err)
		return
	}
	status := http.StatusOK
	if !deleted {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]any{"deleted": deleted, "id": id})
}

// ---------- board ----------

func (h *Handler) getBoard(w http.ResponseWriter, r *http.Request) {
	cols, err := h.board.Columns()
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (h *Handler) addCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	c, err := h.board.AddCard(req.Title, req.Description)
	if errors.Is(err, recordstore.ErrStorageFull) {
		writeError(w, http.StatusInsufficientStorage, err.Error())
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) patchCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  *string       `json:"title"`
		Status *board.Status `json:"status"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Title == nil && req.Status == nil {
		writeError(w, http.StatusBadRequest, "nothing to change")
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, board.ErrInvalidStatus.Error()+": "+string(*req.Status))
		return
	}

	c, ok, err := h.board.EditCard(r.PathValue("id"), req.Title, req.Status)
	h.cardResult(w, c, ok, err)
}

func (h *Handler) cardResult(w http.ResponseWriter, c board.Card, ok bool, err error) {
	switch {
	case err != nil:
		h.internalError(w, err)
	case !ok:
		writeError(w, http.StatusNotFound, "card not found")
	default:
		writeJSON(w, http.StatusOK, c)
	}
}

func (h *Handler) removeCard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	removed, err := h.board.RemoveCard(id)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}
