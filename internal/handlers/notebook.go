package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"knowledgebase/internal/contextutil"
	"knowledgebase/internal/service"
)

// NotebookHandler handles HTTP requests for notebooks.
type NotebookHandler struct {
	notebooks *service.NotebookService
	documents *service.DocumentService
}

// NewNotebookHandler creates a new NotebookHandler.
func NewNotebookHandler(notebooks *service.NotebookService, documents *service.DocumentService) *NotebookHandler {
	return &NotebookHandler{notebooks: notebooks, documents: documents}
}

// NotebookRequest is the create/rename payload.
type NotebookRequest struct {
	Title   string `json:"title"`
	OwnerID int64  `json:"owner_id,omitempty"`
}

// ownerID resolves the owner from the query string, defaulting to 1.
// Authentication is out of scope; the id is carried for multi-user data
// layout only.
func ownerID(r *http.Request) int64 {
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return id
		}
	}
	return 1
}

// Create handles POST /api/notebooks.
func (h *NotebookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req NotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	owner := req.OwnerID
	if owner == 0 {
		owner = ownerID(r)
	}

	nb, err := h.notebooks.Create(r.Context(), owner, req.Title)
	if err != nil {
		handleServiceError(w, r.Context(), err, "Failed to create notebook")
		return
	}
	writeJSON(w, http.StatusCreated, nb)
}

// List handles GET /api/notebooks.
func (h *NotebookHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.notebooks.List(r.Context(), ownerID(r))
	if err != nil {
		handleServiceError(w, r.Context(), err, "Failed to list notebooks")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/notebooks/{id}.
func (h *NotebookHandler) Get(w http.ResponseWriter, r *http.Request) {
	nb, err := h.notebooks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r.Context(), err, "Failed to get notebook")
		return
	}
	writeJSON(w, http.StatusOK, nb)
}

// Update handles PUT /api/notebooks/{id}.
func (h *NotebookHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req NotebookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	nb, err := h.notebooks.Rename(r.Context(), chi.URLParam(r, "id"), req.Title)
	if err != nil {
		handleServiceError(w, r.Context(), err, "Failed to rename notebook")
		return
	}
	writeJSON(w, http.StatusOK, nb)
}

// Delete handles DELETE /api/notebooks/{id}. Documents are deleted first so
// their vectors and stored objects go with them.
func (h *NotebookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	logger := contextutil.LoggerFromContext(ctx)

	docs, err := h.documents.ListByNotebook(ctx, id)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list notebook documents")
		return
	}
	for _, doc := range docs {
		if err := h.documents.Delete(ctx, doc.ID); err != nil {
			logger.Warn("failed to delete notebook document", "document_id", doc.ID, "error", err)
		}
	}
	if err := h.notebooks.Delete(ctx, id); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete notebook")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// ListDocuments handles GET /api/notebooks/{id}/documents.
func (h *NotebookHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if _, err := h.notebooks.Get(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r.Context(), err, "Failed to get notebook")
		return
	}
	out, err := h.documents.ListByNotebook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r.Context(), err, "Failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
