package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"knowledgebase/internal/service"
)

// maxUploadBytes bounds multipart uploads (100 MiB).
const maxUploadBytes = 100 << 20

// DocumentHandler handles HTTP requests for documents.
type DocumentHandler struct {
	documents *service.DocumentService
	tasks     *service.TaskRunner
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documents *service.DocumentService, tasks *service.TaskRunner) *DocumentHandler {
	return &DocumentHandler{documents: documents, tasks: tasks}
}

// Upload handles POST /api/documents/upload (multipart: notebook_id, file).
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	notebookID := r.FormValue("notebook_id")
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	doc, err := h.documents.Upload(r.Context(), service.UploadRequest{
		NotebookID:  notebookID,
		OwnerID:     ownerID(r),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		handleServiceError(w, r.Context(), err, "Failed to upload document")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// Process handles POST /api/documents/{id}/process. The pipeline runs as a
// supervised background task and the response is 202 plus the task record;
// ?sync=true runs it inline instead.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if r.URL.Query().Get("sync") == "true" {
		doc, err := h.documents.Process(r.Context(), id)
		if err != nil {
			handleServiceError(w, r.Context(), err, "Failed to process document")
			return
		}
		writeJSON(w, http.StatusOK, doc)
		return
	}

	// Rejects unknown ids and leaves the document PARSING before queueing,
	// so a status poll right after the 202 already shows it in flight.
	if _, err := h.documents.BeginProcessing(r.Context(), id); err != nil {
		handleServiceError(w, r.Context(), err, "Failed to process document")
		return
	}
	task := h.tasks.Submit("process_document", id, func(ctx context.Context) error {
		_, err := h.documents.Process(ctx, id)
		return err
	})
	writeJSON(w, http.StatusAccepted, task)
}

// Reparse handles POST /api/documents/{id}/reparse.
func (h *DocumentHandler) Reparse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if r.URL.Query().Get("sync") == "true" {
		doc, err := h.documents.Reparse(r.Context(), id)
		if err != nil {
			handleServiceError(w, r.Context(), err, "Failed to reparse document")
			return
		}
		writeJSON(w, http.StatusOK, doc)
		return
	}

	if _, err := h.documents.Get(r.Context(), id); err != nil {
		handleServiceError(w, r.Context(), err, "Failed to get document")
		return
	}
	task := h.tasks.Submit("reparse_document", id, func(ctx context.Context) error {
		_, err := h.documents.Reparse(ctx, id)
		return err
	})
	writeJSON(w, http.StatusAccepted, task)
}

// Get handles GET /api/documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r.Context(), err, "Failed to get document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Chunks handles GET /api/documents/{id}/chunks.
func (h *DocumentHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := h.documents.Chunks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r.Context(), err, "Failed to list chunks")
		return
	}
	writeJSON(w, http.StatusOK, chunks)
}

// Markdown handles GET /api/documents/{id}/markdown.
func (h *DocumentHandler) Markdown(w http.ResponseWriter, r *http.Request) {
	result, err := h.documents.Markdown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r.Context(), err, "Failed to reconstruct document")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Download handles GET /api/documents/{id}/download. Responds with a
// short-lived presigned URL for the stored original file.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	url, err := h.documents.DownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r.Context(), err, "Failed to presign download")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Delete handles DELETE /api/documents/{id}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.documents.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r.Context(), err, "Failed to delete document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
