package handlers

import (
	"encoding/json"
	"net/http"

	"knowledgebase/internal/models"
	"knowledgebase/internal/search"
)

// SearchHandler handles HTTP requests for retrieval.
type SearchHandler struct {
	engine *search.Engine
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(engine *search.Engine) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// Search handles POST /api/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.NotebookID == "" {
		writeError(w, http.StatusBadRequest, "notebook_id is required")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	for _, ct := range req.ChunkTypes {
		if !models.ValidChunkType(ct) {
			writeError(w, http.StatusBadRequest, "unknown chunk type: "+ct)
			return
		}
	}

	resp, err := h.engine.Search(r.Context(), req)
	if err != nil {
		handleServiceError(w, r.Context(), err, "Search failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
