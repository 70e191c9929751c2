package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"knowledgebase/internal/service"
)

// TaskHandler exposes background task status.
type TaskHandler struct {
	runner *service.TaskRunner
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(runner *service.TaskRunner) *TaskHandler {
	return &TaskHandler{runner: runner}
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.runner.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}
