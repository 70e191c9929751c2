// Package http assembles the router: middleware, handler construction and
// route registration.
package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"knowledgebase/internal/handlers"
	"knowledgebase/internal/search"
	"knowledgebase/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Notebooks *service.NotebookService
	Documents *service.DocumentService
	Engine    *search.Engine
	Tasks     *service.TaskRunner
	DB        *sql.DB
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	notebookHandler := handlers.NewNotebookHandler(deps.Notebooks, deps.Documents)
	documentHandler := handlers.NewDocumentHandler(deps.Documents, deps.Tasks)
	searchHandler := handlers.NewSearchHandler(deps.Engine)
	taskHandler := handlers.NewTaskHandler(deps.Tasks)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.Route("/api", func(r chi.Router) {
		r.Route("/notebooks", func(r chi.Router) {
			r.Post("/", notebookHandler.Create)
			r.Get("/", notebookHandler.List)
			r.Get("/{id}", notebookHandler.Get)
			r.Put("/{id}", notebookHandler.Update)
			r.Delete("/{id}", notebookHandler.Delete)
			r.Get("/{id}/documents", notebookHandler.ListDocuments)
		})
		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", documentHandler.Upload)
			r.Get("/{id}", documentHandler.Get)
			r.Delete("/{id}", documentHandler.Delete)
			r.Post("/{id}/process", documentHandler.Process)
			r.Post("/{id}/reparse", documentHandler.Reparse)
			r.Get("/{id}/chunks", documentHandler.Chunks)
			r.Get("/{id}/markdown", documentHandler.Markdown)
			r.Get("/{id}/download", documentHandler.Download)
		})
		r.Post("/search", searchHandler.Search)
		r.Get("/tasks/{id}", taskHandler.Get)
	})
	r.Get("/health", healthHandler.Check)

	return r
}
