package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"knowledgebase/internal/contextutil"
	"knowledgebase/internal/models"
	"knowledgebase/internal/storage"
)

// NotebookService manages the tenant object itself. Documents inside a
// notebook are handled by DocumentService.
type NotebookService struct {
	notebooks storage.NotebookStore
}

// NewNotebookService creates a new NotebookService.
func NewNotebookService(notebooks storage.NotebookStore) *NotebookService {
	return &NotebookService{notebooks: notebooks}
}

// Create makes a new notebook for the owner.
func (s *NotebookService) Create(ctx context.Context, ownerID int64, title string) (*models.Notebook, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "cannot be empty"}
	}
	nb := &models.Notebook{
		ID:      uuid.New().String(),
		Title:   title,
		OwnerID: ownerID,
	}
	if err := s.notebooks.Create(ctx, nb); err != nil {
		return nil, WrapError(err, "failed to create notebook")
	}
	contextutil.LoggerFromContext(ctx).Info("notebook created", "notebook_id", nb.ID, "owner_id", ownerID)
	return s.notebooks.GetByID(ctx, nb.ID)
}

// Get returns one notebook, ErrNotFound if missing.
func (s *NotebookService) Get(ctx context.Context, id string) (*models.Notebook, error) {
	nb, err := s.notebooks.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to get notebook")
	}
	return nb, nil
}

// List returns the owner's notebooks, newest first.
func (s *NotebookService) List(ctx context.Context, ownerID int64) ([]models.Notebook, error) {
	out, err := s.notebooks.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, WrapError(err, "failed to list notebooks")
	}
	if out == nil {
		out = []models.Notebook{}
	}
	return out, nil
}

// Rename changes a notebook's title.
func (s *NotebookService) Rename(ctx context.Context, id, title string) (*models.Notebook, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "cannot be empty"}
	}
	err := s.notebooks.UpdateTitle(ctx, id, title)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to rename notebook")
	}
	return s.notebooks.GetByID(ctx, id)
}

// Delete removes a notebook. Remaining document and chunk rows go with it
// at the DB level, but vector store points and stored objects do not, so
// handlers route deletion through DocumentService per document first.
func (s *NotebookService) Delete(ctx context.Context, id string) error {
	if err := s.notebooks.Delete(ctx, id); err != nil {
		return WrapError(err, "failed to delete notebook")
	}
	return nil
}
