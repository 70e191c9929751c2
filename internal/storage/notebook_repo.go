package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_notebook_store.go -package=mocks knowledgebase/internal/storage NotebookStore

import (
	"context"
	"database/sql"
	"fmt"

	"knowledgebase/internal/models"
)

// NotebookStore defines the interface for notebook storage operations.
type NotebookStore interface {
	// Create inserts a notebook. The notebook.ID must be set before calling.
	Create(ctx context.Context, nb *models.Notebook) error
	// GetByID gets a notebook by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*models.Notebook, error)
	// ListByOwner returns the owner's notebooks, newest first.
	ListByOwner(ctx context.Context, ownerID int64) ([]models.Notebook, error)
	// UpdateTitle renames a notebook. Returns ErrNotFound if it does not exist.
	UpdateTitle(ctx context.Context, id, title string) error
	// AdjustSourceCount shifts the notebook's document counter by delta.
	AdjustSourceCount(ctx context.Context, id string, delta int) error
	// Delete removes a notebook.
	Delete(ctx context.Context, id string) error
}

// NotebookRepo implements NotebookStore on SQLite.
type NotebookRepo struct {
	db *sql.DB
}

// NewNotebookRepo creates a new NotebookRepo.
func NewNotebookRepo(db *sql.DB) *NotebookRepo {
	return &NotebookRepo{db: db}
}

// Create inserts a notebook.
func (r *NotebookRepo) Create(ctx context.Context, nb *models.Notebook) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO notebooks (id, title, owner_id) VALUES (?, ?, ?)",
		nb.ID, nb.Title, nb.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notebook: %w", err)
	}
	return nil
}

// GetByID gets a notebook by its ID. Returns ErrNotFound if not found.
func (r *NotebookRepo) GetByID(ctx context.Context, id string) (*models.Notebook, error) {
	var nb models.Notebook
	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, owner_id, source_count, created_at, updated_at FROM notebooks WHERE id = ?",
		id,
	).Scan(&nb.ID, &nb.Title, &nb.OwnerID, &nb.SourceCount, &nb.CreatedAt, &nb.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query notebook: %w", err)
	}
	return &nb, nil
}

// ListByOwner returns the owner's notebooks, newest first.
func (r *NotebookRepo) ListByOwner(ctx context.Context, ownerID int64) ([]models.Notebook, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, title, owner_id, source_count, created_at, updated_at FROM notebooks WHERE owner_id = ? ORDER BY created_at DESC",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query notebooks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []models.Notebook
	for rows.Next() {
		var nb models.Notebook
		if err := rows.Scan(&nb.ID, &nb.Title, &nb.OwnerID, &nb.SourceCount, &nb.CreatedAt, &nb.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notebook: %w", err)
		}
		out = append(out, nb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// UpdateTitle renames a notebook.
func (r *NotebookRepo) UpdateTitle(ctx context.Context, id, title string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notebooks SET title = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		title, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update notebook title: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustSourceCount shifts the notebook's document counter by delta.
func (r *NotebookRepo) AdjustSourceCount(ctx context.Context, id string, delta int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notebooks SET source_count = MAX(0, source_count + ?), updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		delta, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update source count: %w", err)
	}
	return nil
}

// Delete removes a notebook and any remaining document rows in one
// transaction. Chunk rows cascade from the documents; documents carry no
// ON DELETE action, so dropping them first keeps the notebook FK satisfied.
func (r *NotebookRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin notebook delete: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE notebook_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete notebook documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM notebooks WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete notebook: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notebook delete: %w", err)
	}
	return nil
}
