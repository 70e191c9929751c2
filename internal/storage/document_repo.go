package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks knowledgebase/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"knowledgebase/internal/models"
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Create inserts a document. The document.ID must be set before calling.
	Create(ctx context.Context, doc *models.Document) error
	// GetByID gets a document by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*models.Document, error)
	// GetByHash finds a document by content hash within one notebook.
	// Returns ErrNotFound if not found.
	GetByHash(ctx context.Context, notebookID, contentHash string) (*models.Document, error)
	// FindReadyByHash finds any READY document with the hash across all
	// notebooks, used by the cross-notebook clone fast path. Returns
	// ErrNotFound if none exists.
	FindReadyByHash(ctx context.Context, contentHash string) (*models.Document, error)
	// ListByNotebook returns a notebook's documents, newest first.
	ListByNotebook(ctx context.Context, notebookID string) ([]models.Document, error)
	// UpdateStatus transitions the document's lifecycle state. errDetail is
	// cleared unless the new status is FAILED.
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, errDetail string) error
	// UpdateParserInfo records which parser produced the active chunks.
	UpdateParserInfo(ctx context.Context, id, engine, version, strategy string) error
	// UpdateSummary stores the generated document summary.
	UpdateSummary(ctx context.Context, id, summary string) error
	// Delete removes a document; chunks cascade.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo implements DocumentStore on SQLite.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = `id, notebook_id, owner_id, filename, content_hash, byte_size,
	storage_path, parser_engine, parser_version, chunking_strategy, status,
	error_detail, metadata, summary, created_at, updated_at`

// Create inserts a document.
func (r *DocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if doc.Metadata == nil {
		meta = []byte("{}")
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO documents (id, notebook_id, owner_id, filename, content_hash, byte_size,
			storage_path, parser_engine, parser_version, chunking_strategy, status, error_detail, metadata, summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.NotebookID, doc.OwnerID, doc.Filename, doc.ContentHash, doc.ByteSize,
		doc.StoragePath, doc.ParserEngine, doc.ParserVersion, doc.ChunkingStrategy,
		doc.Status, doc.ErrorDetail, string(meta), doc.Summary,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document by its ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

// GetByHash finds a document by content hash within one notebook.
func (r *DocumentRepo) GetByHash(ctx context.Context, notebookID, contentHash string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE notebook_id = ? AND content_hash = ?",
		notebookID, contentHash)
	return scanDocument(row)
}

// FindReadyByHash finds any READY document with the hash across notebooks.
func (r *DocumentRepo) FindReadyByHash(ctx context.Context, contentHash string) (*models.Document, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE content_hash = ? AND status = ? ORDER BY created_at LIMIT 1",
		contentHash, models.StatusReady)
	return scanDocument(row)
}

// ListByNotebook returns a notebook's documents, newest first.
func (r *DocumentRepo) ListByNotebook(ctx context.Context, notebookID string) ([]models.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE notebook_id = ? ORDER BY created_at DESC",
		notebookID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []models.Document
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// UpdateStatus transitions the document's lifecycle state.
func (r *DocumentRepo) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, errDetail string) error {
	if status != models.StatusFailed {
		errDetail = ""
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, error_detail = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, errDetail, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

// UpdateParserInfo records which parser produced the active chunks.
func (r *DocumentRepo) UpdateParserInfo(ctx context.Context, id, engine, version, strategy string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE documents SET parser_engine = ?, parser_version = ?, chunking_strategy = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		engine, version, strategy, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update parser info: %w", err)
	}
	return nil
}

// UpdateSummary stores the generated document summary.
func (r *DocumentRepo) UpdateSummary(ctx context.Context, id, summary string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE documents SET summary = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		summary, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	return nil
}

// Delete removes a document; chunks cascade.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row *sql.Row) (*models.Document, error) {
	doc, err := scanDocumentFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

func scanDocumentRows(rows *sql.Rows) (*models.Document, error) {
	doc, err := scanDocumentFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	return doc, nil
}

func scanDocumentFrom(s rowScanner) (*models.Document, error) {
	var doc models.Document
	var meta string
	err := s.Scan(
		&doc.ID, &doc.NotebookID, &doc.OwnerID, &doc.Filename, &doc.ContentHash, &doc.ByteSize,
		&doc.StoragePath, &doc.ParserEngine, &doc.ParserVersion, &doc.ChunkingStrategy, &doc.Status,
		&doc.ErrorDetail, &meta, &doc.Summary, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}
