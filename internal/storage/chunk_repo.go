package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks knowledgebase/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"knowledgebase/internal/models"
)

// ExactHit is one full-text search result from the exact recall path.
type ExactHit struct {
	Chunk models.Chunk
	Score float64
}

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// InsertBatch inserts chunks in one transaction. Chunk IDs must be set.
	InsertBatch(ctx context.Context, chunks []models.Chunk) error
	// ListByDocument returns a document's chunks ordered by chunk_index.
	// With activeOnly set, only the active generation is returned.
	ListByDocument(ctx context.Context, documentID string, activeOnly bool) ([]models.Chunk, error)
	// ListEmbeddedIDs returns the ids of active non-parent chunks for a
	// document, i.e. the document's vector store point ids.
	ListEmbeddedIDs(ctx context.Context, documentID string) ([]string, error)
	// DeactivateByDocument retires the document's active chunk generation.
	DeactivateByDocument(ctx context.Context, documentID string) error
	// GetByIDs returns chunks for the given ids, any order.
	GetByIDs(ctx context.Context, ids []string) ([]models.Chunk, error)
	// GetParents batch-fetches parent chunks keyed by id.
	GetParents(ctx context.Context, ids []string) (map[string]models.Chunk, error)
	// ExactSearch runs full-text search plus a substring fallback over the
	// notebook's active child chunks, best score first.
	ExactSearch(ctx context.Context, notebookID, query string, documentIDs, chunkTypes []string, limit int) ([]ExactHit, error)
	// DeleteByDocument removes all of a document's chunks.
	DeleteByDocument(ctx context.Context, documentID string) error
}

// ChunkRepo implements ChunkStore on SQLite.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

const chunkColumns = `id, document_id, notebook_id, parent_chunk_id, chunk_index,
	page_numbers, chunk_type, content, token_count, is_parent, is_active, created_at`

// InsertBatch inserts chunks in one transaction.
func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, notebook_id, parent_chunk_id, chunk_index,
			page_numbers, chunk_type, content, token_count, is_parent, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, c := range chunks {
		pages, err := json.Marshal(c.PageNumbers)
		if err != nil {
			return fmt.Errorf("failed to marshal page numbers: %w", err)
		}
		if c.PageNumbers == nil {
			pages = []byte("[]")
		}
		var parentID any
		if c.ParentChunkID != "" {
			parentID = c.ParentChunkID
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.NotebookID, parentID, c.ChunkIndex,
			string(pages), c.Type, c.Content, c.TokenCount, c.IsParent, c.IsActive,
		); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunk batch: %w", err)
	}
	return nil
}

// ListByDocument returns a document's chunks ordered by chunk_index.
func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string, activeOnly bool) ([]models.Chunk, error) {
	query := "SELECT " + chunkColumns + " FROM chunks WHERE document_id = ?"
	if activeOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY chunk_index"

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	return collectChunks(rows)
}

// ListEmbeddedIDs returns ids of the document's active non-parent chunks.
func (r *ChunkRepo) ListEmbeddedIDs(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? AND is_active = 1 AND is_parent = 0 ORDER BY chunk_index",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}

// DeactivateByDocument retires the document's active chunk generation.
func (r *ChunkRepo) DeactivateByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE chunks SET is_active = 0 WHERE document_id = ? AND is_active = 1",
		documentID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate chunks: %w", err)
	}
	return nil
}

// GetByIDs returns active chunks for the given ids, any order. Retired
// generations never hydrate back into results.
func (r *ChunkRepo) GetByIDs(ctx context.Context, ids []string) ([]models.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inArgs(ids)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE is_active = 1 AND id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	return collectChunks(rows)
}

// GetParents batch-fetches parent chunks keyed by id.
func (r *ChunkRepo) GetParents(ctx context.Context, ids []string) (map[string]models.Chunk, error) {
	if len(ids) == 0 {
		return map[string]models.Chunk{}, nil
	}
	placeholders, args := inArgs(ids)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE is_parent = 1 AND id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query parent chunks: %w", err)
	}
	chunks, err := collectChunks(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Chunk, len(chunks))
	for _, c := range chunks {
		out[c.ID] = c
	}
	return out, nil
}

// ExactSearch runs FTS plus a substring fallback over active child chunks.
// FTS hits score -bm25 (higher is better); substring-only hits get a flat
// baseline score so literal identifiers the tokenizer misses still surface.
func (r *ChunkRepo) ExactSearch(ctx context.Context, notebookID, query string, documentIDs, chunkTypes []string, limit int) ([]ExactHit, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}

	merged := make(map[string]ExactHit)

	scope, scopeArgs := chunkScope(notebookID, documentIDs, chunkTypes)

	// The query goes in as a quoted phrase so user text can never break
	// FTS query syntax.
	phrase := `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
	ftsArgs := append([]any{phrase}, scopeArgs...)
	ftsArgs = append(ftsArgs, limit)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+prefixColumns("c")+`, -bm25(chunks_fts) AS score
		 FROM chunks_fts
		 JOIN chunks c ON c.rowid = chunks_fts.rowid
		 WHERE chunks_fts MATCH ? AND `+scope+`
		 ORDER BY score DESC LIMIT ?`,
		ftsArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run full-text search: %w", err)
	}
	if err := collectExactHits(rows, merged); err != nil {
		return nil, err
	}

	likeArgs := append([]any{"%" + query + "%"}, scopeArgs...)
	likeArgs = append(likeArgs, limit)
	rows, err = r.db.QueryContext(ctx,
		`SELECT `+prefixColumns("c")+`, 0.5 AS score
		 FROM chunks c
		 WHERE c.content LIKE ? AND `+scope+`
		 LIMIT ?`,
		likeArgs...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run substring search: %w", err)
	}
	if err := collectExactHits(rows, merged); err != nil {
		return nil, err
	}

	hits := make([]ExactHit, 0, len(merged))
	for _, h := range merged {
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// DeleteByDocument removes all of a document's chunks.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// chunkScope builds the WHERE clause shared by both exact search legs:
// active child chunks of one notebook, optionally narrowed to documents and
// chunk types.
func chunkScope(notebookID string, documentIDs, chunkTypes []string) (string, []any) {
	clause := "c.notebook_id = ? AND c.is_active = 1 AND c.is_parent = 0"
	args := []any{notebookID}
	if len(documentIDs) > 0 {
		placeholders, inA := inArgs(documentIDs)
		clause += " AND c.document_id IN (" + placeholders + ")"
		args = append(args, inA...)
	}
	if len(chunkTypes) > 0 {
		placeholders, inA := inArgs(chunkTypes)
		clause += " AND c.chunk_type IN (" + placeholders + ")"
		args = append(args, inA...)
	}
	return clause, args
}

func collectExactHits(rows *sql.Rows, merged map[string]ExactHit) error {
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var c models.Chunk
		var score float64
		if err := scanChunkWith(rows, &c, &score); err != nil {
			return err
		}
		if prev, ok := merged[c.ID]; !ok || score > prev.Score {
			merged[c.ID] = ExactHit{Chunk: c, Score: score}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

func collectChunks(rows *sql.Rows) ([]models.Chunk, error) {
	defer func() {
		_ = rows.Close()
	}()
	var out []models.Chunk
	for rows.Next() {
		var c models.Chunk
		if err := scanChunkWith(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// scanChunkWith scans the chunk columns plus any trailing extras.
func scanChunkWith(rows *sql.Rows, c *models.Chunk, extras ...any) error {
	var parentID sql.NullString
	var pages string
	dest := []any{
		&c.ID, &c.DocumentID, &c.NotebookID, &parentID, &c.ChunkIndex,
		&pages, &c.Type, &c.Content, &c.TokenCount, &c.IsParent, &c.IsActive, &c.CreatedAt,
	}
	dest = append(dest, extras...)
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("failed to scan chunk: %w", err)
	}
	if parentID.Valid {
		c.ParentChunkID = parentID.String
	}
	if pages != "" && pages != "[]" {
		if err := json.Unmarshal([]byte(pages), &c.PageNumbers); err != nil {
			return fmt.Errorf("failed to unmarshal page numbers: %w", err)
		}
	}
	return nil
}

// prefixColumns qualifies the chunk column list with a table alias.
func prefixColumns(alias string) string {
	cols := strings.Split(chunkColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

// inArgs builds a placeholder list and arg slice for an IN clause.
func inArgs(values []string) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return placeholders, args
}
