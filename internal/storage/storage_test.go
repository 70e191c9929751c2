package storage

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"

	"knowledgebase/internal/models"
)

func newTestDB(t *testing.T) (*NotebookRepo, *DocumentRepo, *ChunkRepo) {
	t.Helper()
	db, err := New(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewNotebookRepo(db), NewDocumentRepo(db), NewChunkRepo(db)
}

func seedDocument(t *testing.T, nbRepo *NotebookRepo, docRepo *DocumentRepo) (*models.Notebook, *models.Document) {
	t.Helper()
	ctx := context.Background()
	nb := &models.Notebook{ID: uuid.New().String(), Title: "research", OwnerID: 1}
	if err := nbRepo.Create(ctx, nb); err != nil {
		t.Fatalf("Create notebook: %v", err)
	}
	doc := &models.Document{
		ID:          uuid.New().String(),
		NotebookID:  nb.ID,
		OwnerID:     1,
		Filename:    "paper.pdf",
		ContentHash: uuid.New().String(),
		ByteSize:    1024,
		Status:      models.StatusUploaded,
	}
	if err := docRepo.Create(ctx, doc); err != nil {
		t.Fatalf("Create document: %v", err)
	}
	return nb, doc
}

func TestNotebookRepo_CreateGetDelete(t *testing.T) {
	nbRepo, _, _ := newTestDB(t)
	ctx := context.Background()

	nb := &models.Notebook{ID: uuid.New().String(), Title: "notes", OwnerID: 7}
	if err := nbRepo.Create(ctx, nb); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := nbRepo.GetByID(ctx, nb.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "notes" || got.OwnerID != 7 {
		t.Errorf("got %+v", got)
	}

	if err := nbRepo.AdjustSourceCount(ctx, nb.ID, 2); err != nil {
		t.Fatalf("AdjustSourceCount: %v", err)
	}
	if err := nbRepo.AdjustSourceCount(ctx, nb.ID, -5); err != nil {
		t.Fatalf("AdjustSourceCount: %v", err)
	}
	got, _ = nbRepo.GetByID(ctx, nb.ID)
	if got.SourceCount != 0 {
		t.Errorf("source count should floor at 0, got %d", got.SourceCount)
	}

	if err := nbRepo.Delete(ctx, nb.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := nbRepo.GetByID(ctx, nb.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNotebookRepo_Delete_CascadesDocumentsAndChunks(t *testing.T) {
	nbRepo, docRepo, chunkRepo := newTestDB(t)
	ctx := context.Background()
	nb, doc := seedDocument(t, nbRepo, docRepo)
	insertChunks(t, chunkRepo, nb, doc)

	if err := nbRepo.Delete(ctx, nb.ID); err != nil {
		t.Fatalf("Delete with documents present: %v", err)
	}
	if _, err := nbRepo.GetByID(ctx, nb.ID); err != ErrNotFound {
		t.Errorf("notebook should be gone, got %v", err)
	}
	if _, err := docRepo.GetByID(ctx, doc.ID); err != ErrNotFound {
		t.Errorf("document rows should be gone, got %v", err)
	}
	chunks, err := chunkRepo.ListByDocument(ctx, doc.ID, false)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("chunk rows should cascade, got %d", len(chunks))
	}
}

func TestNotebookRepo_UpdateTitle(t *testing.T) {
	nbRepo, _, _ := newTestDB(t)
	ctx := context.Background()

	nb := &models.Notebook{ID: uuid.New().String(), Title: "draft", OwnerID: 7}
	if err := nbRepo.Create(ctx, nb); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := nbRepo.UpdateTitle(ctx, nb.ID, "final"); err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}
	got, _ := nbRepo.GetByID(ctx, nb.ID)
	if got.Title != "final" {
		t.Errorf("title = %q", got.Title)
	}

	if err := nbRepo.UpdateTitle(ctx, "missing", "x"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentRepo_Lifecycle(t *testing.T) {
	nbRepo, docRepo, _ := newTestDB(t)
	ctx := context.Background()
	_, doc := seedDocument(t, nbRepo, docRepo)

	if err := docRepo.UpdateStatus(ctx, doc.ID, models.StatusFailed, "parser returned nothing"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, err := docRepo.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.StatusFailed || got.ErrorDetail != "parser returned nothing" {
		t.Errorf("got %+v", got)
	}

	// Leaving FAILED clears the diagnostic.
	if err := docRepo.UpdateStatus(ctx, doc.ID, models.StatusReady, "stale"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ = docRepo.GetByID(ctx, doc.ID)
	if got.Status != models.StatusReady || got.ErrorDetail != "" {
		t.Errorf("error detail should clear on non-FAILED status: %+v", got)
	}
}

func TestDocumentRepo_HashLookups(t *testing.T) {
	nbRepo, docRepo, _ := newTestDB(t)
	ctx := context.Background()
	nb, doc := seedDocument(t, nbRepo, docRepo)

	got, err := docRepo.GetByHash(ctx, nb.ID, doc.ContentHash)
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if got.ID != doc.ID {
		t.Errorf("got %s, want %s", got.ID, doc.ID)
	}

	if _, err := docRepo.GetByHash(ctx, nb.ID, "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Clone lookup sees only READY documents.
	if _, err := docRepo.FindReadyByHash(ctx, doc.ContentHash); err != ErrNotFound {
		t.Errorf("UPLOADED document must not clone: %v", err)
	}
	_ = docRepo.UpdateStatus(ctx, doc.ID, models.StatusReady, "")
	if _, err := docRepo.FindReadyByHash(ctx, doc.ContentHash); err != nil {
		t.Errorf("FindReadyByHash: %v", err)
	}
}

func TestDocumentRepo_DuplicateHashRejected(t *testing.T) {
	nbRepo, docRepo, _ := newTestDB(t)
	ctx := context.Background()
	nb, doc := seedDocument(t, nbRepo, docRepo)

	dup := &models.Document{
		ID:          uuid.New().String(),
		NotebookID:  nb.ID,
		OwnerID:     1,
		Filename:    "copy.pdf",
		ContentHash: doc.ContentHash,
		Status:      models.StatusUploaded,
	}
	if err := docRepo.Create(ctx, dup); err == nil {
		t.Fatal("expected unique constraint violation for duplicate hash in one notebook")
	}
}

func insertChunks(t *testing.T, chunkRepo *ChunkRepo, nb *models.Notebook, doc *models.Document) (parent models.Chunk, children []models.Chunk) {
	t.Helper()
	parent = models.Chunk{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		NotebookID: nb.ID,
		ChunkIndex: 0,
		Type:       models.ChunkTypeText,
		Content:    "Section heading\n\nThe quick brown fox jumps over ERR_CODE_42.",
		TokenCount: 16,
		IsParent:   true,
		IsActive:   true,
	}
	children = []models.Chunk{
		{
			ID: uuid.New().String(), DocumentID: doc.ID, NotebookID: nb.ID,
			ParentChunkID: parent.ID, ChunkIndex: 1, PageNumbers: []int{1},
			Type: models.ChunkTypeText, Content: "The quick brown fox jumps over ERR_CODE_42.",
			TokenCount: 12, IsActive: true,
		},
		{
			ID: uuid.New().String(), DocumentID: doc.ID, NotebookID: nb.ID,
			ParentChunkID: parent.ID, ChunkIndex: 2, PageNumbers: []int{2},
			Type: models.ChunkTypeTable, Content: "| metric | value |",
			TokenCount: 6, IsActive: true,
		},
	}
	if err := chunkRepo.InsertBatch(context.Background(), append([]models.Chunk{parent}, children...)); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	return parent, children
}

func TestChunkRepo_InsertAndList(t *testing.T) {
	nbRepo, docRepo, chunkRepo := newTestDB(t)
	ctx := context.Background()
	nb, doc := seedDocument(t, nbRepo, docRepo)
	parent, children := insertChunks(t, chunkRepo, nb, doc)

	got, err := chunkRepo.ListByDocument(ctx, doc.ID, true)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if got[0].ID != parent.ID || !got[0].IsParent {
		t.Errorf("first chunk should be the parent: %+v", got[0])
	}
	if got[1].ParentChunkID != parent.ID {
		t.Errorf("child parent id = %q", got[1].ParentChunkID)
	}
	if len(got[1].PageNumbers) != 1 || got[1].PageNumbers[0] != 1 {
		t.Errorf("page numbers roundtrip failed: %v", got[1].PageNumbers)
	}

	ids, err := chunkRepo.ListEmbeddedIDs(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListEmbeddedIDs: %v", err)
	}
	if len(ids) != len(children) {
		t.Errorf("embedded ids = %v, want only the %d children", ids, len(children))
	}
}

func TestChunkRepo_DeactivateKeepsHistory(t *testing.T) {
	nbRepo, docRepo, chunkRepo := newTestDB(t)
	ctx := context.Background()
	nb, doc := seedDocument(t, nbRepo, docRepo)
	insertChunks(t, chunkRepo, nb, doc)

	if err := chunkRepo.DeactivateByDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeactivateByDocument: %v", err)
	}
	active, _ := chunkRepo.ListByDocument(ctx, doc.ID, true)
	if len(active) != 0 {
		t.Errorf("expected no active chunks, got %d", len(active))
	}
	all, _ := chunkRepo.ListByDocument(ctx, doc.ID, false)
	if len(all) != 3 {
		t.Errorf("deactivation must not delete rows, got %d", len(all))
	}
}

func TestChunkRepo_GetByIDs_InactiveExcluded(t *testing.T) {
	nbRepo, docRepo, chunkRepo := newTestDB(t)
	ctx := context.Background()
	nb, doc := seedDocument(t, nbRepo, docRepo)
	parent, children := insertChunks(t, chunkRepo, nb, doc)

	ids := []string{parent.ID, children[0].ID, children[1].ID}
	got, err := chunkRepo.GetByIDs(ctx, ids)
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}

	if err := chunkRepo.DeactivateByDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeactivateByDocument: %v", err)
	}
	got, err = chunkRepo.GetByIDs(ctx, ids)
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("retired chunks must not hydrate, got %d", len(got))
	}
}

func TestChunkRepo_GetParents(t *testing.T) {
	nbRepo, docRepo, chunkRepo := newTestDB(t)
	ctx := context.Background()
	nb, doc := seedDocument(t, nbRepo, docRepo)
	parent, children := insertChunks(t, chunkRepo, nb, doc)

	got, err := chunkRepo.GetParents(ctx, []string{parent.ID, children[0].ID, "missing"})
	if err != nil {
		t.Fatalf("GetParents: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected only the parent, got %d entries", len(got))
	}
	if _, ok := got[parent.ID]; !ok {
		t.Error("parent missing from result")
	}
}

func TestChunkRepo_ExactSearch(t *testing.T) {
	nbRepo, docRepo, chunkRepo := newTestDB(t)
	ctx := context.Background()
	nb, doc := seedDocument(t, nbRepo, docRepo)
	insertChunks(t, chunkRepo, nb, doc)

	hits, err := chunkRepo.ExactSearch(ctx, nb.ID, "quick brown fox", nil, nil, 10)
	if err != nil {
		t.Fatalf("ExactSearch: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Chunk.IsParent {
		t.Error("parents must never surface from exact search")
	}
	if hits[0].Score <= 0 {
		t.Errorf("fts score = %v, want > 0", hits[0].Score)
	}

	// Substring fallback catches literal identifiers.
	hits, err = chunkRepo.ExactSearch(ctx, nb.ID, "CODE_42", nil, nil, 10)
	if err != nil {
		t.Fatalf("ExactSearch: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("substring fallback missed, got %d hits", len(hits))
	}

	// Type allowlist narrows the scope.
	hits, _ = chunkRepo.ExactSearch(ctx, nb.ID, "metric", nil, []string{"TABLE"}, 10)
	if len(hits) != 1 || hits[0].Chunk.Type != models.ChunkTypeTable {
		t.Errorf("type-filtered hits = %+v", hits)
	}

	// Other notebooks stay invisible.
	hits, _ = chunkRepo.ExactSearch(ctx, "other-notebook", "quick", nil, nil, 10)
	if len(hits) != 0 {
		t.Errorf("tenant isolation broken: %+v", hits)
	}
}

func TestChunkRepo_ExactSearch_InactiveExcluded(t *testing.T) {
	nbRepo, docRepo, chunkRepo := newTestDB(t)
	ctx := context.Background()
	nb, doc := seedDocument(t, nbRepo, docRepo)
	insertChunks(t, chunkRepo, nb, doc)
	_ = chunkRepo.DeactivateByDocument(ctx, doc.ID)

	hits, err := chunkRepo.ExactSearch(ctx, nb.ID, "quick brown fox", nil, nil, 10)
	if err != nil {
		t.Fatalf("ExactSearch: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("inactive chunks must not surface, got %d hits", len(hits))
	}
}

func TestChunkRepo_ExactSearch_NotebookIsolationRandomized(t *testing.T) {
	nbRepo, docRepo, chunkRepo := newTestDB(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	// Several notebooks sharing vocabulary plus one private marker each.
	// No query may ever surface a chunk from a foreign notebook.
	const notebookCount = 5
	shared := []string{"gradient", "descent", "attention", "transformer", "embedding"}
	notebooks := make([]*models.Notebook, 0, notebookCount)
	for i := 0; i < notebookCount; i++ {
		nb, doc := seedDocument(t, nbRepo, docRepo)
		notebooks = append(notebooks, nb)

		var chunks []models.Chunk
		for j := 0; j < 3+rng.Intn(5); j++ {
			words := []string{fmt.Sprintf("marker_nb%d", i)}
			for k := 0; k < 4; k++ {
				words = append(words, shared[rng.Intn(len(shared))])
			}
			chunks = append(chunks, models.Chunk{
				ID: uuid.New().String(), DocumentID: doc.ID, NotebookID: nb.ID,
				ChunkIndex: j, Type: models.ChunkTypeText,
				Content: strings.Join(words, " "), TokenCount: 8, IsActive: true,
			})
		}
		if err := chunkRepo.InsertBatch(ctx, chunks); err != nil {
			t.Fatalf("InsertBatch: %v", err)
		}
	}

	queries := append([]string{}, shared...)
	for i := 0; i < notebookCount; i++ {
		queries = append(queries, fmt.Sprintf("marker_nb%d", i))
	}
	for trial := 0; trial < 50; trial++ {
		nbIdx := rng.Intn(notebookCount)
		nb := notebooks[nbIdx]
		query := queries[rng.Intn(len(queries))]

		hits, err := chunkRepo.ExactSearch(ctx, nb.ID, query, nil, nil, 20)
		if err != nil {
			t.Fatalf("ExactSearch(%q, %q): %v", nb.ID, query, err)
		}
		for _, h := range hits {
			if h.Chunk.NotebookID != nb.ID {
				t.Fatalf("query %q in notebook %s returned chunk from %s", query, nb.ID, h.Chunk.NotebookID)
			}
		}
		// A foreign marker must return nothing at all.
		if strings.HasPrefix(query, "marker_nb") && query != fmt.Sprintf("marker_nb%d", nbIdx) && len(hits) != 0 {
			t.Fatalf("foreign marker %q leaked into notebook %s: %d hits", query, nb.ID, len(hits))
		}
	}
}

func TestChunkRepo_DeleteByDocument(t *testing.T) {
	nbRepo, docRepo, chunkRepo := newTestDB(t)
	ctx := context.Background()
	nb, doc := seedDocument(t, nbRepo, docRepo)
	insertChunks(t, chunkRepo, nb, doc)

	if err := chunkRepo.DeleteByDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	all, _ := chunkRepo.ListByDocument(ctx, doc.ID, false)
	if len(all) != 0 {
		t.Errorf("expected no chunks after delete, got %d", len(all))
	}
}
