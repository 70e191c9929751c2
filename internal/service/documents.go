package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"knowledgebase/internal/blocks"
	"knowledgebase/internal/chunker"
	"knowledgebase/internal/contextutil"
	"knowledgebase/internal/embedding"
	"knowledgebase/internal/models"
	"knowledgebase/internal/objectstore"
	"knowledgebase/internal/parser"
	"knowledgebase/internal/storage"
	"knowledgebase/internal/vectorstore"
)

const (
	// embedMaxTokens is the truncation guard for oversized chunks sent to
	// the embedding model. The full content stays in the chunk row.
	embedMaxTokens = 2048
	// contentPreviewMax bounds the content copy kept in vector payloads.
	contentPreviewMax = 2000
	// summaryMaxChars bounds the text handed to the summary model.
	summaryMaxChars = 6000
)

// DenseEmbedder is the slice of the dense client the pipeline needs.
type DenseEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// SparseEmbedder computes sparse vectors. Infallible; degraded tiers fall
// back internally.
type SparseEmbedder interface {
	Embed(ctx context.Context, texts []string) []embedding.SparseVector
}

// SummaryClient generates the document summary. Satisfied by llm.Client.
type SummaryClient interface {
	Chat(ctx context.Context, message string) (string, error)
}

// UploadRequest carries one file into a notebook.
type UploadRequest struct {
	NotebookID  string
	OwnerID     int64
	Filename    string
	ContentType string
	Data        []byte
}

// Segment is one reconstructed markdown piece for document preview.
type Segment struct {
	Type    string `json:"type"` // "parent" or "standalone"
	Content string `json:"content"`
	ChunkID string `json:"chunk_id"`
}

// MarkdownResult is the reconstructed document plus its summary.
type MarkdownResult struct {
	Filename string    `json:"filename"`
	Segments []Segment `json:"segments"`
	Summary  string    `json:"summary"`
}

// DocumentService drives the document lifecycle:
// UPLOADED → PARSING → PARSED → EMBEDDING → READY | FAILED.
type DocumentService struct {
	docs      storage.DocumentStore
	chunks    storage.ChunkStore
	notebooks storage.NotebookStore
	objects   objectstore.ObjectStore
	vectors   vectorstore.VectorStore
	parser    parser.Parser
	dense     DenseEmbedder
	sparse    SparseEmbedder
	chunker   *chunker.Chunker
	summary   SummaryClient // nil disables summary generation
}

// NewDocumentService wires the ingestion facade.
func NewDocumentService(
	docs storage.DocumentStore,
	chunks storage.ChunkStore,
	notebooks storage.NotebookStore,
	objects objectstore.ObjectStore,
	vectors vectorstore.VectorStore,
	p parser.Parser,
	dense DenseEmbedder,
	sparse SparseEmbedder,
	ck *chunker.Chunker,
	summary SummaryClient,
) *DocumentService {
	return &DocumentService{
		docs:      docs,
		chunks:    chunks,
		notebooks: notebooks,
		objects:   objects,
		vectors:   vectors,
		parser:    p,
		dense:     dense,
		sparse:    sparse,
		chunker:   ck,
		summary:   summary,
	}
}

// Upload stores the file and registers the document.
//
// Same-notebook duplicates (by content hash) return the existing record.
// A READY document with the same hash in another notebook donates its chunk
// tree: the clone path copies chunks with fresh ids and re-embeds, skipping
// the parser entirely. A failed clone falls back to the normal pipeline.
func (s *DocumentService) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.NotebookID == "" {
		return nil, &ValidationError{Field: "notebook_id", Message: "cannot be empty"}
	}
	if len(req.Data) == 0 {
		return nil, &ValidationError{Field: "file", Message: "cannot be empty"}
	}
	if !parser.IsSupported(req.Filename) {
		return nil, &ValidationError{Field: "file", Message: fmt.Sprintf("unsupported file type: %s", req.Filename)}
	}
	if _, err := s.notebooks.GetByID(ctx, req.NotebookID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, WrapError(err, "failed to check notebook")
	}

	sum := sha256.Sum256(req.Data)
	contentHash := hex.EncodeToString(sum[:])

	existing, err := s.docs.GetByHash(ctx, req.NotebookID, contentHash)
	if err == nil {
		logger.Info("duplicate upload, returning existing document", "document_id", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, WrapError(err, "failed to check content hash")
	}

	docID := uuid.New().String()
	storagePath := fmt.Sprintf("kb/%s/%s/%s", req.NotebookID, docID, req.Filename)
	if _, err := s.objects.Put(ctx, storagePath, req.Data, req.ContentType); err != nil {
		return nil, WrapError(err, "failed to store file")
	}

	doc := &models.Document{
		ID:          docID,
		NotebookID:  req.NotebookID,
		OwnerID:     req.OwnerID,
		Filename:    req.Filename,
		ContentHash: contentHash,
		ByteSize:    int64(len(req.Data)),
		StoragePath: storagePath,
		Status:      models.StatusUploaded,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, WrapError(err, "failed to create document")
	}
	if err := s.notebooks.AdjustSourceCount(ctx, req.NotebookID, 1); err != nil {
		logger.Warn("failed to bump source count", "notebook_id", req.NotebookID, "error", err)
	}

	if donor, err := s.docs.FindReadyByHash(ctx, contentHash); err == nil && donor.ID != docID {
		logger.Info("cross-notebook duplicate, cloning chunk tree", "donor_id", donor.ID, "document_id", docID)
		if err := s.cloneFromDonor(ctx, donor, doc); err != nil {
			logger.Warn("clone failed, document will go through the normal pipeline", "document_id", docID, "error", err)
		}
	}

	return s.docs.GetByID(ctx, docID)
}

// Process runs the parse/chunk/embed pipeline. Idempotent: a READY document
// is returned untouched. A pipeline failure is recorded on the document
// (status FAILED plus diagnostic) and returned without an error; the error
// return is for the document itself being unreachable.
func (s *DocumentService) Process(ctx context.Context, docID string) (*models.Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	doc, err := s.docs.GetByID(ctx, docID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to get document")
	}
	if doc.Status == models.StatusReady {
		return doc, nil
	}

	if err := s.runPipeline(ctx, doc); err != nil {
		logger.Error("document pipeline failed", "document_id", docID, "error", err)
		detail := err.Error()
		if len(detail) > 4000 {
			detail = detail[:4000]
		}
		if uerr := s.docs.UpdateStatus(ctx, docID, models.StatusFailed, detail); uerr != nil {
			logger.Error("failed to record pipeline failure", "document_id", docID, "error", uerr)
		}
	}
	return s.docs.GetByID(ctx, docID)
}

// downloadURLExpiry bounds how long a presigned source-file link stays valid.
const downloadURLExpiry = 15 * time.Minute

// DownloadURL issues a presigned link to the stored original file.
func (s *DocumentService) DownloadURL(ctx context.Context, docID string) (string, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", WrapError(err, "failed to get document")
	}
	url, err := s.objects.PresignGet(ctx, doc.StoragePath, downloadURLExpiry)
	if err != nil {
		return "", WrapError(err, "failed to presign download")
	}
	return url, nil
}

// BeginProcessing marks a document PARSING ahead of a queued pipeline run,
// so callers polling right after the accepted response see it in flight.
// A READY document is returned untouched; Process short-circuits it anyway.
func (s *DocumentService) BeginProcessing(ctx context.Context, docID string) (*models.Document, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to get document")
	}
	if doc.Status == models.StatusReady {
		return doc, nil
	}
	if err := s.docs.UpdateStatus(ctx, docID, models.StatusParsing, ""); err != nil {
		return nil, WrapError(err, "failed to update status")
	}
	doc.Status = models.StatusParsing
	return doc, nil
}

func (s *DocumentService) runPipeline(ctx context.Context, doc *models.Document) error {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.docs.UpdateStatus(ctx, doc.ID, models.StatusParsing, ""); err != nil {
		return WrapError(err, "failed to update status")
	}

	data, err := s.objects.Get(ctx, doc.StoragePath)
	if err != nil {
		return WrapError(err, "failed to fetch stored file")
	}
	result, err := s.parser.Parse(ctx, doc.Filename, data)
	if err != nil {
		return WrapError(err, "failed to parse document")
	}

	var blks []blocks.Block
	strategy := "layout_aware"
	if len(result.Blocks) > 0 {
		blks = blocks.Normalize(result.Blocks)
		logger.Info("structured parse complete", "document_id", doc.ID, "blocks", len(blks))
	} else {
		// Degrade path: markdown only, routed through the same chunker.
		strategy = "markdown"
		blks = blocks.FromMarkdown([]byte(result.Markdown))
		logger.Info("markdown degrade parse", "document_id", doc.ID, "blocks", len(blks))
	}

	if err := s.docs.UpdateStatus(ctx, doc.ID, models.StatusParsed, ""); err != nil {
		return WrapError(err, "failed to update status")
	}

	chunks := s.chunker.Chunk(doc.ID, doc.NotebookID, blks)
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks produced from parsed content")
	}
	parentCount := 0
	for _, c := range chunks {
		if c.IsParent {
			parentCount++
		}
	}
	logger.Info("chunking complete", "document_id", doc.ID, "parents", parentCount, "children", len(chunks)-parentCount)

	// Old generations stay for audit but leave the retrieval surface.
	// Their vector points go too, so a rerun never serves stale hits.
	if err := s.vectors.DeleteByDocument(ctx, doc.NotebookID, doc.ID); err != nil {
		return WrapError(err, "failed to drop previous vectors")
	}
	if err := s.chunks.DeactivateByDocument(ctx, doc.ID); err != nil {
		return WrapError(err, "failed to retire previous chunks")
	}
	if err := s.chunks.InsertBatch(ctx, chunks); err != nil {
		return WrapError(err, "failed to insert chunks")
	}
	if err := s.docs.UpdateParserInfo(ctx, doc.ID, result.Engine, result.Version, strategy); err != nil {
		logger.Warn("failed to record parser info", "document_id", doc.ID, "error", err)
	}

	if err := s.docs.UpdateStatus(ctx, doc.ID, models.StatusEmbedding, ""); err != nil {
		return WrapError(err, "failed to update status")
	}

	var children []models.Chunk
	for _, c := range chunks {
		if !c.IsParent {
			children = append(children, c)
		}
	}
	if len(children) > 0 {
		if err := s.embedChunks(ctx, doc.NotebookID, children); err != nil {
			return WrapError(err, "failed to embed chunks")
		}
	} else {
		logger.Warn("no child chunks to embed", "document_id", doc.ID)
	}

	if err := s.docs.UpdateStatus(ctx, doc.ID, models.StatusReady, ""); err != nil {
		return WrapError(err, "failed to update status")
	}
	logger.Info("document ready", "document_id", doc.ID, "embedded", len(children))
	return nil
}

// embedChunks computes dense + sparse vectors for child chunks and upserts
// them. Parents never reach the vector store: retrieval hits small focused
// children and climbs to the parent for context afterwards.
func (s *DocumentService) embedChunks(ctx context.Context, notebookID string, children []models.Chunk) error {
	texts := make([]string, len(children))
	for i, c := range children {
		texts[i] = embedding.TextForEmbedding(c, embedMaxTokens)
	}

	denseVecs, err := s.dense.EmbedTexts(ctx, texts)
	if err != nil {
		return WrapError(err, "failed to compute dense vectors")
	}
	sparseVecs := s.sparse.Embed(ctx, texts)
	if len(denseVecs) != len(children) || len(sparseVecs) != len(children) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d dense, %d sparse", len(children), len(denseVecs), len(sparseVecs))
	}

	points := make([]vectorstore.Point, len(children))
	for i, c := range children {
		preview := c.Content
		if len(preview) > contentPreviewMax {
			preview = preview[:contentPreviewMax] + "...[truncated]"
		}
		points[i] = vectorstore.Point{
			ID:     c.ID,
			Dense:  denseVecs[i],
			Sparse: sparseVecs[i],
			Meta: map[string]any{
				"chunk_id":        c.ID,
				"notebook_id":     notebookID,
				"document_id":     c.DocumentID,
				"chunk_type":      string(c.Type),
				"chunk_index":     c.ChunkIndex,
				"page_numbers":    c.PageNumbers,
				"has_parent":      c.ParentChunkID != "",
				"content_preview": preview,
			},
		}
	}
	return s.vectors.Upsert(ctx, points)
}

// cloneFromDonor copies a READY document's active chunk tree into the new
// document with fresh ids, re-embeds the children and marks the new
// document READY without touching the parser.
func (s *DocumentService) cloneFromDonor(ctx context.Context, donor, newDoc *models.Document) error {
	donorChunks, err := s.chunks.ListByDocument(ctx, donor.ID, true)
	if err != nil {
		return WrapError(err, "failed to list donor chunks")
	}
	if len(donorChunks) == 0 {
		return fmt.Errorf("donor document has no chunks")
	}

	idMap := make(map[string]string, len(donorChunks))
	for _, dc := range donorChunks {
		idMap[dc.ID] = uuid.New().String()
	}

	cloned := make([]models.Chunk, len(donorChunks))
	for i, dc := range donorChunks {
		nc := dc
		nc.ID = idMap[dc.ID]
		nc.DocumentID = newDoc.ID
		nc.NotebookID = newDoc.NotebookID
		if dc.ParentChunkID != "" {
			nc.ParentChunkID = idMap[dc.ParentChunkID]
		}
		nc.IsActive = true
		cloned[i] = nc
	}
	if err := s.chunks.InsertBatch(ctx, cloned); err != nil {
		return WrapError(err, "failed to insert cloned chunks")
	}

	var children []models.Chunk
	for _, c := range cloned {
		if !c.IsParent {
			children = append(children, c)
		}
	}
	if len(children) > 0 {
		if err := s.embedChunks(ctx, newDoc.NotebookID, children); err != nil {
			return WrapError(err, "failed to embed cloned chunks")
		}
	}
	if err := s.docs.UpdateStatus(ctx, newDoc.ID, models.StatusReady, ""); err != nil {
		return WrapError(err, "failed to mark clone ready")
	}
	contextutil.LoggerFromContext(ctx).Info("clone complete",
		"document_id", newDoc.ID, "chunks", len(cloned), "embedded", len(children))
	return nil
}

// Reparse retires the current chunk generation and vectors, then reruns the
// full pipeline. Used after a parser upgrade.
func (s *DocumentService) Reparse(ctx context.Context, docID string) (*models.Document, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to get document")
	}

	if err := s.vectors.DeleteByDocument(ctx, doc.NotebookID, docID); err != nil {
		return nil, WrapError(err, "failed to delete vectors")
	}
	if err := s.chunks.DeactivateByDocument(ctx, docID); err != nil {
		return nil, WrapError(err, "failed to retire chunks")
	}
	if err := s.docs.UpdateStatus(ctx, docID, models.StatusUploaded, ""); err != nil {
		return nil, WrapError(err, "failed to reset status")
	}
	return s.Process(ctx, docID)
}

// Delete removes the document everywhere: vectors, metadata (chunks
// cascade) and the stored object.
func (s *DocumentService) Delete(ctx context.Context, docID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	doc, err := s.docs.GetByID(ctx, docID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return WrapError(err, "failed to get document")
	}

	if err := s.vectors.DeleteByDocument(ctx, doc.NotebookID, docID); err != nil {
		return WrapError(err, "failed to delete vectors")
	}
	if err := s.docs.Delete(ctx, docID); err != nil {
		return WrapError(err, "failed to delete document")
	}
	if err := s.objects.Delete(ctx, doc.StoragePath); err != nil {
		logger.Warn("failed to delete stored object", "storage_path", doc.StoragePath, "error", err)
	}
	if err := s.notebooks.AdjustSourceCount(ctx, doc.NotebookID, -1); err != nil {
		logger.Warn("failed to drop source count", "notebook_id", doc.NotebookID, "error", err)
	}
	return nil
}

// Get returns one document.
func (s *DocumentService) Get(ctx context.Context, docID string) (*models.Document, error) {
	doc, err := s.docs.GetByID(ctx, docID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, WrapError(err, "failed to get document")
	}
	return doc, nil
}

// ListByNotebook returns a notebook's documents, newest first.
func (s *DocumentService) ListByNotebook(ctx context.Context, notebookID string) ([]models.Document, error) {
	out, err := s.docs.ListByNotebook(ctx, notebookID)
	if err != nil {
		return nil, WrapError(err, "failed to list documents")
	}
	if out == nil {
		out = []models.Document{}
	}
	return out, nil
}

// Chunks returns the document's active chunk generation ordered by index.
func (s *DocumentService) Chunks(ctx context.Context, docID string) ([]models.Chunk, error) {
	if _, err := s.Get(ctx, docID); err != nil {
		return nil, err
	}
	out, err := s.chunks.ListByDocument(ctx, docID, true)
	if err != nil {
		return nil, WrapError(err, "failed to list chunks")
	}
	if out == nil {
		out = []models.Chunk{}
	}
	return out, nil
}

// imageURLLine matches a bare image URL alone on a line; previews render
// those as markdown images.
var imageURLLine = regexp.MustCompile(`(?i)^(https?://\S+\.(?:png|jpg|jpeg|gif|webp|bmp)(?:\?\S*)?)$`)

// Markdown reconstructs the document for preview: parents and standalone
// chunks in index order, plus the summary (generated on first request when
// a summary model is configured).
func (s *DocumentService) Markdown(ctx context.Context, docID string) (*MarkdownResult, error) {
	doc, err := s.Get(ctx, docID)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunks.ListByDocument(ctx, docID, true)
	if err != nil {
		return nil, WrapError(err, "failed to list chunks")
	}
	segments := reconstructSegments(chunks)
	for i := range segments {
		segments[i].Content = imageURLsAsMarkdown(segments[i].Content)
	}

	summary := strings.TrimSpace(doc.Summary)
	if summary == "" && len(segments) > 0 {
		summary = s.generateSummary(ctx, doc, segments)
	}

	return &MarkdownResult{Filename: doc.Filename, Segments: segments, Summary: summary}, nil
}

// reconstructSegments orders parents (referenced by children) and
// standalone chunks by chunk index.
func reconstructSegments(chunks []models.Chunk) []Segment {
	if len(chunks) == 0 {
		return []Segment{}
	}
	referenced := make(map[string]bool)
	for _, c := range chunks {
		if c.ParentChunkID != "" {
			referenced[c.ParentChunkID] = true
		}
	}
	var parents, standalone []models.Chunk
	for _, c := range chunks {
		switch {
		case referenced[c.ID]:
			parents = append(parents, c)
		case c.ParentChunkID == "":
			standalone = append(standalone, c)
		}
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i].ChunkIndex < parents[j].ChunkIndex })
	sort.Slice(standalone, func(i, j int) bool { return standalone[i].ChunkIndex < standalone[j].ChunkIndex })

	segments := make([]Segment, 0, len(parents)+len(standalone))
	for _, c := range parents {
		if text := strings.TrimRight(c.Content, " \t\n"); text != "" {
			segments = append(segments, Segment{Type: "parent", Content: text, ChunkID: c.ID})
		}
	}
	for _, c := range standalone {
		if text := strings.TrimRight(c.Content, " \t\n"); text != "" {
			segments = append(segments, Segment{Type: "standalone", Content: text, ChunkID: c.ID})
		}
	}
	return segments
}

func imageURLsAsMarkdown(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if m := imageURLLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			lines[i] = fmt.Sprintf("![image](%s)", m[1])
		}
	}
	return strings.Join(lines, "\n")
}

// generateSummary asks the summary model for a short abstract and persists
// it. Failures are logged and leave the summary empty; the preview itself
// never fails over this.
func (s *DocumentService) generateSummary(ctx context.Context, doc *models.Document, segments []Segment) string {
	logger := contextutil.LoggerFromContext(ctx)
	if s.summary == nil {
		return ""
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Content); t != "" {
			parts = append(parts, t)
		}
	}
	input := strings.Join(parts, "\n\n")
	if len(input) > summaryMaxChars {
		input = strings.TrimRight(input[:summaryMaxChars], " \t\n") + "…"
	}

	prompt := "Summarize the following document in two to four sentences. " +
		"Output only the summary text, with no heading, numbering or commentary.\n\n---\n\n" + input
	text, err := s.summary.Chat(ctx, prompt)
	if err != nil {
		logger.Warn("summary generation failed", "document_id", doc.ID, "error", err)
		return ""
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if err := s.docs.UpdateSummary(ctx, doc.ID, text); err != nil {
		logger.Warn("failed to persist summary", "document_id", doc.ID, "error", err)
	}
	return text
}
