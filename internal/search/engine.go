package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"knowledgebase/internal/contextutil"
	"knowledgebase/internal/embedding"
	"knowledgebase/internal/models"
	"knowledgebase/internal/rerank"
	"knowledgebase/internal/storage"
	"knowledgebase/internal/vectorstore"
)

// Recall caps per path. The three lists together hand roughly a hundred
// candidates to fusion; fusion keeps RRFTopN for the reranker.
const (
	RecallExact  = 10
	RecallSparse = 60
	RecallDense  = 60
	RRFTopN      = 20
)

// DenseEmbedder turns a query into a dense vector.
type DenseEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// SparseEmbedder turns texts into sparse vectors. It never fails; degraded
// tiers fall through to an in-process encoding.
type SparseEmbedder interface {
	Embed(ctx context.Context, texts []string) []embedding.SparseVector
}

// Reranker scores candidate documents against the query and filters by
// threshold. Implemented by rerank.Reranker.
type Reranker interface {
	Rank(ctx context.Context, query string, documents []string, threshold, cosineThreshold *float64, topN int) ([]rerank.Scored, rerank.Mode, error)
}

// Engine runs the full retrieval pipeline: concurrent recall over the
// enabled paths, RRF fusion, optional rerank, then parent-context
// resolution. A failing path is skipped, never fatal.
type Engine struct {
	chunks   storage.ChunkStore
	vectors  vectorstore.VectorStore
	dense    DenseEmbedder
	sparse   SparseEmbedder
	reranker Reranker
}

// NewEngine wires the pipeline. reranker may be nil, in which case the
// rerank stage is skipped and fused order is final.
func NewEngine(chunks storage.ChunkStore, vectors vectorstore.VectorStore, dense DenseEmbedder, sparse SparseEmbedder, reranker Reranker) *Engine {
	return &Engine{
		chunks:   chunks,
		vectors:  vectors,
		dense:    dense,
		sparse:   sparse,
		reranker: reranker,
	}
}

// finalItem is one chunk after the rerank stage, in output order.
type finalItem struct {
	chunkID     string
	rrfScore    float64
	sources     []string
	rerankScore *float64
}

// Search executes one retrieval request. An empty DocumentIDs allowlist
// (non-nil, zero length) means no source is selected and short-circuits to
// an empty response. A request with no recall path enabled is treated as
// everything enabled.
func (e *Engine) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.DocumentIDs != nil && len(req.DocumentIDs) == 0 {
		return &models.SearchResponse{Query: req.Query, Hits: []models.SearchHit{}, PathStats: map[string]int{}}, nil
	}
	if !req.EnableExact && !req.EnableSparse && !req.EnableDense {
		req.EnableExact = true
		req.EnableSparse = true
		req.EnableDense = true
		req.EnableRerank = true
	}

	pathStats := make(map[string]int)

	// Stage 1: multi-path recall. Paths run concurrently; each failure is
	// logged, counted as zero and excluded from fusion.
	filter := vectorstore.Filter{
		NotebookID:  req.NotebookID,
		DocumentIDs: req.DocumentIDs,
		ChunkTypes:  req.ChunkTypes,
	}

	var (
		exactList  []RankedItem
		sparseList []RankedItem
		denseList  []RankedItem
		exactErr   error
		sparseErr  error
		denseErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	if req.EnableExact {
		g.Go(func() error {
			exactList, exactErr = e.recallExact(gctx, req)
			return nil
		})
	}
	if req.EnableSparse {
		g.Go(func() error {
			sparseList, sparseErr = e.recallSparse(gctx, req, filter)
			return nil
		})
	}
	if req.EnableDense {
		g.Go(func() error {
			denseList, denseErr = e.recallDense(gctx, req, filter)
			return nil
		})
	}
	_ = g.Wait()

	var lists [][]RankedItem
	collect := func(name string, list []RankedItem, err error, enabled bool) {
		if !enabled {
			return
		}
		if err != nil {
			logger.Warn("recall path failed, skipped", "path", name, "error", err)
			pathStats[name] = 0
			return
		}
		pathStats[name] = len(list)
		lists = append(lists, list)
	}
	collect("exact", exactList, exactErr, req.EnableExact)
	collect("sparse", sparseList, sparseErr, req.EnableSparse)
	collect("dense", denseList, denseErr, req.EnableDense)

	empty := true
	for _, l := range lists {
		if len(l) > 0 {
			empty = false
			break
		}
	}
	if empty {
		return &models.SearchResponse{Query: req.Query, Hits: []models.SearchHit{}, PathStats: pathStats}, nil
	}

	// Stage 2: RRF fusion down to the rerank window.
	fused := Fuse(lists, RRFK, RRFTopN)
	pathStats["rrf_top"] = len(fused)
	if len(fused) == 0 {
		return &models.SearchResponse{Query: req.Query, Hits: []models.SearchHit{}, PathStats: pathStats}, nil
	}

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
	}
	hydrated, err := e.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[string]models.Chunk, len(hydrated))
	for _, c := range hydrated {
		chunkByID[c.ID] = c
	}

	// Reranker input keeps fused order, minus ids the store no longer has.
	fusedByID := make(map[string]FusedItem, len(fused))
	orderedIDs := make([]string, 0, len(fused))
	documents := make([]string, 0, len(fused))
	for _, f := range fused {
		fusedByID[f.ChunkID] = f
		c, ok := chunkByID[f.ChunkID]
		if !ok {
			continue
		}
		orderedIDs = append(orderedIDs, f.ChunkID)
		documents = append(documents, c.Content)
	}

	// Stage 3: rerank. Threshold-gated; TopK is only a safety cap. Any
	// failure degrades to fused order.
	final := e.rerankStage(ctx, req, orderedIDs, documents, fused, fusedByID, pathStats)

	parentContents := map[string]string{}
	if req.UseParent {
		parentIDs := make([]string, 0, len(final))
		seen := make(map[string]bool)
		for _, f := range final {
			pid := chunkByID[f.chunkID].ParentChunkID
			if pid != "" && !seen[pid] {
				seen[pid] = true
				parentIDs = append(parentIDs, pid)
			}
		}
		if len(parentIDs) > 0 {
			parents, err := e.chunks.GetParents(ctx, parentIDs)
			if err != nil {
				logger.Warn("parent resolution failed, hits returned without parent context", "error", err)
			} else {
				for _, f := range final {
					if p, ok := parents[chunkByID[f.chunkID].ParentChunkID]; ok {
						parentContents[f.chunkID] = p.Content
					}
				}
			}
		}
	}

	hits := make([]models.SearchHit, 0, len(final))
	for _, f := range final {
		c, ok := chunkByID[f.chunkID]
		if !ok {
			continue
		}
		score := f.rrfScore
		if f.rerankScore != nil {
			score = *f.rerankScore
		}
		hits = append(hits, models.SearchHit{
			ChunkID:       c.ID,
			DocumentID:    c.DocumentID,
			Content:       c.Content,
			Type:          c.Type,
			PageNumbers:   c.PageNumbers,
			Score:         score,
			RerankScore:   f.rerankScore,
			Sources:       f.sources,
			ParentContent: parentContents[f.chunkID],
		})
	}

	return &models.SearchResponse{
		Query:     req.Query,
		Hits:      hits,
		Total:     len(hits),
		PathStats: pathStats,
	}, nil
}

func (e *Engine) recallExact(ctx context.Context, req models.SearchRequest) ([]RankedItem, error) {
	hits, err := e.chunks.ExactSearch(ctx, req.NotebookID, req.Query, req.DocumentIDs, req.ChunkTypes, RecallExact)
	if err != nil {
		return nil, err
	}
	items := make([]RankedItem, len(hits))
	for i, h := range hits {
		items[i] = RankedItem{ChunkID: h.Chunk.ID, Score: h.Score, Source: "exact"}
	}
	return items, nil
}

func (e *Engine) recallSparse(ctx context.Context, req models.SearchRequest, filter vectorstore.Filter) ([]RankedItem, error) {
	vec := e.sparse.Embed(ctx, []string{req.Query})[0]
	results, err := e.vectors.SearchSparse(ctx, vec, RecallSparse, filter)
	if err != nil {
		return nil, err
	}
	return rankedFromResults(results, "sparse"), nil
}

func (e *Engine) recallDense(ctx context.Context, req models.SearchRequest, filter vectorstore.Filter) ([]RankedItem, error) {
	vec, err := e.dense.EmbedText(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	results, err := e.vectors.SearchDense(ctx, vec, RecallDense, filter)
	if err != nil {
		return nil, err
	}
	return rankedFromResults(results, "dense"), nil
}

func rankedFromResults(results []vectorstore.SearchResult, source string) []RankedItem {
	items := make([]RankedItem, len(results))
	for i, r := range results {
		items[i] = RankedItem{ChunkID: r.PointID, Score: float64(r.Score), Source: source}
	}
	return items
}

// rerankStage returns the final ordered candidates. With rerank disabled,
// unavailable or failed, fused order stands capped at TopK (or the fusion
// window when TopK is zero).
func (e *Engine) rerankStage(ctx context.Context, req models.SearchRequest, orderedIDs []string, documents []string, fused []FusedItem, fusedByID map[string]FusedItem, pathStats map[string]int) []finalItem {
	logger := contextutil.LoggerFromContext(ctx)

	fallback := func() []finalItem {
		limit := req.TopK
		if limit <= 0 {
			limit = RRFTopN
		}
		final := make([]finalItem, 0, limit)
		for _, f := range fused {
			if len(final) >= limit {
				break
			}
			final = append(final, finalItem{chunkID: f.ChunkID, rrfScore: f.Score, sources: f.Sources})
		}
		return final
	}

	if !req.EnableRerank || e.reranker == nil || len(documents) == 0 {
		pathStats["rerank_top"] = 0
		return fallback()
	}

	scored, mode, err := e.reranker.Rank(ctx, req.Query, documents, req.RerankThreshold, req.FallbackCosineThreshold, req.TopK)
	if err != nil {
		logger.Warn("rerank failed, falling back to fused order", "error", err)
		pathStats["rerank_top"] = 0
		return fallback()
	}
	logger.Debug("rerank complete", "mode", string(mode), "kept", len(scored))
	pathStats["rerank_top"] = len(scored)

	final := make([]finalItem, 0, len(scored))
	for _, s := range scored {
		if s.Index < 0 || s.Index >= len(orderedIDs) {
			continue
		}
		id := orderedIDs[s.Index]
		f := fusedByID[id]
		score := s.Score
		final = append(final, finalItem{chunkID: id, rrfScore: f.Score, sources: f.Sources, rerankScore: &score})
	}
	return final
}
