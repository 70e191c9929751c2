// Package vectorstore is the gateway to the hybrid vector index. One Qdrant
// collection holds a named dense vector (cosine) and a named sparse vector
// (inner product) per point, partitioned by notebook id payload filters.
package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"knowledgebase/internal/contextutil"
	"knowledgebase/internal/embedding"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
)

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client     *qdrant.Client
	collection string

	batchSize  int
	maxRetries int
	backoff    time.Duration
}

// NewQdrantStore creates a Qdrant-backed store for one collection.
// urlStr is "http://host:port"; the gRPC port is derived as HTTP port + 1.
func NewQdrantStore(urlStr, collection string) (*QdrantStore, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		if httpPort, err := strconv.Atoi(parsedURL.Port()); err == nil {
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: collection,
		batchSize:  128,
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}, nil
}

// EnsureCollection creates the hybrid collection if it does not exist and
// validates the dense vector size if it does.
func (s *QdrantStore) EnsureCollection(ctx context.Context, denseSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "dense_size", denseSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
				denseVectorName: {
					Size:     uint64(denseSize),
					Distance: qdrant.Distance_Cosine,
				},
			}),
			SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
				sparseVectorName: {},
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}
	config := info.GetConfig()
	if config == nil || config.GetParams() == nil {
		return fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.GetParams().GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParamsMap().GetMap()[denseVectorName]
	if params == nil {
		return fmt.Errorf("collection is missing the %q vector field", denseVectorName)
	}
	if int(params.Size) != denseSize {
		return fmt.Errorf("collection dense size mismatch: expected %d, got %d", denseSize, params.Size)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "dense_size", denseSize)
	return nil
}

// Upsert writes points in batches. Each batch retries independently with
// exponential backoff; a batch that exhausts its retries fails the call so
// the owning document can transition to FAILED instead of losing data.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	for start := 0; start < len(points); start += s.batchSize {
		end := start + s.batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := make([]*qdrant.PointStruct, 0, end-start)
		for _, point := range points[start:end] {
			indices, values := sparsePair(point.Sparse)
			qdrantPoint := &qdrant.PointStruct{
				Id: qdrant.NewID(point.ID),
				Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
					denseVectorName:  qdrant.NewVectorDense(point.Dense),
					sparseVectorName: qdrant.NewVectorSparse(indices, values),
				}),
			}
			if len(point.Meta) > 0 {
				qdrantPoint.Payload = qdrant.NewValueMap(point.Meta)
			}
			batch = append(batch, qdrantPoint)
		}

		if err := s.upsertBatch(ctx, batch); err != nil {
			logger.ErrorContext(ctx, "failed to upsert batch",
				"collection", s.collection, "offset", start, "size", len(batch), "error", err)
			return fmt.Errorf("failed to upsert points: %w", err)
		}
	}

	logger.InfoContext(ctx, "upserted points", "collection", s.collection, "count", len(points))
	return nil
}

// upsertBatch is the retry unit: the batch either lands whole or errors
// after the retry budget.
func (s *QdrantStore) upsertBatch(ctx context.Context, batch []*qdrant.PointStruct) error {
	logger := contextutil.LoggerFromContext(ctx)

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			wait := retryDelay(s.backoff, attempt)
			logger.WarnContext(ctx, "retrying upsert batch",
				"attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         batch,
		})
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// SearchDense runs ANN search over the dense field.
func (s *QdrantStore) SearchDense(ctx context.Context, query []float32, k int, f Filter) ([]SearchResult, error) {
	return s.search(ctx, qdrant.NewQueryDense(query), denseVectorName, k, f)
}

// SearchSparse runs inverted-index search over the sparse field.
func (s *QdrantStore) SearchSparse(ctx context.Context, query embedding.SparseVector, k int, f Filter) ([]SearchResult, error) {
	indices, values := sparsePair(query)
	return s.search(ctx, qdrant.NewQuerySparse(indices, values), sparseVectorName, k, f)
}

func (s *QdrantStore) search(ctx context.Context, query *qdrant.Query, using string, k int, f Filter) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	filter, err := buildFilter(f)
	if err != nil {
		return nil, err
	}

	limit := uint64(k)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          query,
		Using:          &using,
		Limit:          &limit,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points",
			"collection", s.collection, "using", using, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		pointID := ""
		if point.Id != nil {
			pointID = point.Id.GetUuid()
		}
		meta := make(map[string]any)
		if point.Payload != nil {
			meta = convertPayloadToMap(point.Payload)
		}
		results = append(results, SearchResult{
			PointID: pointID,
			Score:   point.Score,
			Meta:    meta,
		})
	}
	return results, nil
}

// DeleteByDocument removes every point of one document within one notebook.
func (s *QdrantStore) DeleteByDocument(ctx context.Context, notebookID, documentID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if notebookID == "" || documentID == "" {
		return fmt.Errorf("notebook id and document id are required")
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("notebook_id", notebookID),
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete document points",
			"collection", s.collection, "document_id", documentID, "error", err)
		return fmt.Errorf("failed to delete points: %w", err)
	}

	logger.InfoContext(ctx, "deleted document points", "collection", s.collection, "document_id", documentID)
	return nil
}

// DeleteByIDs removes an explicit point id list.
func (s *QdrantStore) DeleteByIDs(ctx context.Context, ids []string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(ids) == 0 {
		return nil
	}
	qdrantIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		qdrantIDs = append(qdrantIDs, qdrant.NewID(id))
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(qdrantIDs...),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", s.collection, "count", len(ids), "error", err)
		return fmt.Errorf("failed to delete points: %w", err)
	}

	logger.InfoContext(ctx, "deleted points", "collection", s.collection, "count", len(ids))
	return nil
}

// buildFilter translates a Filter into Qdrant conditions. The notebook
// predicate is never optional.
func buildFilter(f Filter) (*qdrant.Filter, error) {
	if f.NotebookID == "" {
		return nil, fmt.Errorf("notebook id is required")
	}
	must := []*qdrant.Condition{
		qdrant.NewMatch("notebook_id", f.NotebookID),
	}
	if len(f.DocumentIDs) > 0 {
		must = append(must, qdrant.NewMatchKeywords("document_id", f.DocumentIDs...))
	}
	if len(f.ChunkTypes) > 0 {
		must = append(must, qdrant.NewMatchKeywords("chunk_type", f.ChunkTypes...))
	}
	return &qdrant.Filter{Must: must}, nil
}

// sparsePair flattens a sparse vector into index-sorted parallel slices.
func sparsePair(vec embedding.SparseVector) ([]uint32, []float32) {
	indices := make([]uint32, 0, len(vec))
	for id := range vec {
		indices = append(indices, id)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	values := make([]float32, len(indices))
	for i, id := range indices {
		values[i] = vec[id]
	}
	return indices, values
}

// retryDelay doubles the base delay per attempt.
func retryDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// convertPayloadToMap converts Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to a Go value.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
