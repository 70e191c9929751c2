package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks knowledgebase/internal/vectorstore VectorStore

import (
	"context"

	"knowledgebase/internal/embedding"
)

// Point is one vector record, 1:1 with an embedded chunk.
type Point struct {
	ID     string
	Dense  []float32
	Sparse embedding.SparseVector
	Meta   map[string]any
}

// SearchResult is one scored point from a vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Filter scopes every read and write. NotebookID is mandatory; tenant
// isolation is enforced here with filter predicates, never with locking.
type Filter struct {
	NotebookID  string
	DocumentIDs []string
	ChunkTypes  []string
}

// VectorStore is the multi-tenant hybrid index: dual dense+sparse vectors
// per record in one collection partitioned by notebook id.
type VectorStore interface {
	// Upsert writes points in batches with bounded retries. Either the
	// whole call lands or an error surfaces; retry exhaustion is never
	// silent.
	Upsert(ctx context.Context, points []Point) error

	// SearchDense runs ANN search over the dense field, cosine scored.
	SearchDense(ctx context.Context, query []float32, k int, f Filter) ([]SearchResult, error)

	// SearchSparse runs inverted-index search over the sparse field,
	// inner-product scored.
	SearchSparse(ctx context.Context, query embedding.SparseVector, k int, f Filter) ([]SearchResult, error)

	// DeleteByDocument removes every point of one document in one notebook.
	DeleteByDocument(ctx context.Context, notebookID, documentID string) error

	// DeleteByIDs removes an explicit point id list.
	DeleteByIDs(ctx context.Context, ids []string) error
}
