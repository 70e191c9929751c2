// Package rerank is the precision stage: cross-encoder scoring of fused
// candidates with an embedding-cosine degrade path. The two scoring regimes
// use different thresholds and are never mixed within one request.
package rerank

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_cross_encoder.go -package=mocks knowledgebase/internal/rerank CrossEncoder,DenseEmbedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"time"

	"knowledgebase/internal/contextutil"
)

// Mode names the scoring regime applied to a request.
type Mode string

const (
	ModeCrossEncoder Mode = "cross_encoder"
	ModeCosine       Mode = "cosine"
)

// Default pass thresholds per regime. Cross-encoder scores are absolute
// relevance in 0..1; cosine similarity for matching text usually sits in
// 0.7..1.0, so its bar is much higher.
const (
	DefaultThreshold       = 0.2
	DefaultCosineThreshold = 0.85
)

// Scored is one surviving candidate: the index into the input documents and
// its score under the chosen regime.
type Scored struct {
	Index int
	Score float64
}

// CrossEncoder scores query/document pairs with absolute relevance.
type CrossEncoder interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// DenseEmbedder is the slice of the dense client the cosine fallback needs.
type DenseEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Reranker applies the cross-encoder when available and degrades to cosine
// similarity otherwise. The regime is chosen once at the start of each call.
type Reranker struct {
	encoder  CrossEncoder // nil when no cross-encoder is configured
	embedder DenseEmbedder
}

// New creates a Reranker. encoder may be nil, forcing the cosine regime.
func New(encoder CrossEncoder, embedder DenseEmbedder) *Reranker {
	return &Reranker{encoder: encoder, embedder: embedder}
}

// Rank scores documents against query, filters by the regime's threshold and
// returns survivors sorted by score descending. topN <= 0 means no cap
// beyond the threshold. A nil threshold pointer selects the regime default.
func (r *Reranker) Rank(ctx context.Context, query string, documents []string, threshold, cosineThreshold *float64, topN int) ([]Scored, Mode, error) {
	if len(documents) == 0 {
		return nil, ModeCrossEncoder, nil
	}
	logger := contextutil.LoggerFromContext(ctx)

	if r.encoder != nil {
		scores, err := r.encoder.Score(ctx, query, documents)
		if err == nil && len(scores) == len(documents) {
			return filterSorted(scores, orDefault(threshold, DefaultThreshold), topN), ModeCrossEncoder, nil
		}
		if err != nil {
			logger.Warn("cross-encoder failed, degrading to cosine rerank", "error", err)
		} else {
			logger.Warn("cross-encoder returned wrong batch size, degrading to cosine rerank",
				"got", len(scores), "want", len(documents))
		}
	}

	scores, err := r.cosineScores(ctx, query, documents)
	if err != nil {
		return nil, ModeCosine, fmt.Errorf("failed to score candidates: %w", err)
	}
	return filterSorted(scores, orDefault(cosineThreshold, DefaultCosineThreshold), topN), ModeCosine, nil
}

func (r *Reranker) cosineScores(ctx context.Context, query string, documents []string) ([]float64, error) {
	queryVec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	docVecs, err := r.embedder.EmbedTexts(ctx, documents)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(docVecs))
	for i, v := range docVecs {
		scores[i] = Cosine(queryVec, v)
	}
	return scores, nil
}

// filterSorted keeps indices clearing the threshold, best score first.
func filterSorted(scores []float64, threshold float64, topN int) []Scored {
	out := make([]Scored, 0, len(scores))
	for i, s := range scores {
		if s >= threshold {
			out = append(out, Scored{Index: i, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func orDefault(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

// Cosine computes cosine similarity, 0 for a zero vector.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// JinaClient implements CrossEncoder against a Jina-compatible rerank API.
type JinaClient struct {
	URL    string
	APIKey string
	Model  string
	client *http.Client
}

// NewJinaClient creates a cross-encoder client. Returns nil when apiKey is
// empty so the caller wires the cosine-only reranker.
func NewJinaClient(url, apiKey, model string) *JinaClient {
	if apiKey == "" {
		return nil
	}
	if url == "" {
		url = "https://api.jina.ai/v1/rerank"
	}
	return &JinaClient{
		URL:    url,
		APIKey: apiKey,
		Model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type rerankRequest struct {
	Model           string   `json:"model,omitempty"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

// Score requests relevance for every document so threshold filtering happens
// client-side.
func (c *JinaClient) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{
		Model:     c.Model,
		Query:     query,
		Documents: documents,
		TopN:      len(documents),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.URL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call rerank API: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank API returned status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	scores := make([]float64, len(documents))
	seen := make([]bool, len(documents))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank result index %d out of range", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank response missing score for document %d", i)
		}
	}
	return scores, nil
}
