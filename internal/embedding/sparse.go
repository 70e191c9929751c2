package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"knowledgebase/internal/contextutil"
)

// SparseTier is one step of the sparse embedding fallback chain.
type SparseTier interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([]SparseVector, error)
}

// SparseChain tries tiers in order and uses the first that returns a
// well-formed result for the whole batch. A tier failure is logged at
// warning level and never surfaces to the caller; the terminal TF-IDF tier
// cannot fail, so Embed always produces a vector per input.
type SparseChain struct {
	tiers []SparseTier
}

// NewSparseChain builds the fallback chain. Nil tiers are skipped; TF-IDF is
// always appended as the terminal tier.
func NewSparseChain(tiers ...SparseTier) *SparseChain {
	chain := &SparseChain{}
	for _, t := range tiers {
		if t != nil {
			chain.tiers = append(chain.tiers, t)
		}
	}
	chain.tiers = append(chain.tiers, tfidfTier{})
	return chain
}

// Embed returns one sparse vector per input text.
func (c *SparseChain) Embed(ctx context.Context, texts []string) []SparseVector {
	if len(texts) == 0 {
		return nil
	}
	logger := contextutil.LoggerFromContext(ctx)

	for _, tier := range c.tiers {
		vecs, err := tier.Embed(ctx, texts)
		if err != nil {
			logger.Warn("sparse embedding tier failed, falling back",
				"tier", tier.Name(), "error", err)
			continue
		}
		if len(vecs) != len(texts) {
			logger.Warn("sparse embedding tier returned wrong batch size, falling back",
				"tier", tier.Name(), "got", len(vecs), "want", len(texts))
			continue
		}
		return vecs
	}
	// Unreachable: the TF-IDF tier always succeeds.
	return nil
}

// tfidfTier adapts TFIDF to the tier interface.
type tfidfTier struct{}

func (tfidfTier) Name() string { return "tfidf" }

func (tfidfTier) Embed(_ context.Context, texts []string) ([]SparseVector, error) {
	return TFIDF{}.Embed(texts), nil
}

// RemoteSparseClient calls an external neural-sparse inference service
// (BGE-M3/SPLADE style encode endpoint).
type RemoteSparseClient struct {
	URL    string
	APIKey string
	client *http.Client
}

// NewRemoteSparseClient creates the remote tier. Returns nil when url is
// empty so the chain constructor can skip it.
func NewRemoteSparseClient(url, apiKey string) *RemoteSparseClient {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		return nil
	}
	if !strings.Contains(url, "/encode") && !strings.Contains(url, "/embeddings") {
		url += "/encode"
	}
	return &RemoteSparseClient{URL: url, APIKey: apiKey, client: http.DefaultClient}
}

func (c *RemoteSparseClient) Name() string { return "remote" }

type remoteSparseRequest struct {
	Texts        []string `json:"texts"`
	ReturnSparse bool     `json:"return_sparse"`
}

// remoteSparseItem tolerates the two shapes sparse services emit: parallel
// indices/values arrays, or a term-id keyed weight map.
type remoteSparseItem struct {
	Indices []uint32           `json:"indices"`
	Values  []float32          `json:"values"`
	Weights map[string]float32 `json:"-"`
}

func (it *remoteSparseItem) UnmarshalJSON(data []byte) error {
	type arrays struct {
		Indices []uint32  `json:"indices"`
		Values  []float32 `json:"values"`
	}
	var a arrays
	if err := json.Unmarshal(data, &a); err == nil && len(a.Indices) > 0 {
		it.Indices, it.Values = a.Indices, a.Values
		return nil
	}
	var m map[string]float32
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	it.Weights = m
	return nil
}

type remoteSparseResponse struct {
	Data    []remoteSparseItem `json:"data"`
	Sparse  []remoteSparseItem `json:"sparse"`
	Results []remoteSparseItem `json:"results"`
}

func (c *RemoteSparseClient) Embed(ctx context.Context, texts []string) ([]SparseVector, error) {
	body, err := json.Marshal(remoteSparseRequest{Texts: texts, ReturnSparse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.URL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed remoteSparseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	items := parsed.Data
	if len(items) == 0 {
		items = parsed.Sparse
	}
	if len(items) == 0 {
		items = parsed.Results
	}
	if len(items) != len(texts) {
		return nil, fmt.Errorf("expected %d sparse vectors, got %d", len(texts), len(items))
	}

	out := make([]SparseVector, len(items))
	for i, item := range items {
		vec := make(SparseVector)
		if len(item.Indices) > 0 {
			if len(item.Indices) != len(item.Values) {
				return nil, fmt.Errorf("sparse vector %d has %d indices but %d values", i, len(item.Indices), len(item.Values))
			}
			for j, id := range item.Indices {
				vec[id] = item.Values[j]
			}
		} else {
			for k, w := range item.Weights {
				id, err := strconv.ParseUint(k, 10, 32)
				if err != nil {
					continue
				}
				vec[uint32(id)] = w
			}
		}
		if len(vec) > maxSparseDims {
			vec = topDims(vec, maxSparseDims)
		}
		if len(vec) == 0 {
			vec = SparseVector{TermID(emptySentinel): 0.01}
		}
		out[i] = vec
	}
	return out, nil
}
