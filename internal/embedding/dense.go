// Package embedding turns chunk text into dense and sparse vectors. Dense
// embedding goes through an OpenAI-compatible endpoint; sparse embedding
// walks an ordered fallback chain ending at an in-process TF-IDF tier that
// cannot fail.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"knowledgebase/internal/chunker"
	"knowledgebase/internal/models"
)

// DenseClient calls an OpenAI-compatible /v1/embeddings endpoint.
type DenseClient struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dim       int // expected vector size, validated on every response
	BatchSize int
	client    *http.Client
}

// NewDenseClient creates a dense embedding client. dim is the collection's
// dense vector size; every returned vector is validated against it.
func NewDenseClient(baseURL, apiKey, model string, dim, batchSize int) *DenseClient {
	if batchSize < 1 {
		batchSize = 10
	}
	return &DenseClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		Model:     model,
		Dim:       dim,
		BatchSize: batchSize,
		client:    http.DefaultClient,
	}
}

type embeddingsRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type embeddingsResponse struct {
	Data []embeddingData `json:"data"`
}

// EmbedTexts generates dense vectors for texts, one per input, splitting the
// request into provider-sized batches. Providers may return batch items out
// of order, so each batch is re-sorted by index.
func (c *DenseClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.BatchSize {
		end := start + c.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedText generates a dense vector for a single text.
func (c *DenseClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *DenseClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	payload := embeddingsRequest{Model: c.Model, Input: texts}
	if strings.Contains(c.Model, "text-embedding-v") {
		payload.Dimensions = c.Dim
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/embeddings", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

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

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(parsed.Data))
	}

	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })

	result := make([][]float32, len(parsed.Data))
	for i, data := range parsed.Data {
		if len(data.Embedding) != c.Dim {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.Dim)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}
	return result, nil
}

// TextForEmbedding returns the text actually sent to the embedding model for
// a chunk. Image chunks embed only the derived caption (content is stored as
// "url\ncaption"), never the bare URL. Oversized content is truncated for
// embedding only; the stored content stays complete.
func TextForEmbedding(chunk models.Chunk, maxTokens int) string {
	content := chunk.Content
	if chunk.Type == models.ChunkTypeImageCaption && content != "" {
		if idx := strings.IndexByte(content, '\n'); idx >= 0 {
			content = strings.TrimSpace(content[idx+1:])
		} else {
			content = ""
		}
	}
	if content == "" || chunker.EstimateTokens(content) <= maxTokens {
		return content
	}
	return strings.TrimRight(chunker.TruncateToTokens(content, maxTokens), " \n")
}
