package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"knowledgebase/internal/chunker"
	"knowledgebase/internal/models"
)

func TestTFIDF_Embed(t *testing.T) {
	vecs := TFIDF{}.Embed([]string{
		"the quick brown fox",
		"the lazy dog",
		"",
	})
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	if len(vecs[0]) == 0 || len(vecs[1]) == 0 {
		t.Error("non-empty text produced empty sparse vector")
	}
	// Empty text gets the sentinel dimension.
	if w, ok := vecs[2][TermID("__empty__")]; !ok || w != 0.01 {
		t.Errorf("empty text vector = %v, want sentinel", vecs[2])
	}
}

func TestTFIDF_RareTermWeighsMore(t *testing.T) {
	// "shared" appears in every doc, "unique" in one; with equal term
	// frequency the rarer term must carry the higher idf weight.
	vecs := TFIDF{}.Embed([]string{
		"shared unique",
		"shared other",
		"shared another",
	})
	shared := vecs[0][TermID("shared")]
	unique := vecs[0][TermID("unique")]
	if unique <= shared {
		t.Errorf("unique weight %v should exceed shared weight %v", unique, shared)
	}
}

func TestTFIDF_DimensionCap(t *testing.T) {
	words := make([]string, 0, 400)
	for i := 0; i < 400; i++ {
		words = append(words, "term"+string(rune('a'+i%26))+string(rune('a'+(i/26)%26))+string(rune('a'+(i/676)%26)))
	}
	vecs := TFIDF{}.Embed([]string{strings.Join(words, " ")})
	if len(vecs[0]) > 256 {
		t.Errorf("vector holds %d dims, cap is 256", len(vecs[0]))
	}
}

func TestTermID_Stable(t *testing.T) {
	if TermID("hello") != TermID("hello") {
		t.Error("TermID must be deterministic")
	}
	if TermID("hello") == TermID("world") {
		t.Error("distinct terms collided (possible but not for these inputs)")
	}
}

type stubTier struct {
	name string
	vecs []SparseVector
	err  error
}

func (s stubTier) Name() string { return s.name }
func (s stubTier) Embed(_ context.Context, _ []string) ([]SparseVector, error) {
	return s.vecs, s.err
}

func TestSparseChain_FallsThroughToTFIDF(t *testing.T) {
	chain := NewSparseChain(
		stubTier{name: "broken", err: errors.New("connection refused")},
		stubTier{name: "short", vecs: []SparseVector{{1: 0.5}}}, // wrong batch size
	)
	vecs := chain.Embed(context.Background(), []string{"alpha beta", "gamma"})
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors from terminal tier, got %d", len(vecs))
	}
	if len(vecs[0]) == 0 {
		t.Error("terminal tier produced empty vector")
	}
}

func TestSparseChain_FirstHealthyTierWins(t *testing.T) {
	want := []SparseVector{{7: 0.9}}
	chain := NewSparseChain(stubTier{name: "healthy", vecs: want})
	vecs := chain.Embed(context.Background(), []string{"text"})
	if _, ok := vecs[0][7]; !ok {
		t.Errorf("expected healthy tier result, got %v", vecs[0])
	}
}

func TestRemoteSparseClient_ParsesBothShapes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteSparseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{
				map[string]any{"indices": []uint32{3, 9}, "values": []float32{0.4, 0.6}},
				map[string]any{"42": 0.7},
			},
		})
	}))
	defer srv.Close()

	c := NewRemoteSparseClient(srv.URL, "")
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs[0][3] != 0.4 || vecs[0][9] != 0.6 {
		t.Errorf("array-shape vector = %v", vecs[0])
	}
	if vecs[1][42] != 0.7 {
		t.Errorf("map-shape vector = %v", vecs[1])
	}
}

func TestRemoteSparseClient_BatchSizeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	}))
	defer srv.Close()

	c := NewRemoteSparseClient(srv.URL, "")
	if _, err := c.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error on batch size mismatch")
	}
}

func TestNewRemoteSparseClient_EmptyURL(t *testing.T) {
	if c := NewRemoteSparseClient("  ", "key"); c != nil {
		t.Error("expected nil client for blank URL")
	}
}

func TestDenseClient_EmbedTexts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embeddingsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		// Return items in reverse order to exercise index re-sorting.
		for i := range req.Input {
			data[len(req.Input)-1-i] = map[string]any{
				"index":     i,
				"embedding": []float64{float64(i), 0.0},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	c := NewDenseClient(srv.URL, "key", "test-model", 2, 10)
	vecs, err := c.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	for i, v := range vecs {
		if v[0] != float32(i) {
			t.Errorf("vector %d = %v, out of order", i, v)
		}
	}
}

func TestDenseClient_DimValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{map[string]any{"index": 0, "embedding": []float64{1, 2, 3}}},
		})
	}))
	defer srv.Close()

	c := NewDenseClient(srv.URL, "key", "test-model", 2, 10)
	if _, err := c.EmbedTexts(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected dimension validation error")
	}
}

func TestTextForEmbedding(t *testing.T) {
	tests := []struct {
		name  string
		chunk models.Chunk
		want  string
	}{
		{
			"plain text passes through",
			models.Chunk{Type: models.ChunkTypeText, Content: "hello"},
			"hello",
		},
		{
			"image chunk embeds caption only",
			models.Chunk{Type: models.ChunkTypeImageCaption, Content: "https://x/y.png\nA network diagram"},
			"A network diagram",
		},
		{
			"image chunk with bare URL embeds nothing",
			models.Chunk{Type: models.ChunkTypeImageCaption, Content: "https://x/y.png"},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextForEmbedding(tt.chunk, 2048); got != tt.want {
				t.Errorf("TextForEmbedding = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextForEmbedding_Truncates(t *testing.T) {
	long := strings.Repeat("word ", 4000)
	got := TextForEmbedding(models.Chunk{Type: models.ChunkTypeText, Content: long}, 100)
	if len(got) >= len(long) {
		t.Fatal("expected truncation")
	}
	if est := chunker.EstimateTokens(got); est > 100 {
		t.Errorf("truncated text estimates %d tokens, budget 100", est)
	}
}

func TestTextForEmbedding_TruncatesCJK(t *testing.T) {
	long := strings.Repeat("知", 4000)
	got := TextForEmbedding(models.Chunk{Type: models.ChunkTypeText, Content: long}, 100)
	if len(got) >= len(long) {
		t.Fatal("expected truncation")
	}
	if est := chunker.EstimateTokens(got); est > 100 {
		t.Errorf("truncated text estimates %d tokens, budget 100", est)
	}
}
