package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"knowledgebase/internal/models"
	"knowledgebase/internal/search"
	"knowledgebase/internal/storage"
	storagemocks "knowledgebase/internal/storage/mocks"
	vectormocks "knowledgebase/internal/vectorstore/mocks"
)

func TestSearchHandler_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chunkStore := storagemocks.NewMockChunkStore(ctrl)
	vectorStore := vectormocks.NewMockVectorStore(ctrl)
	h := NewSearchHandler(search.NewEngine(chunkStore, vectorStore, nil, nil, nil))

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "empty body",
			body: "",
			want: "Invalid request body",
		},
		{
			name: "missing notebook id",
			body: `{"query":"alpha"}`,
			want: "notebook_id is required",
		},
		{
			name: "missing query",
			body: `{"notebook_id":"nb1"}`,
			want: "query is required",
		},
		{
			name: "unknown chunk type",
			body: `{"notebook_id":"nb1","query":"alpha","chunk_types":["BOGUS"]}`,
			want: "unknown chunk type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.Search(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Search() status = %v, want %v", w.Code, http.StatusBadRequest)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("Search() body = %s, want %s", w.Body.String(), tt.want)
			}
		})
	}
}

func TestSearchHandler_ExactOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	chunkStore := storagemocks.NewMockChunkStore(ctrl)
	vectorStore := vectormocks.NewMockVectorStore(ctrl)
	h := NewSearchHandler(search.NewEngine(chunkStore, vectorStore, nil, nil, nil))

	hit := models.Chunk{
		ID:         "c1",
		DocumentID: "d1",
		NotebookID: "nb1",
		Type:       models.ChunkTypeText,
		Content:    "alpha beta",
	}
	chunkStore.EXPECT().
		ExactSearch(gomock.Any(), "nb1", "alpha", nil, nil, search.RecallExact).
		Return([]storage.ExactHit{{Chunk: hit, Score: 1.0}}, nil)
	chunkStore.EXPECT().GetByIDs(gomock.Any(), []string{"c1"}).Return([]models.Chunk{hit}, nil)

	body := `{"notebook_id":"nb1","query":"alpha","enable_exact":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Search() status = %v, want %v, body %s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Hits) != 1 {
		t.Fatalf("Search() total = %d, hits = %d", resp.Total, len(resp.Hits))
	}
	if resp.Hits[0].ChunkID != "c1" {
		t.Errorf("Search() hit = %+v", resp.Hits[0])
	}
	if resp.PathStats["exact"] != 1 {
		t.Errorf("Search() path_stats = %v", resp.PathStats)
	}
}
