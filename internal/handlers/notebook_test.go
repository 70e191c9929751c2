package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"knowledgebase/internal/chunker"
	"knowledgebase/internal/models"
	objectmocks "knowledgebase/internal/objectstore/mocks"
	parsermocks "knowledgebase/internal/parser/mocks"
	"knowledgebase/internal/service"
	"knowledgebase/internal/storage"
	storagemocks "knowledgebase/internal/storage/mocks"
	vectormocks "knowledgebase/internal/vectorstore/mocks"
)

type notebookFixture struct {
	handler       *NotebookHandler
	notebookStore *storagemocks.MockNotebookStore
	documentStore *storagemocks.MockDocumentStore
	router        chi.Router
}

func newNotebookFixture(t *testing.T, ctrl *gomock.Controller) *notebookFixture {
	t.Helper()

	notebookStore := storagemocks.NewMockNotebookStore(ctrl)
	documentStore := storagemocks.NewMockDocumentStore(ctrl)
	documents := service.NewDocumentService(
		documentStore,
		storagemocks.NewMockChunkStore(ctrl),
		notebookStore,
		objectmocks.NewMockObjectStore(ctrl),
		vectormocks.NewMockVectorStore(ctrl),
		parsermocks.NewMockParser(ctrl),
		nil, nil,
		chunker.New(chunker.DefaultConfig()),
		nil,
	)

	h := NewNotebookHandler(service.NewNotebookService(notebookStore), documents)

	r := chi.NewRouter()
	r.Post("/api/notebooks", h.Create)
	r.Get("/api/notebooks/{id}", h.Get)
	r.Put("/api/notebooks/{id}", h.Update)
	r.Delete("/api/notebooks/{id}", h.Delete)

	return &notebookFixture{handler: h, notebookStore: notebookStore, documentStore: documentStore, router: r}
}

func TestNotebookHandler_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fx := newNotebookFixture(t, ctrl)

	fx.notebookStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	fx.notebookStore.EXPECT().GetByID(gomock.Any(), gomock.Any()).
		Return(&models.Notebook{ID: "nb1", Title: "Research", OwnerID: 1}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/notebooks", strings.NewReader(`{"title":"Research"}`))
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Create() status = %v, want %v, body %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var nb models.Notebook
	if err := json.Unmarshal(w.Body.Bytes(), &nb); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if nb.ID != "nb1" || nb.Title != "Research" {
		t.Errorf("Create() notebook = %+v", nb)
	}
}

func TestNotebookHandler_Create_EmptyTitle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fx := newNotebookFixture(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/notebooks", strings.NewReader(`{"title":"   "}`))
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Create() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "Validation error") {
		t.Errorf("Create() body = %s, want validation error", w.Body.String())
	}
}

func TestNotebookHandler_Get_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fx := newNotebookFixture(t, ctrl)

	fx.notebookStore.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/notebooks/missing", nil)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Get() status = %v, want %v", w.Code, http.StatusNotFound)
	}
}

func TestNotebookHandler_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fx := newNotebookFixture(t, ctrl)

	fx.notebookStore.EXPECT().UpdateTitle(gomock.Any(), "nb1", "Renamed").Return(nil)
	fx.notebookStore.EXPECT().GetByID(gomock.Any(), "nb1").
		Return(&models.Notebook{ID: "nb1", Title: "Renamed"}, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/notebooks/nb1", strings.NewReader(`{"title":"Renamed"}`))
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Update() status = %v, want %v, body %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestNotebookHandler_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	fx := newNotebookFixture(t, ctrl)

	fx.documentStore.EXPECT().ListByNotebook(gomock.Any(), "nb1").Return([]models.Document{}, nil)
	fx.notebookStore.EXPECT().Delete(gomock.Any(), "nb1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/notebooks/nb1", nil)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Delete() status = %v, want %v, body %s", w.Code, http.StatusOK, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"deleted":"nb1"`) {
		t.Errorf("Delete() body = %s", w.Body.String())
	}
}
