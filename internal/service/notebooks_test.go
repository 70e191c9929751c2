package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"knowledgebase/internal/models"
	"knowledgebase/internal/storage"
	storagemocks "knowledgebase/internal/storage/mocks"
)

func TestNotebookService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storagemocks.NewMockNotebookStore(ctrl)
	svc := NewNotebookService(store)

	var createdID string
	store.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, nb *models.Notebook) error {
			if nb.Title != "research" || nb.OwnerID != 7 || nb.ID == "" {
				t.Errorf("created %+v", nb)
			}
			createdID = nb.ID
			return nil
		})
	store.EXPECT().
		GetByID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) (*models.Notebook, error) {
			return &models.Notebook{ID: id, Title: "research", OwnerID: 7}, nil
		})

	nb, err := svc.Create(context.Background(), 7, "  research  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if nb.ID != createdID {
		t.Errorf("returned %+v", nb)
	}
}

func TestNotebookService_Create_EmptyTitle(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewNotebookService(storagemocks.NewMockNotebookStore(ctrl))

	_, err := svc.Create(context.Background(), 7, "   ")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "title" {
		t.Fatalf("expected title validation error, got %v", err)
	}
}

func TestNotebookService_Rename_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storagemocks.NewMockNotebookStore(ctrl)
	svc := NewNotebookService(store)

	store.EXPECT().UpdateTitle(gomock.Any(), "missing", "x").Return(storage.ErrNotFound)

	if _, err := svc.Rename(context.Background(), "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotebookService_List_NeverNil(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storagemocks.NewMockNotebookStore(ctrl)
	svc := NewNotebookService(store)

	store.EXPECT().ListByOwner(gomock.Any(), int64(7)).Return(nil, nil)

	out, err := svc.List(context.Background(), 7)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if out == nil {
		t.Error("list should serialize as [], not null")
	}
}
