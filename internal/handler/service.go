package handler

import (
	"context"

	"github.com/bookshelf-app/bookshelf-service/internal/model"
	"github.com/bookshelf-app/bookshelf-service/internal/service/catalog"
	"github.com/bookshelf-app/bookshelf-service/internal/session"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var (
	_ CatalogService = (*catalog.Service)(nil)
	_ CoverWorkflow  = (*session.Workflow)(nil)
)

// CatalogService is the gateway to the books backend.
type CatalogService interface {
	ListBooks(ctx context.Context) ([]model.Book, error)
	GetBook(ctx context.Context, id int) (model.Book, error)
	CreateBook(ctx context.Context, request model.CreateBookRequest) (model.Book, error)
	UpdateBook(ctx context.Context, id int, request model.UpdateBookRequest) (model.Book, error)
	DeleteBook(ctx context.Context, id int) error
	PatchCover(ctx context.Context, id int, coverImageURL string) error
}

// CoverWorkflow drives the cover-generation sessions.
type CoverWorkflow interface {
	Open(bookID *int, title, content, image string) session.View
	Get(id string) (session.View, error)
	UpdateInput(id string, in session.Input) (session.View, error)
	Generate(ctx context.Context, id string, in session.GenerateInput) (session.View, error)
	Register(ctx context.Context, id string) (session.View, error)
	Download(ctx context.Context, id string) (session.Image, error)
	Close(id string) error
}
