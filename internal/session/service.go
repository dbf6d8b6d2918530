package session

import (
	"context"

	"github.com/bookshelf-app/bookshelf-service/internal/service/catalog"
	"github.com/bookshelf-app/bookshelf-service/internal/service/imagegen"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var (
	_ Generator = (*imagegen.Service)(nil)
	_ Registrar = (*catalog.Service)(nil)
)

// Generator is the external image-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, request imagegen.Request) (string, error)
	Fetch(ctx context.Context, imageURL string) ([]byte, string, error)
}

// Registrar commits a chosen cover back to the backend record.
type Registrar interface {
	PatchCover(ctx context.Context, id int, coverImageURL string) error
}
