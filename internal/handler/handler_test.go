package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bookshelf-app/bookshelf-service/config"
	"github.com/bookshelf-app/bookshelf-service/internal/errs"
	"github.com/bookshelf-app/bookshelf-service/internal/handler"
	"github.com/bookshelf-app/bookshelf-service/internal/model"
	"github.com/bookshelf-app/bookshelf-service/pkg/validate"
	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	service_mocks "github.com/bookshelf-app/bookshelf-service/internal/handler/mocks"
)

func newTestHandler(t *testing.T) (*handler.Handler, *service_mocks.MockCatalogService, *service_mocks.MockCoverWorkflow, *echo.Echo) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	catalogSvc := service_mocks.NewMockCatalogService(c)
	workflow := service_mocks.NewMockCoverWorkflow(c)
	log := zap.NewExample().Named("test")
	h := handler.New(catalogSvc, workflow, config.Config{Catalog: config.Catalog{PageSize: 3}}, log)

	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	return h, catalogSvc, workflow, e
}

func catalogBooks(n int) []model.Book {
	books := make([]model.Book, 0, n)
	for i := 1; i <= n; i++ {
		books = append(books, model.Book{ID: i, Title: fmt.Sprintf("book %d", i)})
	}
	return books
}

func TestHandler_ListBooks(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockCatalogService)

	tests := []struct {
		name         string
		target       string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name:   "second page of seven books",
			target: "/books?page=2",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().ListBooks(context.Background()).Return(catalogBooks(7), nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"page":2,"pageSize":3,"totalPages":3,"totalElements":7,"items":[{"id":4,"title":"book 4"},{"id":5,"title":"book 5"},{"id":6,"title":"book 6"}]}`,
		},
		{
			name:   "page beyond range snaps to last",
			target: "/books?page=99",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().ListBooks(context.Background()).Return(catalogBooks(7), nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"page":3,"pageSize":3,"totalPages":3,"totalElements":7,"items":[{"id":7,"title":"book 7"}]}`,
		},
		{
			name:   "empty catalog is an empty state",
			target: "/books",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().ListBooks(context.Background()).Return([]model.Book{}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"page":1,"pageSize":3,"totalPages":0,"totalElements":0,"items":[]}`,
		},
		{
			name:   "backend unavailable is a catalog-level error",
			target: "/books",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().ListBooks(context.Background()).Return(nil, errs.ErrUnavailable)
			},
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"message":"upstream unavailable"}`,
		},
		{
			name:         "invalid page",
			target:       "/books?page=abc",
			mockBehavior: func(r *service_mocks.MockCatalogService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"page is invalid"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, catalogSvc, _, e := newTestHandler(t)
			e.GET("/books", h.ListBooks)
			tt.mockBehavior(catalogSvc)

			r := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_GetBook(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockCatalogService)

	tests := []struct {
		name         string
		target       string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name:   "detail with formatted timestamps",
			target: "/books/3",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().GetBook(context.Background(), 3).Return(model.Book{
					ID:        3,
					Title:     "T",
					Content:   "C",
					CreatedAt: "2025-12-05T17:03:53.750913",
				}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"book":{"id":3,"title":"T","content":"C","createdAt":"2025-12-05T17:03:53.750913"},"createdAtDisplay":"2025-12-05 17:03:53","updatedAtDisplay":"no information"}`,
		},
		{
			name:   "missing book renders the degraded detail state",
			target: "/books/99",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().GetBook(context.Background(), 99).Return(model.Book{}, errs.ErrNotFound)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"message":"not found"}`,
		},
		{
			name:         "non-numeric id",
			target:       "/books/abc",
			mockBehavior: func(r *service_mocks.MockCatalogService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"id is invalid"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, catalogSvc, _, e := newTestHandler(t)
			e.GET("/books/:id", h.GetBook)
			tt.mockBehavior(catalogSvc)

			r := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_CreateBook(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockCatalogService)

	tests := []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "created without cover hands off to cover generation",
			body: `{"title":"T","content":"C"}`,
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					CreateBook(context.Background(), model.CreateBookRequest{Title: "T", Content: "C"}).
					Return(model.Book{ID: 10, Title: "T", Content: "C"}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: `{"book":{"id":10,"title":"T","content":"C"},"next":"cover","handoff":{"id":10,"title":"T","content":"C"}}`,
		},
		{
			name: "created with cover returns to browse",
			body: `{"title":"T","content":"C","coverImageUrl":"http://img/cover.png"}`,
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					CreateBook(context.Background(), model.CreateBookRequest{Title: "T", Content: "C", CoverImageURL: "http://img/cover.png"}).
					Return(model.Book{ID: 11, Title: "T", Content: "C", CoverImageURL: "http://img/cover.png"}, nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: `{"book":{"id":11,"title":"T","content":"C","coverImageUrl":"http://img/cover.png"},"next":"browse"}`,
		},
		{
			name:         "blank title never reaches the backend",
			body:         `{"title":"   ","content":"C"}`,
			mockBehavior: func(r *service_mocks.MockCatalogService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"title is required"}`,
		},
		{
			name: "backend validation failure",
			body: `{"title":"T","content":"C"}`,
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					CreateBook(context.Background(), gomock.Any()).
					Return(model.Book{}, errors.Wrap(errs.ErrValidation, "title too long"))
			},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"title too long: validation failed"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, catalogSvc, _, e := newTestHandler(t)
			e.POST("/books", h.CreateBook)
			tt.mockBehavior(catalogSvc)

			r := httptest.NewRequest(http.MethodPost, "/books", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_UpdateBook(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockCatalogService)

	tests := []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name: "updated with cover returns to browse",
			body: `{"title":"T2","content":"C2","coverImageUrl":"http://img"}`,
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					UpdateBook(context.Background(), 3, model.UpdateBookRequest{Title: "T2", Content: "C2", CoverImageURL: "http://img"}).
					Return(model.Book{ID: 3, Title: "T2", Content: "C2", CoverImageURL: "http://img"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"book":{"id":3,"title":"T2","content":"C2","coverImageUrl":"http://img"},"next":"browse"}`,
		},
		{
			name: "updated without cover hands off to cover generation",
			body: `{"title":"T2","content":"C2"}`,
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().
					UpdateBook(context.Background(), 3, model.UpdateBookRequest{Title: "T2", Content: "C2"}).
					Return(model.Book{ID: 3, Title: "T2", Content: "C2"}, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: `{"book":{"id":3,"title":"T2","content":"C2"},"next":"cover","handoff":{"id":3,"title":"T2","content":"C2"}}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, catalogSvc, _, e := newTestHandler(t)
			e.PUT("/books/:id", h.UpdateBook)
			tt.mockBehavior(catalogSvc)

			r := httptest.NewRequest(http.MethodPut, "/books/3", strings.NewReader(tt.body))
			r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_DeleteBook(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockCatalogService)

	tests := []struct {
		name         string
		target       string
		mockBehavior mockBehavior
		expectedCode int
		expectedBody string
	}{
		{
			name:   "deleted",
			target: "/books/5?confirm=true",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().DeleteBook(context.Background(), 5).Return(nil)
			},
			expectedCode: http.StatusNoContent,
		},
		{
			name:   "already deleted still completes the flow",
			target: "/books/5?confirm=true",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().DeleteBook(context.Background(), 5).Return(errs.ErrNotFound)
			},
			expectedCode: http.StatusNoContent,
		},
		{
			name:   "network failure keeps the detail view",
			target: "/books/5?confirm=true",
			mockBehavior: func(r *service_mocks.MockCatalogService) {
				r.EXPECT().DeleteBook(context.Background(), 5).Return(errors.Wrap(errs.ErrUnavailable, "connection refused"))
			},
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"message":"connection refused: upstream unavailable"}`,
		},
		{
			name:         "missing confirmation",
			target:       "/books/5",
			mockBehavior: func(r *service_mocks.MockCatalogService) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"message":"confirmation required"}`,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, catalogSvc, _, e := newTestHandler(t)
			e.DELETE("/books/:id", h.DeleteBook)
			tt.mockBehavior(catalogSvc)

			r := httptest.NewRequest(http.MethodDelete, tt.target, http.NoBody)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.expectedCode, w.Code)
			if tt.expectedBody != "" {
				require.Equal(t, tt.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}
