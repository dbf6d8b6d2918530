package handler

import (
	"net/http"
	"strconv"
	"strings"

	md "github.com/bookshelf-app/bookshelf-service/pkg/middleware"

	"github.com/bookshelf-app/bookshelf-service/config"
	"github.com/bookshelf-app/bookshelf-service/internal/errs"
	"github.com/bookshelf-app/bookshelf-service/internal/model"
	"github.com/bookshelf-app/bookshelf-service/internal/paginate"
	"github.com/bookshelf-app/bookshelf-service/pkg/validate"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Handler struct {
	catalogSvc CatalogService
	workflow   CoverWorkflow
	pageSize   int
	log        *zap.Logger
}

func New(catalogSvc CatalogService, workflow CoverWorkflow, cfg config.Config, log *zap.Logger) *Handler {
	pageSize := cfg.Catalog.PageSize
	if pageSize < 1 {
		pageSize = 3
	}
	return &Handler{
		catalogSvc: catalogSvc,
		workflow:   workflow,
		pageSize:   pageSize,
		log:        log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()

	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/books", h.ListBooks)
	api.POST("/books", h.CreateBook)
	api.GET("/books/:id", h.GetBook)
	api.PUT("/books/:id", h.UpdateBook)
	api.DELETE("/books/:id", h.DeleteBook)

	api.POST("/cover-sessions", h.OpenCoverSession)
	api.GET("/cover-sessions/:sessionId", h.GetCoverSession)
	api.PATCH("/cover-sessions/:sessionId", h.UpdateCoverSession)
	api.DELETE("/cover-sessions/:sessionId", h.CloseCoverSession)
	api.POST("/cover-sessions/:sessionId/generate", h.GenerateCover)
	api.POST("/cover-sessions/:sessionId/register", h.RegisterCover)
	api.GET("/cover-sessions/:sessionId/download", h.DownloadCover)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// httpError maps the error taxonomy onto status codes.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrNoImage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ListBooks(c echo.Context) error {
	ctx := c.Request().Context()

	page := 1
	if pageParam := c.QueryParam("page"); pageParam != "" {
		var err error
		if page, err = strconv.Atoi(pageParam); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("page is invalid"))
		}
	}
	size := h.pageSize
	if sizeParam := c.QueryParam("size"); sizeParam != "" {
		var err error
		if size, err = strconv.Atoi(sizeParam); err != nil || size < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("size is invalid"))
		}
	}

	books, err := h.catalogSvc.ListBooks(ctx)
	if err != nil {
		return httpError(err)
	}

	pv := paginate.Compute(books, size, page)
	items := make([]model.BookCard, 0, len(pv.Items))
	for _, b := range pv.Items {
		items = append(items, model.BookCard{
			ID:            b.ID,
			Title:         b.Title,
			CoverImageURL: b.CoverImageURL,
		})
	}
	return c.JSON(http.StatusOK, model.ListBooksResponse{
		Paging: model.Paging{
			Page:          pv.Page,
			PageSize:      size,
			TotalPages:    pv.TotalPages,
			TotalElements: len(books),
		},
		Items: items,
	})
}

func (h *Handler) GetBook(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("id is invalid"))
	}
	book, err := h.catalogSvc.GetBook(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, model.BookDetailResponse{
		Book:             book,
		CreatedAtDisplay: model.FormatTimestamp(book.CreatedAt),
		UpdatedAtDisplay: model.FormatTimestamp(book.UpdatedAt),
	})
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("title is required"))
	}

	book, err := h.catalogSvc.CreateBook(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, mutationResponse(book))
}

func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("id is invalid"))
	}
	var req model.UpdateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("title is required"))
	}

	book, err := h.catalogSvc.UpdateBook(c.Request().Context(), id, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, mutationResponse(book))
}

// mutationResponse routes a freshly saved book: one without a cover hands
// off to the cover-generation view with its identity.
func mutationResponse(book model.Book) model.BookMutationResponse {
	resp := model.BookMutationResponse{Book: book, Next: model.NextBrowse}
	if book.CoverImageURL == "" {
		resp.Next = model.NextCover
		resp.Handoff = &model.CoverHandoff{
			ID:      book.ID,
			Title:   book.Title,
			Content: book.Content,
		}
	}
	return resp
}

func (h *Handler) DeleteBook(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("id is invalid"))
	}
	if confirm, _ := strconv.ParseBool(c.QueryParam("confirm")); !confirm {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("confirmation required"))
	}

	if err := h.catalogSvc.DeleteBook(c.Request().Context(), id); err != nil {
		// deleting an already-deleted book still completes the flow
		if !errors.Is(err, errs.ErrNotFound) {
			return httpError(err)
		}
		h.log.Debug("delete on missing book treated as complete", zap.Int("id", id))
	}
	return c.NoContent(http.StatusNoContent)
}
