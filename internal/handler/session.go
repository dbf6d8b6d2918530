package handler

import (
	"fmt"
	"net/http"

	"github.com/bookshelf-app/bookshelf-service/internal/identity"
	"github.com/bookshelf-app/bookshelf-service/internal/model"
	"github.com/bookshelf-app/bookshelf-service/internal/session"
	"github.com/labstack/echo/v4"
)

// OpenCoverSession starts a fresh generation session. The target book id is
// resolved from the candidate sources in strict priority order: the path-style
// "id", the alternate "bookId", then the navigation state. An unresolved
// identity still opens a preview-only session.
func (h *Handler) OpenCoverSession(c echo.Context) error {
	var req model.OpenCoverSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	stateCandidate := identity.Candidate{Source: identity.SourceState}
	if req.ID != nil {
		stateCandidate = identity.FromString(identity.SourceState, string(*req.ID))
	}
	candidates := []identity.Candidate{
		identity.FromString(identity.SourcePath, c.QueryParam("id")),
		identity.FromString(identity.SourcePathAlt, c.QueryParam("bookId")),
		stateCandidate,
	}

	var bookID *int
	if id, err := identity.Resolve(candidates); err == nil {
		bookID = &id
	}

	view := h.workflow.Open(bookID, req.Title, req.Content, req.Image)
	return c.JSON(http.StatusCreated, view)
}

func (h *Handler) GetCoverSession(c echo.Context) error {
	view, err := h.workflow.Get(c.Param("sessionId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) UpdateCoverSession(c echo.Context) error {
	var in session.Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	view, err := h.workflow.UpdateInput(c.Param("sessionId"), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) CloseCoverSession(c echo.Context) error {
	if err := h.workflow.Close(c.Param("sessionId")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GenerateCover(c echo.Context) error {
	var in session.GenerateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	view, err := h.workflow.Generate(c.Request().Context(), c.Param("sessionId"), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) RegisterCover(c echo.Context) error {
	view, err := h.workflow.Register(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) DownloadCover(c echo.Context) error {
	img, err := h.workflow.Download(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", img.Filename))
	return c.Blob(http.StatusOK, img.ContentType, img.Data)
}
