package model

import (
	"encoding/json"
	"strings"
)

// Book is a persisted catalog entry. The id is assigned by the backend and
// never mutated here.
type Book struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	CoverImageURL string `json:"coverImageUrl,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// UnmarshalJSON tolerates the alternate field spellings the backend has been
// seen using: id|bookId, coverImageUrl|img, content|description.
func (b *Book) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            *int   `json:"id"`
		BookID        *int   `json:"bookId"`
		Title         string `json:"title"`
		Content       string `json:"content"`
		Description   string `json:"description"`
		CoverImageURL string `json:"coverImageUrl"`
		Img           string `json:"img"`
		CreatedAt     string `json:"createdAt"`
		UpdatedAt     string `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.ID != nil:
		b.ID = *raw.ID
	case raw.BookID != nil:
		b.ID = *raw.BookID
	}
	b.Title = raw.Title
	b.Content = raw.Content
	if b.Content == "" {
		b.Content = raw.Description
	}
	b.CoverImageURL = raw.CoverImageURL
	if b.CoverImageURL == "" {
		b.CoverImageURL = raw.Img
	}
	b.CreatedAt = raw.CreatedAt
	b.UpdatedAt = raw.UpdatedAt
	return nil
}

const noInformation = "no information"

// FormatTimestamp renders a backend timestamp ("2025-12-05T17:03:53.750913")
// as "2025-12-05 17:03:53". Absent values render as "no information".
func FormatTimestamp(ts string) string {
	if ts == "" {
		return noInformation
	}
	ts, _, _ = strings.Cut(ts, ".")
	return strings.Replace(ts, "T", " ", 1)
}

type CreateBookRequest struct {
	Title         string `json:"title" validate:"required"`
	Content       string `json:"content"`
	CoverImageURL string `json:"coverImageUrl,omitempty"`
}

type UpdateBookRequest struct {
	Title         string `json:"title" validate:"required"`
	Content       string `json:"content"`
	CoverImageURL string `json:"coverImageUrl"`
}

// CoverHandoff is the navigation payload carried from the create and edit
// flows into the cover-generation view.
type CoverHandoff struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

const (
	NextBrowse = "browse"
	NextCover  = "cover"
)

// StateID is a navigation-state book id. The state value may arrive as a
// number or a string; whatever scalar arrives is kept verbatim so the
// identity resolver decides whether it is usable.
type StateID string

func (s *StateID) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = StateID(n.String())
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = StateID(str)
	return nil
}

// OpenCoverSessionRequest is the navigation state carried into the
// cover-generation view.
type OpenCoverSessionRequest struct {
	ID      *StateID `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Image   string   `json:"image,omitempty"`
}

// BookMutationResponse is returned by the create and edit flows. Next tells
// the client where the flow goes; a book saved without a cover hands off to
// the cover-generation view.
type BookMutationResponse struct {
	Book    Book          `json:"book"`
	Next    string        `json:"next"`
	Handoff *CoverHandoff `json:"handoff,omitempty"`
}

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
}

type BookCard struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	CoverImageURL string `json:"coverImageUrl,omitempty"`
}

type ListBooksResponse struct {
	Paging `json:",inline"`
	Items  []BookCard `json:"items"`
}

// PageView is the derived slice of the catalog for one pagination page.
type PageView struct {
	Items      []Book
	Page       int
	TotalPages int
}

type BookDetailResponse struct {
	Book             Book   `json:"book"`
	CreatedAtDisplay string `json:"createdAtDisplay"`
	UpdatedAtDisplay string `json:"updatedAtDisplay"`
}
