// Package paginate derives the visible page of the catalog from the full
// fetched collection. It is a pure computation: selecting a page never
// triggers a new fetch.
package paginate

import "github.com/bookshelf-app/bookshelf-service/internal/model"

// Compute slices items for the requested 1-based page. A requested page
// outside [1, totalPages] snaps to the nearest valid boundary page. An empty
// collection yields totalPages 0 and an empty page rather than an error.
func Compute(items []model.Book, pageSize, requestedPage int) model.PageView {
	if pageSize < 1 {
		pageSize = 1
	}
	totalPages := (len(items) + pageSize - 1) / pageSize

	page := requestedPage
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	if totalPages == 0 {
		page = 1
	}

	first := (page - 1) * pageSize
	last := first + pageSize
	if first > len(items) {
		first = len(items)
	}
	if last > len(items) {
		last = len(items)
	}

	return model.PageView{
		Items:      items[first:last],
		Page:       page,
		TotalPages: totalPages,
	}
}
