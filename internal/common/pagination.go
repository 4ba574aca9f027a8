package common

import (
	"net/http"
	"strconv"
)

// maxPerPage bounds list sizes so a cashier tablet cannot ask the API to
// serialize the whole order history in one response.
const maxPerPage = 100

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

// AtoiDefault converts value to an integer, falling back when empty or
// unparsable.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// ParsePagination extracts page and limit query parameters, clamping the
// per-page size to maxPerPage.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	q := r.URL.Query()
	page = AtoiDefault(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	perPage = AtoiDefault(q.Get("limit"), defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
