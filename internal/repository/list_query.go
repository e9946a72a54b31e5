package repository

import (
	"strings"

	"gorm.io/gorm"
)

// ListQuery represents common query parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Normalize clamps paging values into a usable range
func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 20
	}
	if q.PerPage > 200 {
		q.PerPage = 200
	}
	if q.Filters == nil {
		q.Filters = make(map[string]string)
	}
}

// Offset returns the row offset for the current page
func (q *ListQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// TotalPages returns the page count for total rows
func (q *ListQuery) TotalPages(total int64) int64 {
	if q.PerPage <= 0 {
		return 0
	}
	return (total + int64(q.PerPage) - 1) / int64(q.PerPage)
}

// order applies the sort column when it is one of the allowed ones, otherwise the fallback
func (q *ListQuery) order(db *gorm.DB, allowed map[string]string, fallback string) *gorm.DB {
	column, ok := allowed[q.SortBy]
	if !ok {
		return db.Order(fallback)
	}
	dir := "ASC"
	if strings.EqualFold(q.SortDir, "desc") {
		dir = "DESC"
	}
	return db.Order(column + " " + dir)
}

// searchPattern builds a lower-cased LIKE pattern that works on both postgres and sqlite
func searchPattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}
