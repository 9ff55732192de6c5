package search

import (
	"github.com/platinummonkey/backer/pkg/apierrors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Pagination is a validated page request
type Pagination struct {
	Page  int
	Limit int
}

// NewPagination validates page and limit
func NewPagination(page, limit int) (Pagination, error) {
	if page < 1 {
		return Pagination{}, apierrors.BadRequest("page must be greater than or equal to 1")
	}
	if limit < 1 || limit > MaxLimit {
		return Pagination{}, apierrors.BadRequest("limit must be between 1 and %d", MaxLimit)
	}
	return Pagination{Page: page, Limit: limit}, nil
}

// DefaultPagination returns the first page with the default limit
func DefaultPagination() Pagination {
	return Pagination{Page: DefaultPage, Limit: DefaultLimit}
}

// Offset returns the number of rows to skip
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PaginationInfo describes the full result set of a paginated response
type PaginationInfo struct {
	TotalCount int `json:"total_count"`
	MaxPage    int `json:"max_page"`
}

// ListResource is a page of results
type ListResource[T any] struct {
	Items      []T            `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// NewListResource builds a list response. Items is never encoded as null.
func NewListResource[T any](items []T, totalCount int, p Pagination) ListResource[T] {
	if items == nil {
		items = []T{}
	}
	return ListResource[T]{
		Items: items,
		Pagination: PaginationInfo{
			TotalCount: totalCount,
			MaxPage:    MaxPage(totalCount, p.Limit),
		},
	}
}

// MaxPage returns ceil(totalCount / limit)
func MaxPage(totalCount, limit int) int {
	if limit <= 0 || totalCount <= 0 {
		return 0
	}
	return (totalCount + limit - 1) / limit
}
