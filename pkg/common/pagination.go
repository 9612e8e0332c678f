package common

import (
	"net/http"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams are the page/page_size query parameters of list endpoints.
type PaginationParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// ExtractPaginationParams reads page and page_size from the query string,
// falling back to defaults for missing or malformed values.
func ExtractPaginationParams(r *http.Request) PaginationParams {
	params := PaginationParams{Page: 1, PageSize: DefaultPageSize}

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}
	if pageSize := r.URL.Query().Get("page_size"); pageSize != "" {
		if ps, err := strconv.Atoi(pageSize); err == nil && ps > 0 {
			params.PageSize = min(ps, MaxPageSize)
		}
	}
	return params
}

// Offset is the number of items skipped before the current page
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PaginationInfo describes where a page sits in the full result.
type PaginationInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// PaginatedResult wraps one page of items.
type PaginatedResult[T any] struct {
	Items      []T             `json:"items"`
	Pagination *PaginationInfo `json:"pagination"`
}

// NewPaginatedResult creates a page envelope
func NewPaginatedResult[T any](items []T, page, pageSize, total int) *PaginatedResult[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return &PaginatedResult[T]{
		Items: items,
		Pagination: &PaginationInfo{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}
}
