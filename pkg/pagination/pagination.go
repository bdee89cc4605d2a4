// Package pagination parses page/limit query parameters and builds paged
// results.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// DefaultParams returns page 1 with the default limit.
func DefaultParams() Params {
	return Params{
		Page:   1,
		Limit:  DefaultLimit,
		Offset: 0,
	}
}

// FromRequest extracts pagination parameters from an HTTP request. The
// boolean reports whether the client asked for a page at all; callers that
// return full collections by default use it to keep the unpaged shape.
// Invalid or out-of-range values fall back to defaults.
func FromRequest(r *http.Request) (Params, bool) {
	p := DefaultParams()
	q := r.URL.Query()
	requested := q.Has("page") || q.Has("limit")

	if page := q.Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if limit := q.Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= MaxLimit {
			p.Limit = v
		}
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p, requested
}

// Result wraps a paginated response.
type Result[T any] struct {
	Docs        []T  `json:"docs"`
	TotalDocs   int  `json:"totalDocs"`
	Limit       int  `json:"limit"`
	Page        int  `json:"page"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewResult creates a paginated result for one page of docs out of totalDocs.
func NewResult[T any](docs []T, totalDocs int, params Params) Result[T] {
	if docs == nil {
		docs = []T{}
	}

	totalPages := totalDocs / params.Limit
	if totalDocs%params.Limit > 0 {
		totalPages++
	}

	return Result[T]{
		Docs:        docs,
		TotalDocs:   totalDocs,
		Limit:       params.Limit,
		Page:        params.Page,
		TotalPages:  totalPages,
		HasNextPage: params.Page < totalPages,
		HasPrevPage: params.Page > 1,
	}
}

// Slice pages an in-memory collection.
func Slice[T any](items []T, params Params) Result[T] {
	start := min(params.Offset, len(items))
	end := min(start+params.Limit, len(items))
	return NewResult(items[start:end], len(items), params)
}
