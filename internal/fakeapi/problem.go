package fakeapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bretthoes/cookbook-mobile-sub001/internal/api"
)

// abortProblem writes a ProblemDetails body and stops the handler chain.
func abortProblem(c *gin.Context, status int, detail string) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, api.ErrorBody{
		Title:  http.StatusText(status),
		Detail: detail,
		Status: status,
	})
}

func badRequest(c *gin.Context, detail string) {
	abortProblem(c, http.StatusBadRequest, detail)
}

func notFound(c *gin.Context, what string) {
	abortProblem(c, http.StatusNotFound, what+" not found.")
}

func forbidden(c *gin.Context) {
	abortProblem(c, http.StatusForbidden, "")
}

func conflict(c *gin.Context, detail string) {
	abortProblem(c, http.StatusConflict, detail)
}

// intParam parses a positive integer path parameter, aborting with 400 when
// it is malformed.
func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		badRequest(c, "Invalid "+name+".")
		return 0, false
	}
	return v, true
}

// intQuery parses an optional integer query parameter.
func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "Invalid "+name+".")
		return 0, false
	}
	return v, true
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// pageParams reads PageNumber and PageSize.
func pageParams(c *gin.Context) (page, size int, ok bool) {
	if page, ok = intQuery(c, "PageNumber", 1); !ok {
		return 0, 0, false
	}
	if size, ok = intQuery(c, "PageSize", defaultPageSize); !ok {
		return 0, 0, false
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, true
}

func paginate[T any](items []T, page, size int) api.PaginatedList[T] {
	total := len(items)
	pages := (total + size - 1) / size
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return api.PaginatedList[T]{
		Items:           out,
		PageNumber:      page,
		TotalPages:      pages,
		TotalCount:      total,
		HasPreviousPage: page > 1,
		HasNextPage:     page < pages,
	}
}
