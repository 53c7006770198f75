// Package query parses common URL query parameters.
package query

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var ErrInvalidPagination = errors.New("limit and offset must be non-negative integers")

// Pagination reads limit and offset. limit defaults to DefaultLimit and is
// capped at MaxLimit.
func Pagination(r *http.Request) (limit, offset int, err error) {
	limit, offset = DefaultLimit, 0
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, ErrInvalidPagination
		}
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, ErrInvalidPagination
		}
	}
	return min(limit, MaxLimit), offset, nil
}
