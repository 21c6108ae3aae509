package httpserver

import (
	"net/http"
	"strconv"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// OffsetParams is limit/offset pagination for operator list endpoints that
// are not part of the cursor-paginated signal listing (C15).
type OffsetParams struct {
	Limit  int
	Offset int
}

// ParseOffsetParams reads "limit" and "offset" query parameters, clamping
// limit to [1, MaxPageSize] and defaulting to DefaultPageSize.
func ParseOffsetParams(r *http.Request) OffsetParams {
	limit := DefaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return OffsetParams{Limit: limit, Offset: offset}
}
