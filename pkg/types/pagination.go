package types

import (
	"fmt"
	"strings"
)

// Pagination selects the slice of a filtered, sorted result.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Validate rejects negative limits and offsets.
func (p Pagination) Validate() error {
	if p.Limit < 0 || p.Offset < 0 {
		return fmt.Errorf("%w: limit %d, offset %d", ErrInvalidPagination, p.Limit, p.Offset)
	}
	return nil
}

// Window returns the bounds of the page within n rows. Any limit is safe,
// including math.MaxInt.
func (p Pagination) Window(n int) (start, end int) {
	start = min(p.Offset, n)
	end = start + min(p.Limit, n-start)
	return start, end
}

// PageQuery carries the optional ordering and search of a Paginate call.
type PageQuery struct {
	// Sorting lists field names, each optionally prefixed with "-" for
	// descending order.
	Sorting []string
	// SearchBy lists the fields searched for Search.
	SearchBy []string
	// Search is matched as a case-sensitive substring.
	Search string
}

// Searching reports whether the query filters rows.
func (q PageQuery) Searching() bool {
	return q.Search != "" && len(q.SearchBy) > 0
}

// PaginationResult holds one page and the number of rows matching the query.
type PaginationResult[R any] struct {
	Count   int `json:"count"`
	Objects []R `json:"objects"`
}

// SortKey is one parsed sort token.
type SortKey struct {
	Field string
	Desc  bool
}

// ParseSorting turns sort tokens into sort keys.
func ParseSorting(tokens []string) ([]SortKey, error) {
	keys := make([]SortKey, 0, len(tokens))
	for _, token := range tokens {
		key := SortKey{Field: strings.TrimSpace(token)}
		if rest, ok := strings.CutPrefix(key.Field, "-"); ok {
			key.Field, key.Desc = rest, true
		}
		if key.Field == "" {
			return nil, fmt.Errorf("%w: empty sort token %q", ErrUnknownField, token)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
